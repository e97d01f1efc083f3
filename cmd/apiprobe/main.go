package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/APIProbe/pkg/probe"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool
	logLevel   string
	baseURL    string
	username   string
	password   string
	token      string
	timeout    int
	format     string
	outputFile string

	// Get flags
	params  []string
	headers []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree, binding flags to the package variables.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apiprobe",
		Short: "APIProbe - Authenticated API debugging probe",
		Long: `APIProbe - Logs in to an HTTP API and dumps what its endpoints return.

Each response is printed with its status, headers and decoded body so that
response shapes and server-side errors can be inspected by hand.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and probe every configured endpoint",
		Long:  "Log in, then call each configured endpoint in order and print its response.",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}

	// Get command
	getCmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Log in and probe a single endpoint",
		Long:  "Log in, then call one endpoint with the given query parameters and print its response.",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}

	// Login command
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the issued token",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}

	// Init command
	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a default configuration file",
		Long:  "Write the default configuration to a YAML or JSON file (by extension) for editing.",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&debug, "debug", false, "Debug mode")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides --verbose and --debug")
	flags.StringVar(&baseURL, "base-url", probe.DefaultBaseURL, "API base URL")
	flags.StringVarP(&username, "username", "u", "", "Login username or email")
	flags.StringVarP(&password, "password", "p", "", "Login password")
	flags.StringVar(&token, "token", "", "Bearer token (skips login)")
	flags.IntVarP(&timeout, "timeout", "t", 30, "Request timeout in seconds")
	flags.StringVar(&format, "format", "text", "Output format (text, json)")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	// Get flags
	getCmd.Flags().StringArrayVar(&params, "param", nil, "Query parameter as key=value (repeatable)")
	getCmd.Flags().StringArrayVar(&headers, "header", nil, "Extra request header as key=value (repeatable)")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(initCmd)

	return rootCmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return execute(config)
}

func runGet(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	step := probe.Step{Name: args[0], Path: args[0]}
	if step.Params, err = parseParams(params); err != nil {
		return err
	}
	if step.Headers, err = parseHeaders(headers); err != nil {
		return err
	}
	config.Steps = []probe.Step{step}

	return execute(config)
}

func runLogin(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(config.Output.FilePath)
	if err != nil {
		return err
	}
	defer closeOut()

	p, err := probe.New(probe.WithConfig(config), probe.WithOutput(out))
	if err != nil {
		return fmt.Errorf("failed to create probe: %w", err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	_, err = p.Authenticate(ctx)
	return err
}

func runInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := probe.DefaultConfig().SaveToFile(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

// execute runs the probe over config.Steps. Step failures are printed but
// only a failed login or a broken setup makes the command fail.
func execute(config *probe.Config) error {
	out, closeOut, err := openOutput(config.Output.FilePath)
	if err != nil {
		return err
	}
	defer closeOut()

	p, err := probe.New(probe.WithConfig(config), probe.WithOutput(out))
	if err != nil {
		return fmt.Errorf("failed to create probe: %w", err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	_, err = p.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// buildConfig layers defaults, the config file, the environment and then
// explicitly set flags, later sources winning.
func buildConfig(cmd *cobra.Command) (*probe.Config, error) {
	config := probe.DefaultConfig()

	if configFile != "" {
		fileConfig, err := probe.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	config.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		config.BaseURL = baseURL
	}
	if flags.Changed("username") {
		config.Auth.Username = username
	}
	if flags.Changed("password") {
		config.Auth.Password = password
	}
	if flags.Changed("token") {
		config.Auth.Token = token
	}
	if flags.Changed("timeout") {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	if flags.Changed("format") {
		config.Output.Format = format
	}
	if flags.Changed("output") {
		config.Output.FilePath = outputFile
	}
	if flags.Changed("log-level") {
		config.LogLevel = logLevel
	}
	if verbose {
		config.Verbose = true
	}
	if debug {
		config.Debug = true
	}

	return config, nil
}

// openOutput returns stdout, or a buffered file when path is set.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := bufio.NewWriter(file)
	return w, func() {
		w.Flush()
		file.Close()
	}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func parseParams(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	result := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("invalid --param: %w", err)
		}
		result[key] = value
	}
	return result, nil
}

func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("invalid --header: %w", err)
		}
		result[key] = value
	}
	return result, nil
}

func splitPair(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%q is not key=value", pair)
	}
	return key, value, nil
}
