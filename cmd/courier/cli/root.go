// Package cli implements the courier command-line interface.
package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/courier"
	"github.com/meigma/courier/cmd/courier/cli/config"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	cfgFile  string
	insecure bool
	verbose  bool
	headers  []string
)

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Send HTTP requests with upload progress",
	Long: `Courier is a CLI for sending HTTP requests and uploading files.

Uploads report progress as the request body is written to the connection,
so large transfers show exactly how much of the body has left the machine.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return initConfig() },
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/courier/config.yaml)")
	pf.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	pf.StringArrayVarP(&headers, "header", "H", nil, "Extra request header in 'Key: Value' form (repeatable)")
	pf.String("progress", "auto", "Progress output: auto, tty, or plain")
	pf.Duration("timeout", 0, "Overall request timeout (0 uses the configured default)")
	pf.String("user-agent", "", "User-Agent header")

	for _, name := range []string{"progress", "timeout", "user-agent"} {
		//nolint:errcheck // flag names are static
		viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Transfer Commands:"})
	rootCmd.Version = version
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// initConfig loads defaults, the config file, and COURIER_* environment
// variables into Viper. Flags bound in init take precedence over all three.
func initConfig() error {
	defaults := config.Defaults()
	viper.SetDefault("progress", defaults.Progress)
	viper.SetDefault("timeout", defaults.Timeout)
	viper.SetDefault("upload.method", defaults.Upload.Method)
	viper.SetDefault("upload.compression", defaults.Upload.Compression)
	viper.SetDefault("upload.chunk-size", defaults.Upload.ChunkSize)
	viper.SetDefault("upload.digest", defaults.Upload.Digest)

	viper.SetEnvPrefix("COURIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yaml"))
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// currentConfig returns the effective configuration.
func currentConfig() (config.Config, error) {
	cfg := config.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newClient creates a courier client with configured options. extra is
// applied after the configured options.
func newClient(cfg config.Config, extra ...courier.ClientOption) (*courier.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		//nolint:gosec // explicitly requested with --insecure
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "courier/" + version
	}

	opts := []courier.ClientOption{
		courier.WithHTTPClient(&http.Client{Transport: transport}),
		courier.WithUserAgent(ua),
	}
	for key, value := range cfg.Headers {
		opts = append(opts, courier.WithDefaultHeader(key, value))
	}
	if verbose {
		opts = append(opts, courier.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	return courier.NewClient(append(opts, extra...)...)
}

// applyHeaders adds the --header values to b.
func applyHeaders(b *courier.RequestBuilder, raw []string) error {
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid header %q (expected 'Key: Value')", h)
		}
		b.AddHeader(key, strings.TrimSpace(value))
	}
	return nil
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM
// and after the configured timeout.
func signalContext(cfg config.Config) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, cfg.Timeout)
		parent := cancel
		cancel = func() {
			timeoutCancel()
			parent()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts courier errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *courier.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error: server responded %s", statusErr.Status)
	case errors.Is(err, courier.ErrInvalidRequest):
		return fmt.Sprintf("Error: invalid request: %v", err)
	case errors.Is(err, courier.ErrDigestUnsupported):
		return "Error: content digest is not supported for this body"
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("Error: file not found: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return "Error: request timed out"
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
