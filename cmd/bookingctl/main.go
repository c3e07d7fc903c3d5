package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"bookingwidget/internal/cache"
	"bookingwidget/internal/client"
	"bookingwidget/internal/config"
	"bookingwidget/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is shared by all subcommands and built before each one runs.
type app struct {
	configPath string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	verbose    bool

	cfg    *config.Config
	client *client.Client
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Book appointments and inspect the booking store from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "config file; skipped when missing")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "booking API base url including /api (overrides config)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "api key (overrides config)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "request timeout (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(newBookCmd(a))
	root.AddCommand(newSlotsCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newExportCmd(a))

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger, _, err := logging.New(config.LoggingConfig{Level: level, Format: "console", Output: "stderr"}, cfg.App)
	if err != nil {
		return err
	}
	a.logger = logger.With().Str("component", "bookingctl").Logger()

	baseURL := cfg.Client.BaseURL
	if a.baseURL != "" {
		baseURL = a.baseURL
	}
	apiKey := cfg.Client.APIKey
	if a.apiKey != "" {
		apiKey = a.apiKey
	}
	timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
	if a.timeout > 0 {
		timeout = a.timeout
	}

	a.client = client.NewClient(baseURL, apiKey, timeout)
	a.attachCache(cmd)
	return nil
}

// loadConfig reads the config file when present. Without one the client
// talks to the default local API.
func (a *app) loadConfig() (*config.Config, error) {
	if _, err := os.Stat(a.configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		return &config.Config{
			Client: config.ClientConfig{BaseURL: "http://localhost:3000/api", TimeoutSeconds: 10},
		}, nil
	}
	return config.Load(a.configPath)
}

// attachCache puts Redis in front of booked slot lookups, with an in-process
// fallback while Redis is unreachable.
func (a *app) attachCache(cmd *cobra.Command) {
	if a.cfg.Redis.Address == "" || a.cfg.Client.CacheTTL <= 0 {
		return
	}

	redisClient := cache.NewRedisClient(a.cfg.Redis)
	if err := cache.Ping(cmd.Context(), redisClient); err != nil {
		a.logger.Warn().Err(err).Str("addr", a.cfg.Redis.Address).Msg("redis unavailable, slot cache is local only")
	}

	slots := cache.NewFailoverSlotCache(cache.NewRedisSlotCache(redisClient), cache.NewMemorySlotCache(), &a.logger)
	a.client.UseSlotCache(slots, time.Duration(a.cfg.Client.CacheTTL)*time.Second)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
