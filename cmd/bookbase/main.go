package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		a          *app
	)

	root := &cobra.Command{
		Use:           "bookbase",
		Short:         "Browse the book catalog and keep a reading list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./bookbase.yaml or $HOME/.bookbase/bookbase.yaml)")
	flags.String("base-url", "", "catalog base URL")
	flags.Int("max-results", 0, "results per category (1-40)")
	flags.Int("max-in-flight", 0, "concurrent category fetches")
	flags.String("mode", "", "default view: browse or search")
	flags.String("db-driver", "", "reading list backend: sqlite or postgres")
	flags.String("db-dsn", "", "reading list database DSN")
	flags.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	bindings := map[string]string{
		"base-url":      config.KeyBaseURL,
		"max-results":   config.KeyMaxResults,
		"max-in-flight": config.KeyMaxInFlight,
		"mode":          config.KeyMode,
		"db-driver":     config.KeyDatabaseDriver,
		"db-dsn":        config.KeyDatabaseDSN,
		"metrics-addr":  config.KeyMetricsAddr,
		"verbose":       config.KeyVerbose,
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		v, err := config.NewViper(configFile)
		if err != nil {
			return err
		}
		if err := bindFlags(v, cmd, bindings); err != nil {
			return err
		}
		cfg, err := config.FromViper(v)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger, level := newLogger(cfg.Verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())

		a, err = newApp(cfg)
		return err
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a == nil {
			return nil
		}
		return a.Close()
	}

	current := func() *app { return a }
	root.AddCommand(
		newBrowseCmd(current),
		newSearchCmd(current),
		newShowCmd(current),
		newListCmd(current),
		newAddCmd(current),
		newRemoveCmd(current),
		newWatchCmd(current),
		newExportCmd(current),
	)
	return root
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for name, key := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
