package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/logger"
)

type contextKey string

const configKey = contextKey("config")

var rootCmd = &cobra.Command{
	Use:   "container-query",
	Short: "Query PNCT container status",
	Long:  "Looks up shipping containers at the Port Newark Container Terminal, directly or through natural-language questions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.LoadDotEnv(); err != nil {
			return err
		}
		cfgFile, _ := cmd.Flags().GetString("config")
		if err := config.InitConfig(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		cmd.SetContext(ctx)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "INFO", "set log level (e.g. INFO, DEBUG, WARN)")
	viper.BindPFlag("log.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, workerCmd, lookupCmd, askCmd)
}

// setup returns the loaded configuration and a logger built from it.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger) {
	cfg := cmd.Context().Value(configKey).(*config.Config)
	return cfg, logger.SetupLogger(&cfg.Logging)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Info().Msgf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}
