package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pnct-tools/container-query/internal/app"
	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup(cmd)
		noWorker, _ := cmd.Flags().GetBool("no-worker")

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		application, err := newApplication(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		if err := application.RunServer(ctx, cfg.Server.EmbeddedWorker && !noWorker); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker for container lookups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup(cmd)

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		application, err := newApplication(ctx, cfg, log, app.WithRunner(config.RunnerTemporal))
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		if err := application.RunWorker(ctx); err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <container-id>",
	Short: "Look up one container and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup(cmd)

		intentFlag, _ := cmd.Flags().GetString("intent")
		intent, err := domain.ParseIntent(intentFlag)
		if err != nil {
			return err
		}

		var opts []app.Option
		if inline, _ := cmd.Flags().GetBool("inline"); inline {
			opts = append(opts, app.WithRunner(config.RunnerInline))
		}

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		application, err := newApplication(ctx, cfg, log, opts...)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		result, err := application.Lookup(ctx, args[0], intent)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a natural-language question about a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup(cmd)

		ctx, cancel := signalContext(cmd.Context(), log)
		defer cancel()

		application, err := newApplication(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		answer := application.Ask(ctx, args[0])
		fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
		if answer.Err != nil {
			return errors.New("query did not succeed")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("no-worker", false, "do not run an embedded Temporal worker")
	lookupCmd.Flags().String("intent", string(domain.IntentAll), "what to report: "+domain.IntentNames())
	lookupCmd.Flags().Bool("inline", false, "run the lookup in-process instead of through Temporal")
}
