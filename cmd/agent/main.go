// cmd/agent/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/farmahub/farmahub-backend/internal/agent"
	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

type rootOptions struct {
	ConfigPath string
	LogFormat  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "farmahub-agent",
		Short: "Ships the pharmacy ERP stock export to FarmaHub",
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "agent.yaml", "path to the agent YAML config")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (json|text)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newOnceCommand(opts))

	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Watch the stock file and deliver every change",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, watcher, err := setup(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher.Run(ctx, agent.State{})
			logrus.WithField("source", cfg.SourcePath).Info("Agent stopped")
			return nil
		},
	}
}

func newOnceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "once",
		Short:        "Deliver the current stock file once and exit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, watcher, err := setup(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_, report, err := watcher.Poll(ctx, agent.State{})
			if err != nil {
				return err
			}
			if !report.Delivered {
				return errors.New("stock file was not delivered")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d items (server wrote %d, skipped %d locally)\n",
				report.Parsed, report.Result.Written, len(report.Skipped))
			return nil
		},
	}
}

func setup(opts *rootOptions) (*config.AgentConfig, *agent.Watcher, error) {
	cfg, err := config.LoadAgent(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid agent configuration: %w", err)
	}

	utils.ConfigureLogger(cfg.LogLevel, opts.LogFormat)

	watcher := agent.NewWatcher(cfg, agent.OSFileSystem{}, agent.NewClient(cfg))
	return cfg, watcher, nil
}
