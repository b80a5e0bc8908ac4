package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tremby/craft-remote-core/pkg/config"
	"github.com/tremby/craft-remote-core/pkg/telemetry"
	"github.com/tremby/craft-remote-core/services/backup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remotectl",
		Short:         "Back up and restore a deployment's database and volumes to remote storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newDatabaseCommand())
	cmd.AddCommand(newVolumesCommand())
	cmd.AddCommand(newPruneCommand())
	return cmd
}

func newOrchestrator(ctx context.Context) (*backup.Orchestrator, func(context.Context) error, error) {
	shutdown, _, logger, err := telemetry.Init(ctx, "remotectl")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	orch, err := backup.FromConfig(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := orch.CheckTransport(ctx); err != nil {
		return nil, nil, err
	}
	return orch, shutdown, nil
}

func runOp(cmd *cobra.Command, op func(ctx context.Context, orch *backup.Orchestrator) error) error {
	ctx := cmd.Context()
	orch, shutdown, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	return op(ctx, orch)
}

func newDatabaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database backup operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Dump the database and push the artifact to remote storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				filename, err := orch.PushDatabase(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filename)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull <filename>",
		Short: "Pull a database artifact and restore it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				return orch.PullDatabase(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remote database artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				items, err := orch.ListDatabases(ctx)
				if err != nil {
					return err
				}
				printItems(cmd, items)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a remote database artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				return orch.DeleteDatabase(ctx, args[0])
			})
		},
	})

	return cmd
}

func newVolumesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Volume backup operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Mirror every configured volume, pack it, and push the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				filename, err := orch.PushVolumes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filename)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull <filename>",
		Short: "Pull a volume artifact and restore its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				return orch.PullVolume(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remote volume artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				items, err := orch.ListVolumes(ctx)
				if err != nil {
					return err
				}
				printItems(cmd, items)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete a remote volume artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				return orch.DeleteVolume(ctx, args[0])
			})
		},
	})

	return cmd
}

func newPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <database|volumes>",
		Short: "Delete all but the most recent remote artifacts of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind backup.Kind
			switch args[0] {
			case "database":
				kind = backup.KindDatabase
			case "volumes":
				kind = backup.KindVolumes
			default:
				return fmt.Errorf("unknown artifact kind %q", args[0])
			}

			return runOp(cmd, func(ctx context.Context, orch *backup.Orchestrator) error {
				deleted, err := orch.Prune(ctx, kind, keep)
				if err != nil {
					return err
				}
				for _, filename := range deleted {
					fmt.Fprintln(cmd.OutOrStdout(), filename)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 5, "Number of most recent artifacts to keep")
	return cmd
}

func printItems(cmd *cobra.Command, items []backup.Item) {
	for _, item := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.Filename, item.Label)
	}
}
