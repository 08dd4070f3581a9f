package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/yukikurage/project-management-api/internal/app"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/jobs"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/queue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Notification queue worker",
	Long: `Runs the notification queue outside the API process and inspects it.

Use "work" when the API is started with QUEUE_EMBEDDED_WORKERS=false.
Jobs that exhausted their attempts end up in failed_jobs; list and retry them
with the "failed" commands.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(workCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(failedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withStore loads configuration, opens the database and runs fn.
func withStore(fn func(cfg *config.Config, log *zap.Logger, db *gorm.DB, store *queue.Store) error) error {
	cfg := config.Load()

	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := app.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}

	return fn(cfg, log, db, queue.NewStore(db))
}

func workCmd() *cobra.Command {
	var (
		concurrency int
		once        bool
	)
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Process notification jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.Config, log *zap.Logger, db *gorm.DB, store *queue.Store) error {
				if concurrency > 0 {
					cfg.QueueWorkers = concurrency
				}

				worker, err := app.NewNotificationWorker(cfg, db, store, log)
				if err != nil {
					return err
				}

				if once {
					worker.Maintain(cmd.Context())
					processed, err := worker.Drain(cmd.Context())
					log.Info("queue drained", zap.Int("processed", processed))
					return err
				}
				return worker.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of concurrent jobs (default QUEUE_WORKERS)")
	cmd.Flags().BoolVar(&once, "once", false, "process the jobs available now, then exit")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queued and failed job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, _ *zap.Logger, _ *gorm.DB, store *queue.Store) error {
				pending, err := store.Pending(cmd.Context(), jobs.QueueNotifications)
				if err != nil {
					return err
				}
				failed, err := store.ListFailed(cmd.Context(), 0)
				if err != nil {
					return err
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Queue", "Pending", "Failed"})
				tw.AppendRow(table.Row{jobs.QueueNotifications, pending, len(failed)})
				tw.Render()
				return nil
			})
		},
	}
}

func failedCmd() *cobra.Command {
	failed := &cobra.Command{Use: "failed", Short: "Inspect and retry failed jobs"}
	failed.AddCommand(failedListCmd())
	failed.AddCommand(failedRetryCmd())
	return failed
}

func failedListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List failed jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *config.Config, _ *zap.Logger, _ *gorm.DB, store *queue.Store) error {
				rows, err := store.ListFailed(cmd.Context(), limit)
				if err != nil {
					return err
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Type", "Attempts", "Failed At", "Exception"})
				for _, row := range rows {
					tw.AppendRow(table.Row{row.ID, row.Type, row.Attempts, row.FailedAt.Format("2006-01-02 15:04:05"), truncate(row.Exception, 60)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of jobs to show (0 for all)")
	return cmd
}

func failedRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Push a failed job back onto its queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid failed job id %q", args[0])
			}

			return withStore(func(_ *config.Config, log *zap.Logger, _ *gorm.DB, store *queue.Store) error {
				job, err := store.RetryFailed(cmd.Context(), id, uuid.NewString())
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fmt.Errorf("failed job %d not found", id)
					}
					return err
				}

				log.Info("failed job requeued", zap.Uint64("failed_id", id), zap.String("job_id", job.ID), zap.String("type", job.Type))
				fmt.Fprintf(cmd.OutOrStdout(), "requeued as %s\n", job.ID)
				return nil
			})
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
