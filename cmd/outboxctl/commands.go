package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/modules/notifications/infrastructure/persistence"
	"github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/configuration"
)

var allStatuses = []string{
	message.StatusPending,
	message.StatusRetrying,
	message.StatusSent,
	message.StatusDeliveryDelayed,
	message.StatusDelivered,
	message.StatusBounced,
	message.StatusFailed,
	message.StatusCancelled,
}

// connect opens a pool and builds a mailer without a provider client; the
// operational commands never send mail.
func connect(ctx context.Context) (context.Context, *services.MailerService, *pgxpool.Pool, error) {
	conf := configuration.Use()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	mailer := services.NewMailerService(services.MailerServiceOptions{
		Messages:    persistence.NewMessageRepository(),
		From:        conf.Mailer.From,
		MaxAttempts: conf.Outbox.MaxAttempts,
		BaseBackoff: conf.Outbox.BaseBackoff,
	})
	return composables.WithPool(ctx, pool), mailer, pool, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print message counts per outbox status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, mailer, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			for _, status := range allStatuses {
				n, err := mailer.CountByStatus(ctx, status)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %d\n", status, n)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <message-id>",
		Short: "Print one message's delivery state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id: %w", err)
			}
			ctx, mailer, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := mailer.Status(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("id:        %s\n", m.ID)
			fmt.Printf("type:      %s\n", m.Type)
			fmt.Printf("to:        %v\n", m.ToAddresses)
			fmt.Printf("status:    %s\n", m.Status)
			fmt.Printf("attempts:  %d\n", m.AttemptCount)
			if m.NextAttemptAt != nil {
				fmt.Printf("next try:  %s\n", m.NextAttemptAt.Format(time.RFC3339))
			}
			if m.ProviderMessageID != nil {
				fmt.Printf("provider:  %s\n", *m.ProviderMessageID)
			}
			if m.ErrorMessage != nil {
				fmt.Printf("error:     %s\n", *m.ErrorMessage)
			}
			return nil
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <message-id>",
		Short: "Cancel a pending message before it is sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id: %w", err)
			}
			ctx, mailer, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := mailer.Cancel(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("cancelled %s\n", m.ID)
			return nil
		},
	}
}

func newRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue-failed",
		Short: "Reset failed messages for a fresh round of attempts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, mailer, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := mailer.RequeueFailed(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("requeued %d messages\n", n)
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finalized messages older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, mailer, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := mailer.PruneFinalized(ctx, retention)
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d messages\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "age past finalization before deletion")
	return cmd
}
