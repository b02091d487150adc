package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/channel"
	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/obs"
	"github.com/NordCoder/Notewire/internal/obs/retry"
	"github.com/NordCoder/Notewire/internal/outbox"
	"github.com/NordCoder/Notewire/internal/repository/memory"
	"github.com/NordCoder/Notewire/internal/services/inbox"
	"github.com/NordCoder/Notewire/internal/services/inbox/realtime"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

type demoOptions struct {
	*rootOptions
	Sender    string
	Recipient string
}

func newDemoCommand(root *rootOptions) *cobra.Command {
	opts := &demoOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the delivery pipeline end to end in memory",
		Long: `Runs producer, outbox relay and an inbox session against in-memory
stores and an in-process push hub. No database or broker is needed.

Example:
  inbox demo --from alice --to bob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lc := obs.LogConfig{Level: "warn", Pretty: true, App: "notewire/inbox-demo"}
			logger, err := root.logger(lc)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runDemo(cmd.Context(), opts, printer{w: cmd.OutOrStdout(), format: "text"}, logger)
		},
	}
	cmd.Flags().StringVar(&opts.Sender, "from", "alice", "sender user id")
	cmd.Flags().StringVar(&opts.Recipient, "to", "bob", "recipient user id")
	return cmd
}

func runDemo(ctx context.Context, opts *demoOptions, p printer, logger *zap.Logger) error {
	notifs := memory.NewNotificationRepo()
	box := memory.NewOutboxRepo()
	hub := memory.NewHub()

	uc := producer.New(notifs, memory.NewSettingsRepo(), box, memory.Transactor{}, nil, logger)
	relay := outbox.NewOutboxRunner(logger, box,
		outbox.MakeGlobalOutboxHandler(hub, retry.DefaultPublishPolicy(logger)),
		outbox.Config{BatchSize: 10},
	)

	rt := realtime.DefaultConfig()
	rt.BaseDelay = 50 * time.Millisecond
	s := inbox.NewSession(inbox.Deps{Repo: notifs, Channel: hub, Logger: logger}, inbox.Config{
		PollInterval: 200 * time.Millisecond,
		Realtime:     rt,
	})
	defer s.Close()

	s.OnChannelState(func(prev, next realtime.State) {
		p.line("  channel: %s -> %s", prev, next)
	})
	sub := s.OnNewNotification(func(n notification.Notification) {
		p.line("  pushed: %s from %s", n.Type, n.SenderID)
	})
	defer sub.Unsubscribe()

	p.line("== session for %s", opts.Recipient)
	if err := s.Initialize(ctx, opts.Recipient); err != nil {
		return err
	}

	follow := producer.Spec{
		RecipientID:   opts.Recipient,
		SenderID:      opts.Sender,
		Type:          notification.TypeFollow,
		Title:         "New follower",
		Message:       opts.Sender + " started following you",
		RelatedUserID: opts.Sender,
		CreatedAt:     time.Now().UTC(),
		Nonce:         "demo00001",
	}

	p.line("== %s follows %s twice with the same key", opts.Sender, opts.Recipient)
	for i := 0; i < 2; i++ {
		res, err := uc.Create(ctx, follow)
		if err != nil {
			return err
		}
		p.line("  create: created=%t duplicate=%t", res.Created, res.Duplicate)
	}

	p.line("== %s follows themself", opts.Recipient)
	self := follow
	self.SenderID, self.RelatedUserID, self.Nonce = opts.Recipient, opts.Recipient, "demo00002"
	res, err := uc.Create(ctx, self)
	if err != nil {
		return err
	}
	p.line("  create: suppressed=%t reason=%s", res.Suppressed, res.Reason)

	p.line("== relay outbox")
	if _, err := relay.Tick(ctx); err != nil {
		return err
	}
	if err := waitFor(ctx, func() bool { return len(s.Notifications()) == 1 }); err != nil {
		return err
	}

	p.line("== redeliver the same event")
	latest := s.Notifications()[0]
	if err := hub.PublishNotification(ctx, latest); err != nil {
		return err
	}
	p.line("  feed size: %d", len(s.Notifications()))

	p.line("== push channel keeps failing")
	boom := errors.New("socket closed")
	hub.FailSubscribe(func(channel.Subscription) error { return boom })
	hub.Emit(opts.Recipient, channel.StatusChannelError, boom)
	if err := waitFor(ctx, s.IsDegraded); err != nil {
		return err
	}

	p.line("== a comment arrives while degraded")
	comment := follow
	comment.Type, comment.Title, comment.Message = notification.TypeComment, "New comment", "nice note"
	comment.RelatedUserID, comment.RelatedNoteID = "", "note-1"
	comment.CreatedAt, comment.Nonce = time.Now().UTC(), "demo00003"
	if _, err := uc.Create(ctx, comment); err != nil {
		return err
	}
	if _, err := relay.Tick(ctx); err != nil {
		return err
	}
	if err := waitFor(ctx, func() bool { return len(s.Notifications()) == 2 }); err != nil {
		return err
	}
	p.line("  picked up by polling")

	p.line("== reconnect")
	hub.FailSubscribe(nil)
	if err := s.Reconnect(ctx); err != nil {
		return err
	}

	p.line("== mark newest as read")
	if err := s.MarkAsRead(ctx, s.Notifications()[0].ID); err != nil {
		return err
	}
	return p.notifications(s.Notifications(), s.UnreadCount())
}

func waitFor(ctx context.Context, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("demo: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil
}
