package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/services/inbox"
	"github.com/NordCoder/Notewire/internal/services/inbox/realtime"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream new notifications until interrupted",
		Long: `Opens an inbox session for --user: loads the first page, subscribes
to the configured push transport and prints every new notification.
When the push channel degrades the session falls back to polling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireUser(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			repo, closeRepo, err := openRepo(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeRepo()

			ch, closeCh, err := openChannel(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeCh()

			p := printer{w: cmd.OutOrStdout(), format: opts.Format}
			s := inbox.NewSession(inbox.Deps{
				Repo:      repo,
				Channel:   ch,
				Scheduler: realtime.SystemScheduler{},
				Logger:    logger,
			}, cfg.Session.AsSessionConfig())
			defer s.Close()

			s.OnChannelState(func(prev, next realtime.State) {
				logger.Info("push channel", zap.Stringer("from", prev), zap.Stringer("to", next))
			})
			sub := s.OnNewNotification(func(n notification.Notification) {
				if err := p.notification(n); err != nil {
					logger.Warn("print notification", zap.Error(err))
				}
			})
			defer sub.Unsubscribe()

			if err := s.Initialize(ctx, opts.User); err != nil {
				return err
			}
			if err := p.notifications(s.Notifications(), s.UnreadCount()); err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}
}
