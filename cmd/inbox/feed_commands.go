package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/services/inbox/feed"
)

type feedFunc func(ctx context.Context, s *feed.Synchronizer, p printer) error

// runFeed binds a one-shot synchronizer for --user against the record store.
func runFeed(cmd *cobra.Command, opts *rootOptions, fn feedFunc) error {
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

	s := feed.NewSynchronizer(repo, nil, cfg.Session.PageSize, logger)
	s.Bind(opts.User)
	return fn(ctx, s, printer{w: cmd.OutOrStdout(), format: opts.Format})
}

// locate pages through the feed until id is loaded or the feed runs out.
func locate(ctx context.Context, s *feed.Synchronizer, id string) error {
	if err := s.LoadNotifications(ctx, true); err != nil {
		return err
	}
	for {
		for _, n := range s.Notifications() {
			if n.ID == id {
				return nil
			}
		}
		if !s.HasMore() {
			return notification.ErrNotFound
		}
		if err := s.LoadNotifications(ctx, false); err != nil {
			return err
		}
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the newest notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := s.LoadNotifications(ctx, true); err != nil {
					return err
				}
				for i := 1; i < pages && s.HasMore(); i++ {
					if err := s.LoadNotifications(ctx, false); err != nil {
						return err
					}
				}
				if err := s.LoadUnreadCount(ctx); err != nil {
					return err
				}
				return p.notifications(s.Notifications(), s.UnreadCount())
			})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func newUnreadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Print the unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := s.LoadUnreadCount(ctx); err != nil {
					return err
				}
				return p.count(s.UnreadCount())
			})
		},
	}
}

func newReadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := locate(ctx, s, args[0]); err != nil {
					return err
				}
				if err := s.MarkAsRead(ctx, args[0]); err != nil {
					return err
				}
				p.line("marked %s as read", args[0])
				return nil
			})
		},
	}
}

func newReadAllCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := s.LoadNotifications(ctx, true); err != nil {
					return err
				}
				if err := s.MarkAllAsRead(ctx); err != nil {
					return err
				}
				p.line("inbox of %s marked as read", s.Owner())
				return nil
			})
		},
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <notification-id>",
		Short: "Delete one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := locate(ctx, s, args[0]); err != nil {
					return err
				}
				if err := s.DeleteNotification(ctx, args[0]); err != nil {
					return err
				}
				p.line("deleted %s", args[0])
				return nil
			})
		},
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, opts, func(ctx context.Context, s *feed.Synchronizer, p printer) error {
				if err := s.DeleteAllNotifications(ctx); err != nil {
					return err
				}
				p.line("inbox of %s cleared", s.Owner())
				return nil
			})
		},
	}
}
