package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

func newSendCommand(opts *rootOptions) *cobra.Command {
	var spec producer.Spec
	var typ, priority string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Create a notification through the producer API",
		Long: `Sends one notification from --user to --to.

Example:
  inbox send -u alice --to bob --type follow --title "New follower"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			spec.SenderID = opts.User
			spec.Type = notification.Type(typ)
			spec.Priority = notification.Priority(priority)

			res, err := producer.NewClient(cfg.Producer).Create(cmd.Context(), spec)
			if err != nil {
				return err
			}
			p := printer{w: cmd.OutOrStdout(), format: opts.Format}
			switch {
			case res.Suppressed:
				p.line("suppressed: %s", res.Reason)
			case res.Duplicate:
				p.line("duplicate of %s", res.Notification.ID)
			default:
				p.line("created %s", res.Notification.ID)
			}
			if opts.Format == "json" {
				return p.json(res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.RecipientID, "to", "", "recipient user id")
	cmd.Flags().StringVar(&typ, "type", string(notification.TypeSystem), "notification type")
	cmd.Flags().StringVar(&priority, "priority", "", "low|normal|high|urgent")
	cmd.Flags().StringVar(&spec.Title, "title", "", "title")
	cmd.Flags().StringVar(&spec.Message, "message", "", "message body")
	cmd.Flags().StringVar(&spec.RelatedNoteID, "note", "", "related note id")
	cmd.Flags().StringVar(&spec.RelatedUserID, "related-user", "", "related user id")
	cmd.Flags().StringVar(&spec.Nonce, "nonce", "", "idempotency nonce; random when empty")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSettingsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings [type=on|off ...]",
		Short: "Show or change which notification types --user receives",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireUser(); err != nil {
				return err
			}
			patch, err := parsePatch(args)
			if err != nil {
				return err
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cl := producer.NewClient(cfg.Producer)
			var st *settings.Settings
			if len(patch) == 0 {
				st, err = cl.Settings(cmd.Context(), opts.User)
			} else {
				st, err = cl.UpdateSettings(cmd.Context(), opts.User, patch)
			}
			if err != nil {
				return err
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.Format}
			if opts.Format == "json" {
				return p.json(st)
			}
			for _, t := range notification.Types {
				p.line("%-8s %s", t, onOff(st.Allows(t)))
			}
			return nil
		},
	}
	return cmd
}

func parsePatch(args []string) (settings.Patch, error) {
	patch := settings.Patch{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, &notification.ValidationError{Field: a, Reason: "want type=on|off"}
		}
		t := notification.Type(k)
		if !t.Valid() {
			return nil, &notification.ValidationError{Field: k, Reason: "unknown notification type"}
		}
		switch v {
		case "on":
			patch[t] = true
		case "off":
			patch[t] = false
		default:
			on, err := strconv.ParseBool(v)
			if err != nil {
				return nil, &notification.ValidationError{Field: k, Reason: "want on or off"}
			}
			patch[t] = on
		}
	}
	return patch, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
