package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "github.com/NordCoder/Notewire/internal/config/inbox"
	"github.com/NordCoder/Notewire/internal/obs"
)

type rootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool
	User       string
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Notewire inbox client",
		Long:  "Reads, watches and edits one user's notification inbox.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", os.Getenv("CONFIG_PATH"), "path to inbox.yaml")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.User, "user", "u", "", "user whose inbox to open")

	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newUnreadCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newReadAllCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newSettingsCommand(opts))
	cmd.AddCommand(newDemoCommand(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := o.logger(cfg.Log.AsLoggerConfig())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// logger writes to stderr so stdout stays machine readable.
func (o *rootOptions) logger(lc obs.LogConfig) (*zap.Logger, error) {
	lc.Output = []string{"stderr"}
	if o.Verbose {
		lc.Level = "debug"
	}
	return obs.NewLogger(lc)
}

func (o *rootOptions) requireUser() error {
	if o.User == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}
