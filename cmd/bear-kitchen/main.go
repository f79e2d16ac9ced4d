package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bear-kitchen/internal/app"
	"bear-kitchen/internal/config"
	"bear-kitchen/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	application *app.App
	log         = zerolog.Nop()

	rootCmd = &cobra.Command{
		Use:           "bear-kitchen",
		Short:         "Local recipe box with week plans, backups and cloud sync",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return err
			}
			log = logger.New("bear-kitchen", logger.FromConfig(cfg))

			application, err = app.Bootstrap(cmd.Context(), cfg, log)
			return err
		},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		if cerr := application.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close")
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, app.UserMessage(err))
		stop()
		os.Exit(1)
	}
}
