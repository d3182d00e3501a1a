package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zeu5/knight-rl/benchmarks/common"
)

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "knight-rl",
		Short:         "Learn knight's tours on a rectangular board",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := common.LoadFlags(configPath)
			if err != nil && !errors.Is(err, common.ErrInvalidConfig) {
				return err
			}
			flags = loaded
			UpdateFlags(cmd)
			if err := flags.Validate(); err != nil {
				return err
			}

			level, _ := flags.SlogLevel()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		TrainCommand(),
		PlayCommand(),
		CompareCommand(),
		ExportCommand(),
	)

	return cmd
}

// interruptContext is cancelled on SIGINT or SIGTERM
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
