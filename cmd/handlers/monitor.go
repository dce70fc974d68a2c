package handlers

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewMonitorCmd creates the keyword monitor command group.
func NewMonitorCmd() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run or trigger the keyword monitor",
	}
	monitorCmd.AddCommand(newMonitorRunCmd())
	monitorCmd.AddCommand(newMonitorCheckCmd())
	return monitorCmd
}

func newMonitorRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = app.Monitor.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newMonitorCheckCmd() *cobra.Command {
	var groupID int64

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Run one keyword check pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Monitor.CheckNow(cmd.Context(), groupID)
			if err != nil {
				return err
			}
			fmt.Printf("Checked %d keywords: %d new articles, %d new alerts\n",
				result.KeywordsChecked, result.NewArticles, result.NewAlerts)
			return nil
		},
	}

	checkCmd.Flags().Int64Var(&groupID, "group", 0, "restrict the check to one keyword group")
	return checkCmd
}
