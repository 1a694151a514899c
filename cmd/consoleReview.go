package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"remedy/internal/bootstrap"
	"remedy/internal/bootstrap/logging"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
	"remedy/internal/usecase/reviewconsole"
)

var consoleReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Start the interactive action review console",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *remediation.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		jobID, _ := cmd.Flags().GetString("job")
		performedBy, _ := cmd.Flags().GetString("by")
		rawStatuses, _ := cmd.Flags().GetStringSlice("status")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		statuses, err := parseStatuses(rawStatuses)
		if err != nil {
			return err
		}

		model := reviewconsole.NewReviewModel(ctx, svc, reviewconsole.ReviewOptions{
			JobID:           jobID,
			PerformedBy:     performedBy,
			StatusFilter:    statuses,
			PageSize:        app.Config.Remediation.DefaultPageSize,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run review console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleReviewCmd)
	consoleReviewCmd.Flags().String("job", "", "Restrict the queue to one job")
	consoleReviewCmd.Flags().String("by", "", "Reviewer recorded in history")
	consoleReviewCmd.Flags().StringSlice("status", []string{"pending", "requires_review"}, "Statuses shown in the queue")
	consoleReviewCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
	_ = consoleReviewCmd.MarkFlagRequired("by")
}
