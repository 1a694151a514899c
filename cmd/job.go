package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Remediation job progress commands",
}

var (
	jobShowCmd      = newJobShowCmd(nil)
	jobStatusCmd    = newJobStatusCmd(nil)
	jobRecomputeCmd = newJobRecomputeCmd(nil)
)

func newJobShowCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show job counters and the per-status breakdown",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			jobID, _ := cmd.Flags().GetString("id")
			asJSON, _ := cmd.Flags().GetBool("json")

			progress, err := svc.GetJobProgress(ctx, jobID)
			if err != nil {
				return errs.Wrap(err, "get job progress")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), progress)
			}
			return writeJobProgress(cmd, []remediation.JobProgress{progress})
		}),
	}
	cmd.Flags().String("id", "", "Job id")
	cmd.Flags().Bool("json", false, "Print the progress as JSON")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newJobStatusCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the job status, served from cache when warm",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			jobID, _ := cmd.Flags().GetString("id")
			status, err := svc.PeekJobStatus(ctx, jobID)
			if err != nil {
				return errs.Wrap(err, "peek job status")
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", jobID, status); err != nil {
				return errs.Wrap(err, "write job status")
			}
			return nil
		}),
	}
	cmd.Flags().String("id", "", "Job id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newJobRecomputeCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute job counters from their actions",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			jobIDs, _ := cmd.Flags().GetStringSlice("ids")
			asJSON, _ := cmd.Flags().GetBool("json")

			items, err := svc.UpdateJobsProgress(ctx, jobIDs)
			if err != nil {
				logging.Error(ctx, "recompute jobs failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "recompute jobs")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return writeJobProgress(cmd, items)
		}),
	}
	cmd.Flags().StringSlice("ids", nil, "Job ids, comma separated or repeated")
	cmd.Flags().Bool("json", false, "Print the progress as JSON")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func writeJobProgress(cmd *cobra.Command, items []remediation.JobProgress) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "job\tstatus\ttotal\tfixed\trejected\tskipped\tpending\treview\tcomplete\tcompleted_at"); err != nil {
		return errs.Wrap(err, "write job header")
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(
			w,
			"%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t%s\n",
			item.JobID,
			item.Status,
			item.TotalViolations,
			item.FixedViolations,
			item.RejectedCount,
			item.SkippedCount,
			item.Breakdown[domain.StatusPending],
			item.Breakdown[domain.StatusRequiresReview],
			item.PercentComplete,
			formatTime(item.CompletedAt),
		); err != nil {
			return errs.Wrap(err, "write job row")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush job progress")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobShowCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobRecomputeCmd)
}
