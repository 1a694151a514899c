package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

var (
	actionListCmd         = newActionListCmd(nil)
	actionShowCmd         = newActionShowCmd(nil)
	actionHistoryCmd      = newActionHistoryCmd(nil)
	actionTimelineCmd     = newActionTimelineCmd(nil)
	actionBatchHistoryCmd = newActionBatchHistoryCmd(nil)
)

func newActionListCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actions matching a filter, with a summary of the whole match",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			query, err := readActionQuery(cmd)
			if err != nil {
				return err
			}
			page, err := svc.GetActionsByFilter(ctx, query)
			if err != nil {
				logging.Error(ctx, "list actions failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "list actions")
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "id\tjob\tstatus\tfield\tmethod\tconfidence\trisk\tcreated_at"); err != nil {
				return errs.Wrap(err, "write action list header")
			}
			for _, item := range page.Actions {
				if _, err := fmt.Fprintf(
					w,
					"%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
					item.ID,
					item.JobID,
					item.Status,
					item.FieldName,
					item.FixMethod,
					item.Confidence,
					dash(string(item.RiskAssessment.Level)),
					item.CreatedAt.UTC().Format(time.RFC3339),
				); err != nil {
					return errs.Wrap(err, "write action list row")
				}
			}
			if err := w.Flush(); err != nil {
				return errs.Wrap(err, "flush action list")
			}

			summary := page.Summary
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "\ntotal=%d shown=%d\n", page.Total, len(page.Actions)); err != nil {
				return errs.Wrap(err, "write action list total")
			}
			for _, status := range domain.AllStatuses {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s=%d ", status, summary.StatusBreakdown[status]); err != nil {
					return errs.Wrap(err, "write action list breakdown")
				}
			}
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"\nconfidence avg=%.3f high=%d medium=%d low=%d\n",
				summary.Confidence.Average,
				summary.Confidence.High,
				summary.Confidence.Medium,
				summary.Confidence.Low,
			); err != nil {
				return errs.Wrap(err, "write action list confidence")
			}
			return nil
		}),
	}

	cmd.Flags().String("job", "", "Filter by job id")
	cmd.Flags().StringSlice("status", nil, "Filter by status (repeatable)")
	cmd.Flags().StringSlice("method", nil, "Filter by fix method (repeatable)")
	cmd.Flags().StringSlice("risk", nil, "Filter by risk level (repeatable)")
	cmd.Flags().Float64("min-confidence", 0, "Minimum confidence, inclusive")
	cmd.Flags().Float64("max-confidence", 1, "Maximum confidence, inclusive")
	cmd.Flags().String("from", "", "Created at or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Created at or before (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Int("limit", 0, "Page size (0 uses the configured default)")
	cmd.Flags().Int("offset", 0, "Rows to skip")
	cmd.Flags().Bool("json", false, "Print the page as JSON")
	return cmd
}

func readActionQuery(cmd *cobra.Command) (remediation.ActionQuery, error) {
	jobID, _ := cmd.Flags().GetString("job")
	rawStatuses, _ := cmd.Flags().GetStringSlice("status")
	methods, _ := cmd.Flags().GetStringSlice("method")
	rawRisks, _ := cmd.Flags().GetStringSlice("risk")
	rawFrom, _ := cmd.Flags().GetString("from")
	rawTo, _ := cmd.Flags().GetString("to")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	statuses, err := parseStatuses(rawStatuses)
	if err != nil {
		return remediation.ActionQuery{}, err
	}
	from, err := parseTimeFlag("from", rawFrom)
	if err != nil {
		return remediation.ActionQuery{}, err
	}
	to, err := parseTimeFlag("to", rawTo)
	if err != nil {
		return remediation.ActionQuery{}, err
	}

	query := remediation.ActionQuery{
		JobID:       jobID,
		Statuses:    statuses,
		FixMethods:  methods,
		CreatedFrom: from,
		CreatedTo:   to,
		Limit:       limit,
		Offset:      offset,
	}
	for _, risk := range rawRisks {
		query.RiskLevels = append(query.RiskLevels, domain.RiskLevel(risk))
	}
	if cmd.Flags().Changed("min-confidence") {
		v, _ := cmd.Flags().GetFloat64("min-confidence")
		query.MinConfidence = &v
	}
	if cmd.Flags().Changed("max-confidence") {
		v, _ := cmd.Flags().GetFloat64("max-confidence")
		query.MaxConfidence = &v
	}
	return query, nil
}

func newActionShowCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one action as JSON",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			actionID, _ := cmd.Flags().GetString("id")
			view, err := svc.GetAction(ctx, actionID)
			if err != nil {
				return errs.Wrap(err, "get action")
			}
			return writeJSON(cmd.OutOrStdout(), view)
		}),
	}
	cmd.Flags().String("id", "", "Action id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newActionHistoryCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit history of an action, newest first",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			actionID, _ := cmd.Flags().GetString("id")
			rawEvents, _ := cmd.Flags().GetStringSlice("event")
			performedBy, _ := cmd.Flags().GetString("by")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			asJSON, _ := cmd.Flags().GetBool("json")

			events, err := parseEventTypes(rawEvents)
			if err != nil {
				return err
			}
			history, err := svc.GetActionHistory(ctx, actionID, remediation.HistoryQuery{
				EventTypes:  events,
				PerformedBy: performedBy,
				Limit:       limit,
				Offset:      offset,
			})
			if err != nil {
				logging.Error(ctx, "get action history failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "get action history")
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), history)
			}
			if err := writeHistoryRecords(cmd, history.History); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "total=%d\n", history.Total); err != nil {
				return errs.Wrap(err, "write history total")
			}
			return nil
		}),
	}
	cmd.Flags().String("id", "", "Action id")
	cmd.Flags().StringSlice("event", nil, "Filter by event type (repeatable)")
	cmd.Flags().String("by", "", "Filter by performer")
	cmd.Flags().Int("limit", 0, "Page size (0 uses the configured default)")
	cmd.Flags().Int("offset", 0, "Rows to skip")
	cmd.Flags().Bool("json", false, "Print the history as JSON")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newActionTimelineCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show the status timeline of an action",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			actionID, _ := cmd.Flags().GetString("id")
			asJSON, _ := cmd.Flags().GetBool("json")

			timeline, err := svc.GetActionStatusTimeline(ctx, actionID)
			if err != nil {
				return errs.Wrap(err, "get action timeline")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), timeline)
			}

			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "action=%s current=%s\n", timeline.ActionID, timeline.CurrentStatus); err != nil {
				return errs.Wrap(err, "write timeline header")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "time\tevent\tstatus\tby\tduration_ms\treason"); err != nil {
				return errs.Wrap(err, "write timeline columns")
			}
			for _, point := range timeline.Timeline {
				reason := "-"
				if point.Reason != nil {
					reason = *point.Reason
				}
				if _, err := fmt.Fprintf(
					w,
					"%s\t%s\t%s\t%s\t%d\t%s\n",
					point.Timestamp.UTC().Format(time.RFC3339),
					point.EventType,
					point.Status,
					point.PerformedBy,
					point.DurationMs,
					reason,
				); err != nil {
					return errs.Wrap(err, "write timeline row")
				}
			}
			if err := w.Flush(); err != nil {
				return errs.Wrap(err, "flush timeline")
			}
			return nil
		}),
	}
	cmd.Flags().String("id", "", "Action id")
	cmd.Flags().Bool("json", false, "Print the timeline as JSON")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newActionBatchHistoryCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-history",
		Short: "Show every history entry written by one batch, oldest first",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			batchID, _ := cmd.Flags().GetString("batch")
			asJSON, _ := cmd.Flags().GetBool("json")

			records, err := svc.ListBatchHistory(ctx, batchID)
			if err != nil {
				return errs.Wrap(err, "list batch history")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return writeHistoryRecords(cmd, records)
		}),
	}
	cmd.Flags().String("batch", "", "Batch id")
	cmd.Flags().Bool("json", false, "Print the entries as JSON")
	_ = cmd.MarkFlagRequired("batch")
	return cmd
}

func writeHistoryRecords(cmd *cobra.Command, records []remediation.HistoryRecord) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "time\taction_id\tevent\ttransition\tby\tkind\tsource\tdescription"); err != nil {
		return errs.Wrap(err, "write history header")
	}
	for _, record := range records {
		kind := "user"
		if record.IsSystemAction {
			kind = "system"
		}
		if _, err := fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%s->%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.ActionID,
			record.EventType,
			record.OldStatus,
			record.NewStatus,
			record.PerformedBy,
			kind,
			dash(record.Source),
			record.Description,
		); err != nil {
			return errs.Wrap(err, "write history row")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush history")
	}
	return nil
}

func init() {
	actionCmd.AddCommand(actionListCmd)
	actionCmd.AddCommand(actionShowCmd)
	actionCmd.AddCommand(actionHistoryCmd)
	actionCmd.AddCommand(actionTimelineCmd)
	actionCmd.AddCommand(actionBatchHistoryCmd)
}
