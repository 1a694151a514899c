package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Review, decide and roll back remediation actions",
}

var (
	actionApplyCmd     = newActionApplyCmd(nil)
	actionRejectCmd    = newActionRejectCmd(nil)
	actionSetStatusCmd = newActionSetStatusCmd(nil)
	actionRollbackCmd  = newActionRollbackCmd(nil)
)

type bulkDecision func(svc *remediation.Service, ctx context.Context, req remediation.BulkActionRequest) (remediation.BulkActionResult, error)

func newActionApplyCmd(svc *remediation.Service) *cobra.Command {
	return newBulkDecisionCmd(svc, "apply", "Apply the suggested value of each action", (*remediation.Service).BulkApplyActions)
}

func newActionRejectCmd(svc *remediation.Service) *cobra.Command {
	return newBulkDecisionCmd(svc, "reject", "Reject each action", (*remediation.Service).BulkRejectActions)
}

func newBulkDecisionCmd(svc *remediation.Service, use string, short string, decide bulkDecision) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			req := readBulkRequest(cmd)
			result, err := decide(svc, ctx, req)
			if err != nil {
				logging.Error(ctx, "bulk "+use+" failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrapf(err, "bulk %s", use)
			}
			return printBulkResult(cmd, result)
		}),
	}
	addBulkFlags(cmd)
	return cmd
}

func newActionSetStatusCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status",
		Short: "Move each action to a target status",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			rawStatus, _ := cmd.Flags().GetString("status")
			status, err := domain.ParseActionStatus(rawStatus)
			if err != nil {
				return err
			}

			req := readBulkRequest(cmd)
			result, err := svc.BulkUpdateStatus(ctx, remediation.UpdateStatusRequest{
				ActionIDs:   req.ActionIDs,
				Status:      status,
				PerformedBy: req.PerformedBy,
				Reason:      req.Reason,
				BatchID:     req.BatchID,
			})
			if err != nil {
				logging.Error(ctx, "bulk status update failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "bulk update status")
			}
			return printBulkResult(cmd, result)
		}),
	}
	addBulkFlags(cmd)
	cmd.Flags().String("status", "", "Target status (pending|requires_review|applied|rejected|skipped)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newActionRollbackCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert applied, reversible actions to pending",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			req := readBulkRequest(cmd)
			bulk, _ := cmd.Flags().GetBool("bulk")
			asJSON, _ := cmd.Flags().GetBool("json")

			if len(req.ActionIDs) == 1 && !bulk {
				result, err := svc.RollbackAction(ctx, req.ActionIDs[0], remediation.RollbackRequest{
					PerformedBy: req.PerformedBy,
					Reason:      req.Reason,
				})
				if err != nil {
					logging.Error(ctx, "rollback failed", slog.Any("err", errs.Loggable(err)))
					return errs.Wrap(err, "rollback action")
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				return writeRollbackResults(cmd.OutOrStdout(), []remediation.ActionRollbackResult{result})
			}

			result, err := svc.BulkRollbackActions(ctx, remediation.BulkRollbackRequest{
				ActionIDs:   req.ActionIDs,
				PerformedBy: req.PerformedBy,
				Reason:      req.Reason,
				BatchID:     req.BatchID,
			})
			if err != nil {
				logging.Error(ctx, "bulk rollback failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "bulk rollback")
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if err := writeRollbackResults(cmd.OutOrStdout(), result.Results); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"batch=%s requested=%d succeeded=%d failed=%d\n",
				result.Summary.BatchID,
				result.Summary.TotalRequested,
				result.Summary.SuccessCount,
				result.Summary.FailureCount,
			); err != nil {
				return errs.Wrap(err, "write rollback summary")
			}
			return nil
		}),
	}
	addBulkFlags(cmd)
	cmd.Flags().Bool("bulk", false, "Use per-item bulk semantics even for a single id")
	return cmd
}

func addBulkFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("ids", nil, "Action ids, comma separated or repeated")
	cmd.Flags().String("by", "", "Who performs the operation")
	cmd.Flags().String("reason", "", "Optional reason recorded in history")
	cmd.Flags().String("batch", "", "Batch id (generated when empty)")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("ids")
	_ = cmd.MarkFlagRequired("by")
}

func readBulkRequest(cmd *cobra.Command) remediation.BulkActionRequest {
	ids, _ := cmd.Flags().GetStringSlice("ids")
	performedBy, _ := cmd.Flags().GetString("by")
	reason, _ := cmd.Flags().GetString("reason")
	batchID, _ := cmd.Flags().GetString("batch")
	return remediation.BulkActionRequest{
		ActionIDs:   ids,
		PerformedBy: performedBy,
		Reason:      reason,
		BatchID:     batchID,
	}
}

func printBulkResult(cmd *cobra.Command, result remediation.BulkActionResult) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeBulkResult(cmd.OutOrStdout(), result)
}

func init() {
	rootCmd.AddCommand(actionCmd)
	actionCmd.AddCommand(actionApplyCmd)
	actionCmd.AddCommand(actionRejectCmd)
	actionCmd.AddCommand(actionSetStatusCmd)
	actionCmd.AddCommand(actionRollbackCmd)
}
