package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errs.Wrap(err, "write json output")
	}
	return nil
}

func writeBulkResult(w io.Writer, result remediation.BulkActionResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "action_id\tsuccess\tstatus\terror"); err != nil {
		return errs.Wrap(err, "write bulk result header")
	}
	for _, item := range result.Results {
		if _, err := fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", item.ActionID, item.Success, dash(string(item.Status)), dash(item.Error)); err != nil {
			return errs.Wrap(err, "write bulk result row")
		}
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "flush bulk result")
	}
	if _, err := fmt.Fprintf(
		w,
		"batch=%s requested=%d succeeded=%d failed=%d\n",
		result.BatchID,
		result.TotalRequested,
		result.SuccessCount,
		result.FailureCount,
	); err != nil {
		return errs.Wrap(err, "write bulk result summary")
	}
	return nil
}

func writeRollbackResults(w io.Writer, results []remediation.ActionRollbackResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "action_id\tsuccess\tprevious\trestored\tmessage"); err != nil {
		return errs.Wrap(err, "write rollback header")
	}
	for _, item := range results {
		if _, err := fmt.Fprintf(
			tw,
			"%s\t%t\t%s\t%s\t%s\n",
			item.ActionID,
			item.Success,
			valueText(item.PreviousValue),
			valueText(item.RestoredValue),
			item.Message,
		); err != nil {
			return errs.Wrap(err, "write rollback row")
		}
	}
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err, "flush rollback results")
	}
	return nil
}

func parseStatuses(raw []string) ([]domain.ActionStatus, error) {
	out := make([]domain.ActionStatus, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		status, err := domain.ParseActionStatus(item)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

func parseEventTypes(raw []string) ([]domain.EventType, error) {
	out := make([]domain.EventType, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		event, err := domain.ParseEventType(item)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

// parseTimeFlag accepts RFC3339 or a plain date; empty means unset.
func parseTimeFlag(name string, raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("--%s must be RFC3339 or YYYY-MM-DD, got %q", name, raw)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func valueText(v *string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *v)
}

func dash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
