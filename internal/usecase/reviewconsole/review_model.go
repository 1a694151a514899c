package reviewconsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/usecase/remediation"
)

const maxShownHistory = 4
const maxAuditLines = 8

// ReviewService is the part of the remediation service the console drives.
type ReviewService interface {
	GetActionsByFilter(ctx context.Context, query remediation.ActionQuery) (remediation.ActionPage, error)
	GetJobProgress(ctx context.Context, jobID string) (remediation.JobProgress, error)
	GetActionHistory(ctx context.Context, actionID string, query remediation.HistoryQuery) (remediation.ActionHistory, error)
	BulkApplyActions(ctx context.Context, req remediation.BulkActionRequest) (remediation.BulkActionResult, error)
	BulkRejectActions(ctx context.Context, req remediation.BulkActionRequest) (remediation.BulkActionResult, error)
	BulkUpdateStatus(ctx context.Context, req remediation.UpdateStatusRequest) (remediation.BulkActionResult, error)
	RollbackAction(ctx context.Context, actionID string, req remediation.RollbackRequest) (remediation.ActionRollbackResult, error)
}

type ReviewOptions struct {
	JobID           string
	PerformedBy     string
	StatusFilter    []domain.ActionStatus
	PageSize        int
	RefreshInterval time.Duration
}

type reviewModel struct {
	ctx             context.Context
	service         ReviewService
	jobID           string
	performedBy     string
	statusFilter    []domain.ActionStatus
	pageSize        int
	refreshInterval time.Duration

	actions       []remediation.ActionView
	total         int64
	summary       remediation.ActionSummary
	progress      remediation.JobProgress
	hasProgress   bool
	selectedIndex int
	history       []remediation.HistoryRecord
	historyFor    string
	status        string
	auditLogs     []string
}

type actionsLoadedMsg struct {
	page        remediation.ActionPage
	progress    remediation.JobProgress
	hasProgress bool
	err         error
}

type historyLoadedMsg struct {
	actionID string
	records  []remediation.HistoryRecord
	err      error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action   string
	actionID string
	result   string
	err      error
}

func NewReviewModel(ctx context.Context, service ReviewService, options ReviewOptions) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	performedBy := strings.TrimSpace(options.PerformedBy)
	if performedBy == "" {
		performedBy = "reviewer"
	}

	return &reviewModel{
		ctx:             ctx,
		service:         service,
		jobID:           strings.TrimSpace(options.JobID),
		performedBy:     performedBy,
		statusFilter:    options.StatusFilter,
		pageSize:        pageSize,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *reviewModel) Init() tea.Cmd {
	return tea.Batch(m.loadActionsCmd(), m.tickCmd())
}

func (m *reviewModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadActionsCmd(), m.tickCmd())
	case actionsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.actions = msg.page.Actions
		m.total = msg.page.Total
		m.summary = msg.page.Summary
		m.progress = msg.progress
		m.hasProgress = msg.hasProgress
		if len(m.actions) == 0 {
			m.selectedIndex = 0
			m.history = nil
			m.historyFor = ""
			m.status = "queue is empty"
			return m, nil
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.selectedIndex >= len(m.actions) {
			m.selectedIndex = len(m.actions) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d of %d actions", len(m.actions), m.total)
		return m, m.loadSelectedHistoryCmd()
	case historyLoadedMsg:
		if !m.isCurrentSelection(msg.actionID) {
			return m, nil
		}
		if msg.err != nil {
			m.history = nil
			m.historyFor = ""
			m.status = "history failed: " + msg.err.Error()
			return m, nil
		}
		m.history = msg.records
		m.historyFor = msg.actionID
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.actionID, "failed", msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.actionID, msg.result, nil)
		}
		return m, m.loadActionsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadActionsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedHistoryCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.actions)-1 {
				m.selectedIndex++
				return m, m.loadSelectedHistoryCmd()
			}
			return m, nil
		case "a":
			return m, m.decideCmd("apply")
		case "r":
			return m, m.decideCmd("reject")
		case "s":
			return m, m.decideCmd("skip")
		case "v":
			return m, m.decideCmd("review")
		case "u":
			return m, m.rollbackCmd()
		}
	}
	return m, nil
}

func (m *reviewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Remediation Review"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"job=%s by=%s status=%s refresh=%s",
		firstNonEmpty(m.jobID, "all"),
		m.performedBy,
		joinStatuses(m.statusFilter),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Job"))
	builder.WriteString("\n")
	if !m.hasProgress {
		builder.WriteString(dimStyle.Render("- no job selected"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf(
			"%s [%s] fixed=%d rejected=%d skipped=%d total=%d complete=%.1f%%\n\n",
			m.progress.JobID,
			m.progress.Status,
			m.progress.FixedViolations,
			m.progress.RejectedCount,
			m.progress.SkippedCount,
			m.progress.TotalViolations,
			m.progress.PercentComplete,
		))
	}

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.actions) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.actions {
			line := fmt.Sprintf(
				"%s [%s] field=%s method=%s conf=%.2f risk=%s",
				item.ID,
				item.Status,
				item.FieldName,
				item.FixMethod,
				item.Confidence,
				firstNonEmpty(string(item.RiskAssessment.Level), "-"),
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString(dimStyle.Render(fmt.Sprintf(
			"summary: %s avg_conf=%.2f high=%d medium=%d low=%d",
			formatBreakdown(m.summary.StatusBreakdown),
			m.summary.Confidence.Average,
			m.summary.Confidence.High,
			m.summary.Confidence.Medium,
			m.summary.Confidence.Low,
		)))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	selected, ok := m.selectedAction()
	if !ok {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("Action: %s\n", selected.ID))
		builder.WriteString(fmt.Sprintf("Record: %s field=%s\n", selected.RecordID, selected.FieldName))
		builder.WriteString(fmt.Sprintf("Original: %s\n", valueOrDash(selected.OriginalValue)))
		builder.WriteString(fmt.Sprintf("Suggested: %s\n", valueOrDash(selected.SuggestedValue)))
		builder.WriteString(fmt.Sprintf("Applied: %s\n", valueOrDash(selected.AppliedValue)))
		builder.WriteString(fmt.Sprintf("Reversible: %t\n", selected.Reversible))
		builder.WriteString("\nRecent History:\n")
		if m.historyFor != selected.ID || len(m.history) == 0 {
			builder.WriteString("- none\n")
		} else {
			shown := m.history
			if len(shown) > maxShownHistory {
				shown = shown[:maxShownHistory]
			}
			for _, record := range shown {
				builder.WriteString(fmt.Sprintf("- %s %s %s\n", record.CreatedAt.UTC().Format(time.RFC3339), record.PerformedBy, record.Description))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Actions"))
	builder.WriteString("\n")
	builder.WriteString("j/k move  a apply  r reject  s skip  v review  u rollback  g refresh  q quit")
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions yet"))
		builder.WriteString("\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line + "\n")
		}
	}
	return builder.String()
}

func (m *reviewModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *reviewModel) loadActionsCmd() tea.Cmd {
	query := remediation.ActionQuery{
		JobID:    m.jobID,
		Statuses: m.statusFilter,
		Limit:    m.pageSize,
	}
	jobID := m.jobID
	return func() tea.Msg {
		page, err := m.service.GetActionsByFilter(m.ctx, query)
		if err != nil {
			return actionsLoadedMsg{err: err}
		}
		if jobID == "" {
			return actionsLoadedMsg{page: page}
		}
		progress, err := m.service.GetJobProgress(m.ctx, jobID)
		if err != nil {
			return actionsLoadedMsg{err: err}
		}
		return actionsLoadedMsg{page: page, progress: progress, hasProgress: true}
	}
}

func (m *reviewModel) loadSelectedHistoryCmd() tea.Cmd {
	selected, ok := m.selectedAction()
	if !ok {
		return nil
	}
	actionID := selected.ID
	return func() tea.Msg {
		history, err := m.service.GetActionHistory(m.ctx, actionID, remediation.HistoryQuery{Limit: maxShownHistory})
		if err != nil {
			return historyLoadedMsg{actionID: actionID, err: err}
		}
		return historyLoadedMsg{actionID: actionID, records: history.History}
	}
}

func (m *reviewModel) decideCmd(action string) tea.Cmd {
	selected, ok := m.selectedAction()
	if !ok {
		m.status = "no action selected"
		return nil
	}
	m.status = action + " in progress..."
	actionID := selected.ID
	request := remediation.BulkActionRequest{
		ActionIDs:   []string{actionID},
		PerformedBy: m.performedBy,
		Reason:      "console " + action,
	}
	return func() tea.Msg {
		var (
			result remediation.BulkActionResult
			err    error
		)
		switch action {
		case "apply":
			result, err = m.service.BulkApplyActions(m.ctx, request)
		case "reject":
			result, err = m.service.BulkRejectActions(m.ctx, request)
		case "skip", "review":
			target := domain.StatusSkipped
			if action == "review" {
				target = domain.StatusRequiresReview
			}
			result, err = m.service.BulkUpdateStatus(m.ctx, remediation.UpdateStatusRequest{
				ActionIDs:   request.ActionIDs,
				Status:      target,
				PerformedBy: request.PerformedBy,
				Reason:      request.Reason,
			})
		default:
			err = fmt.Errorf("unknown console action %q", action)
		}
		if err != nil {
			return actionDoneMsg{action: action, actionID: actionID, err: err}
		}
		return singleOutcome(action, actionID, result)
	}
}

func (m *reviewModel) rollbackCmd() tea.Cmd {
	selected, ok := m.selectedAction()
	if !ok {
		m.status = "no action selected"
		return nil
	}
	m.status = "rollback in progress..."
	actionID := selected.ID
	return func() tea.Msg {
		result, err := m.service.RollbackAction(m.ctx, actionID, remediation.RollbackRequest{
			PerformedBy: m.performedBy,
			Reason:      "console rollback",
		})
		if err != nil {
			return actionDoneMsg{action: "rollback", actionID: actionID, err: err}
		}
		return actionDoneMsg{action: "rollback", actionID: actionID, result: "restored " + valueOrDash(result.RestoredValue)}
	}
}

func singleOutcome(action string, actionID string, result remediation.BulkActionResult) actionDoneMsg {
	if len(result.Results) == 0 {
		return actionDoneMsg{action: action, actionID: actionID, err: errors.New("empty result")}
	}
	item := result.Results[0]
	if !item.Success {
		return actionDoneMsg{action: action, actionID: actionID, err: errors.New(item.Error)}
	}
	return actionDoneMsg{action: action, actionID: actionID, result: "status:" + string(item.Status) + " batch=" + result.BatchID}
}

func (m *reviewModel) selectedAction() (remediation.ActionView, bool) {
	if len(m.actions) == 0 {
		return remediation.ActionView{}, false
	}
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.actions) {
		return remediation.ActionView{}, false
	}
	return m.actions[m.selectedIndex], true
}

func (m *reviewModel) isCurrentSelection(actionID string) bool {
	selected, ok := m.selectedAction()
	if !ok {
		return false
	}
	return selected.ID == strings.TrimSpace(actionID)
}

func (m *reviewModel) appendAuditLog(action string, actionID string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s by=%s action_id=%s action=%s result=%s", timestamp, m.performedBy, actionID, action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "review console action",
		slog.String("time", timestamp),
		slog.String("performed_by", m.performedBy),
		slog.String("action_id", actionID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

func formatBreakdown(counts domain.StatusCounts) string {
	parts := make([]string, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		if counts[status] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func joinStatuses(statuses []domain.ActionStatus) string {
	if len(statuses) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, string(status))
	}
	return strings.Join(parts, ",")
}

func valueOrDash(value *string) string {
	if value == nil {
		return "-"
	}
	if strings.TrimSpace(*value) == "" {
		return `""`
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}
