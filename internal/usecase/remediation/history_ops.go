package remediation

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "remedy/internal/domain/remediation"
	"remedy/internal/ports"
)

type HistoryQuery struct {
	EventTypes  []domain.EventType
	PerformedBy string
	Limit       int
	Offset      int
}

// HistoryRecord is a stored history entry plus the fields derived on read.
type HistoryRecord struct {
	ID             string                 `json:"id"`
	ActionID       string                 `json:"actionId"`
	EventType      domain.EventType       `json:"eventType"`
	OldStatus      domain.ActionStatus    `json:"oldStatus"`
	NewStatus      domain.ActionStatus    `json:"newStatus"`
	OldValue       *string                `json:"oldValue,omitempty"`
	NewValue       *string                `json:"newValue,omitempty"`
	PerformedBy    string                 `json:"performedBy"`
	Reason         *string                `json:"reason,omitempty"`
	Metadata       domain.HistoryMetadata `json:"metadata"`
	CreatedAt      time.Time              `json:"createdAt"`
	Description    string                 `json:"description"`
	IsUserAction   bool                   `json:"isUserAction"`
	IsSystemAction bool                   `json:"isSystemAction"`
	// DurationMs is the time since the previous event of the same action, or
	// since the action was created for its first event.
	DurationMs *int64 `json:"durationMs,omitempty"`
	Source     string `json:"source"`
}

type ActionHistory struct {
	History []HistoryRecord `json:"history"`
	Total   int64           `json:"total"`
}

type TimelinePoint struct {
	Status      domain.ActionStatus `json:"status"`
	Timestamp   time.Time           `json:"timestamp"`
	PerformedBy string              `json:"performedBy"`
	EventType   string              `json:"eventType"`
	DurationMs  int64               `json:"durationMs"`
	Reason      *string             `json:"reason,omitempty"`
}

type ActionTimeline struct {
	ActionID      string              `json:"actionId"`
	CurrentStatus domain.ActionStatus `json:"currentStatus"`
	Timeline      []TimelinePoint     `json:"timeline"`
}

// TimelineCreated is the event name of the synthetic first timeline point.
const TimelineCreated = "created"

// GetActionHistory returns one page of an action's history, newest first.
func (s *Service) GetActionHistory(ctx context.Context, actionID string, query HistoryQuery) (ActionHistory, error) {
	if err := s.checkRead(ctx); err != nil {
		return ActionHistory{}, err
	}
	id := strings.TrimSpace(actionID)
	action, err := s.stores.Actions.GetAction(ctx, id)
	if err != nil {
		return ActionHistory{}, err
	}

	chronological, err := s.fullHistory(ctx, id)
	if err != nil {
		return ActionHistory{}, err
	}
	durations := make(map[string]int64, len(chronological))
	previous := action.CreatedAt
	for _, entry := range chronological {
		durations[entry.ID] = entry.CreatedAt.Sub(previous).Milliseconds()
		previous = entry.CreatedAt
	}

	page, total, err := s.stores.History.ListHistory(ctx, ports.HistoryFilter{
		ActionID:    id,
		EventTypes:  query.EventTypes,
		PerformedBy: strings.TrimSpace(query.PerformedBy),
		Limit:       s.pageSize(query.Limit),
		Offset:      max(query.Offset, 0),
	})
	if err != nil {
		return ActionHistory{}, err
	}

	out := ActionHistory{History: make([]HistoryRecord, 0, len(page)), Total: total}
	for _, entry := range page {
		record := s.enrich(entry)
		if d, ok := durations[entry.ID]; ok {
			record.DurationMs = &d
		}
		out.History = append(out.History, record)
	}
	return out, nil
}

// GetActionStatusTimeline rebuilds how an action reached its current status.
func (s *Service) GetActionStatusTimeline(ctx context.Context, actionID string) (ActionTimeline, error) {
	if err := s.checkRead(ctx); err != nil {
		return ActionTimeline{}, err
	}
	id := strings.TrimSpace(actionID)
	action, err := s.stores.Actions.GetAction(ctx, id)
	if err != nil {
		return ActionTimeline{}, err
	}

	entries, err := s.fullHistory(ctx, id)
	if err != nil {
		return ActionTimeline{}, err
	}

	initial := action.Status
	if len(entries) > 0 {
		initial = entries[0].OldStatus
	}

	timeline := make([]TimelinePoint, 0, len(entries)+1)
	timeline = append(timeline, TimelinePoint{
		Status:      initial,
		Timestamp:   action.CreatedAt,
		PerformedBy: domain.SourceSystem,
		EventType:   TimelineCreated,
	})
	previous := action.CreatedAt
	for _, entry := range entries {
		timeline = append(timeline, TimelinePoint{
			Status:      entry.NewStatus,
			Timestamp:   entry.CreatedAt,
			PerformedBy: entry.PerformedBy,
			EventType:   string(entry.EventType),
			DurationMs:  entry.CreatedAt.Sub(previous).Milliseconds(),
			Reason:      entry.Reason,
		})
		previous = entry.CreatedAt
	}

	return ActionTimeline{
		ActionID:      action.ID,
		CurrentStatus: action.Status,
		Timeline:      timeline,
	}, nil
}

// ListBatchHistory returns every history entry stamped with batchID, oldest first.
func (s *Service) ListBatchHistory(ctx context.Context, batchID string) ([]HistoryRecord, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(batchID)
	if id == "" {
		return nil, errors.New("batch id is required")
	}

	entries, _, err := s.stores.History.ListHistory(ctx, ports.HistoryFilter{BatchID: id, Ascending: true})
	if err != nil {
		return nil, err
	}
	out := make([]HistoryRecord, 0, len(entries))
	for _, entry := range entries {
		out = append(out, s.enrich(entry))
	}
	return out, nil
}

func (s *Service) fullHistory(ctx context.Context, actionID string) ([]domain.HistoryEntry, error) {
	entries, _, err := s.stores.History.ListHistory(ctx, ports.HistoryFilter{ActionID: actionID, Ascending: true})
	return entries, err
}

func (s *Service) enrich(entry domain.HistoryEntry) HistoryRecord {
	system := domain.IsSystemActor(entry.PerformedBy, entry.Metadata.Source, s.opts.SystemActors)
	return HistoryRecord{
		ID:             entry.ID,
		ActionID:       entry.ActionID,
		EventType:      entry.EventType,
		OldStatus:      entry.OldStatus,
		NewStatus:      entry.NewStatus,
		OldValue:       entry.OldValue,
		NewValue:       entry.NewValue,
		PerformedBy:    entry.PerformedBy,
		Reason:         entry.Reason,
		Metadata:       entry.Metadata,
		CreatedAt:      entry.CreatedAt,
		Description:    domain.Describe(entry),
		IsUserAction:   !system,
		IsSystemAction: system,
		Source:         entry.Metadata.Source,
	}
}
