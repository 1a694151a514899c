package model

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&Job{},
		&Action{},
		&HistoryEntry{},
		&KV{},
	}
}
