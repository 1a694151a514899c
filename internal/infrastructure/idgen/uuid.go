package idgen

import (
	"github.com/google/uuid"

	"remedy/internal/ports"
)

// UUIDGenerator issues time-ordered UUIDv7 strings so that ids sort by creation.
type UUIDGenerator struct{}

var _ ports.IDGenerator = UUIDGenerator{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
