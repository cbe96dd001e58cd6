package types

import "time"

// Entity is the base type for ledger records with timestamps.
// Timestamps are milliseconds as reported by the ledger's clock, not the
// wall clock, so tests can drive them deterministically.
type Entity struct {
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewEntity creates an Entity stamped at now.
func NewEntity(now int64) Entity {
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (e *Entity) Touch(now int64) {
	e.UpdatedAt = now
}

// Age returns how long before now the entity was created.
func (e Entity) Age(now int64) time.Duration {
	return time.Duration(now-e.CreatedAt) * time.Millisecond
}

// IsStale returns true if the entity hasn't been updated within d of now.
func (e Entity) IsStale(now int64, d time.Duration) bool {
	return time.Duration(now-e.UpdatedAt)*time.Millisecond > d
}
