package domain

import (
	"encoding/json"
	"time"
)

// AuditAction is what a reconciliation audit record describes.
type AuditAction string

const (
	AuditActionDiscrepancy AuditAction = "balance.discrepancy"
	AuditActionCorrection  AuditAction = "balance.correction"
	AuditActionConflict    AuditAction = "balance.conflict"
)

// AuditRecord is the before/after trail of one reconciliation finding.
type AuditRecord struct {
	CreatedAt   time.Time
	ID          string
	EntityID    string
	RunID       string
	Action      AuditAction
	Reason      string
	Before      AccountBalanceSnapshot
	After       AccountBalanceSnapshot
	Discrepancy Discrepancy
}

// JSON is free-form audit state.
type JSON map[string]any

// MarshalState converts a value to JSON for audit storage
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit records
type AuditFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	EntityID  string
	RunID     string
	Action    AuditAction
	Limit     int
	Offset    int
}
