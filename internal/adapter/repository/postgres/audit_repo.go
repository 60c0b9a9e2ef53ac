package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// AuditRepository implements audit record persistence.
type AuditRepository struct {
	db pgxQuerier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

// Create inserts a new audit record, assigning an ID if it has none.
func (r *AuditRepository) Create(ctx context.Context, record *domain.AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	before, err := json.Marshal(record.Before)
	if err != nil {
		return err
	}
	after, err := json.Marshal(record.After)
	if err != nil {
		return err
	}
	discrepancy, err := json.Marshal(record.Discrepancy)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_records (
			id, entity_id, run_id, action, reason, before, after, discrepancy, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID,
		record.EntityID,
		record.RunID,
		string(record.Action),
		record.Reason,
		before,
		after,
		discrepancy,
		record.CreatedAt,
	)

	return err
}

// List retrieves audit records with filtering, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	var (
		p     placeholders
		where []string
	)

	if filter.EntityID != "" {
		where = append(where, "entity_id = "+p.add(filter.EntityID))
	}
	if filter.RunID != "" {
		where = append(where, "run_id = "+p.add(filter.RunID))
	}
	if filter.Action != "" {
		where = append(where, "action = "+p.add(string(filter.Action)))
	}
	if filter.StartDate != nil {
		where = append(where, "created_at >= "+p.add(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "created_at <= "+p.add(*filter.EndDate))
	}

	query := `
		SELECT id, entity_id, run_id, action, reason, before, after, discrepancy, created_at
		FROM audit_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ` + p.add(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + p.add(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var (
			rec                        domain.AuditRecord
			action                     string
			before, after, discrepancy []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.EntityID,
			&rec.RunID,
			&action,
			&rec.Reason,
			&before,
			&after,
			&discrepancy,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Action = domain.AuditAction(action)

		if err := json.Unmarshal(before, &rec.Before); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(after, &rec.After); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(discrepancy, &rec.Discrepancy); err != nil {
			return nil, err
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}
