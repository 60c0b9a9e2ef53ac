package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db pgxQuerier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: pool}
}

// Find returns completed transactions matching filter, ordered by created_at, id.
// Codes, prefixes and categories are alternatives, as in domain.TransactionFilter.Matches.
func (r *TransactionRepository) Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query, args := buildTransactionQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var (
			t                     domain.Transaction
			status                string
			debit, credit, refAmt string
			tags                  []byte
		)
		if err := rows.Scan(
			&t.ID,
			&t.AccountCode,
			&t.AccountName,
			&t.AccountCategory,
			&t.Description,
			&status,
			&debit,
			&credit,
			&refAmt,
			&tags,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Status = domain.TransactionStatus(status)

		if t.DebitAmount, err = parseDecimal("debit_amount", debit); err != nil {
			return nil, err
		}
		if t.CreditAmount, err = parseDecimal("credit_amount", credit); err != nil {
			return nil, err
		}
		if t.ReferenceAmount, err = parseDecimal("reference_amount", refAmt); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &t.Tags); err != nil {
				return nil, fmt.Errorf("parse tags of %s: %w", t.ID, err)
			}
		}

		txs = append(txs, &t)
	}

	return txs, rows.Err()
}

func buildTransactionQuery(filter domain.TransactionFilter) (string, []any) {
	var p placeholders

	where := []string{
		"status = " + p.add(string(domain.TransactionCompleted)),
		"created_at >= " + p.add(filter.Period.Start),
		"created_at <= " + p.add(filter.Period.End),
	}

	switch filter.Side {
	case domain.SideDebit:
		where = append(where, "debit_amount > 0")
	case domain.SideCredit:
		where = append(where, "credit_amount > 0")
	}

	var anyOf []string
	if len(filter.AccountCodes) > 0 {
		anyOf = append(anyOf, "account_code = ANY("+p.add(filter.AccountCodes)+")")
	}
	if len(filter.AccountPrefixes) > 0 {
		patterns := make([]string, len(filter.AccountPrefixes))
		for i, prefix := range filter.AccountPrefixes {
			patterns[i] = escapeLike(prefix) + "%"
		}
		anyOf = append(anyOf, "account_code LIKE ANY("+p.add(patterns)+")")
	}
	if len(filter.Categories) > 0 {
		anyOf = append(anyOf, "account_category = ANY("+p.add(filter.Categories)+")")
	}
	if len(anyOf) > 0 {
		where = append(where, "("+strings.Join(anyOf, " OR ")+")")
	}

	query := `
		SELECT id, account_code, account_name, account_category, description, status,
		       debit_amount::text, credit_amount::text, reference_amount::text, tags, created_at
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at, id`

	return query, p.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
