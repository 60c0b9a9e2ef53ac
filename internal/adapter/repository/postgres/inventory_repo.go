package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// InventoryRepository implements usecase.InventoryRepository.
type InventoryRepository struct {
	db pgxQuerier
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: pool}
}

// CurrentStock returns on-hand stock for every product with a positive quantity.
func (r *InventoryRepository) CurrentStock(ctx context.Context) ([]domain.StockItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, quantity::text, unit_cost::text
		FROM inventory_items
		WHERE quantity > 0
		ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		var (
			item      domain.StockItem
			qty, cost string
		)
		if err := rows.Scan(&item.ProductID, &qty, &cost); err != nil {
			return nil, err
		}
		if item.Quantity, err = parseDecimal("quantity", qty); err != nil {
			return nil, err
		}
		if item.UnitCost, err = parseDecimal("unit_cost", cost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
