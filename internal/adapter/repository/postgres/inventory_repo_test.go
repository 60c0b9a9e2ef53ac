package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestInventoryRepositoryCurrentStock(t *testing.T) {
	pool := newMockPool(t)
	repo := &InventoryRepository{db: pool}

	pool.ExpectQuery("FROM inventory_items").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity", "unit_cost"}).
			AddRow("p-1", "10", "12.5").
			AddRow("p-2", "3", "100"))

	items, err := repo.CurrentStock(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	assertDecimal(t, "p-1 value", items[0].Value(), "125")
	assertExpectations(t, pool)
}
