package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// SalesOrderRepository implements usecase.SalesOrderRepository.
type SalesOrderRepository struct {
	pool pgxPool
}

// NewSalesOrderRepository creates a new SalesOrderRepository.
func NewSalesOrderRepository(pool *pgxpool.Pool) *SalesOrderRepository {
	return newSalesOrderRepository(pool)
}

func newSalesOrderRepository(pool pgxPool) *SalesOrderRepository {
	return &SalesOrderRepository{pool: pool}
}

// ListConfirmed returns confirmed orders in period with their lines. Orders and
// lines are read from one snapshot.
func (r *SalesOrderRepository) ListConfirmed(ctx context.Context, period domain.Period) ([]*domain.SalesOrder, error) {
	var orders []*domain.SalesOrder

	err := snapshotRead(ctx, r.pool, func(q pgxQuerier) error {
		var err error
		orders, err = listOrders(ctx, q, period)
		if err != nil || len(orders) == 0 {
			return err
		}
		return attachLines(ctx, q, orders)
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func listOrders(ctx context.Context, q pgxQuerier, period domain.Period) ([]*domain.SalesOrder, error) {
	rows, err := q.Query(ctx, `
		SELECT id, status, subtotal::text, tax_amount::text, tax_exempt, confirmed_at
		FROM sales_orders
		WHERE status = $1 AND confirmed_at >= $2 AND confirmed_at <= $3
		ORDER BY confirmed_at, id`,
		string(domain.SalesOrderConfirmed), period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.SalesOrder
	for rows.Next() {
		var (
			o             domain.SalesOrder
			status        string
			subtotal, tax string
		)
		if err := rows.Scan(&o.ID, &status, &subtotal, &tax, &o.TaxExempt, &o.ConfirmedAt); err != nil {
			return nil, err
		}
		o.Status = domain.SalesOrderStatus(status)

		if o.Subtotal, err = parseDecimal("subtotal", subtotal); err != nil {
			return nil, err
		}
		if o.TaxAmount, err = parseDecimal("tax_amount", tax); err != nil {
			return nil, err
		}

		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

func attachLines(ctx context.Context, q pgxQuerier, orders []*domain.SalesOrder) error {
	ids := make([]string, len(orders))
	byID := make(map[string]*domain.SalesOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, quantity::text, unit_price::text, unit_cost::text
		FROM sales_order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID          string
			line             domain.OrderLine
			qty, price, cost string
		)
		if err := rows.Scan(&orderID, &line.ProductID, &qty, &price, &cost); err != nil {
			return err
		}

		if line.Quantity, err = parseDecimal("quantity", qty); err != nil {
			return err
		}
		if line.UnitPrice, err = parseDecimal("unit_price", price); err != nil {
			return err
		}
		if line.UnitCost, err = parseDecimal("unit_cost", cost); err != nil {
			return err
		}

		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}

	return rows.Err()
}
