package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertOrder stores a new order with its line items in one transaction.
func (r *Repository) InsertOrder(ctx context.Context, order Order) (*Order, error) {
	meta, err := toJSON(order.Metadata)
	if err != nil {
		return nil, err
	}

	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		const q = `
INSERT INTO orders (order_ref, phone, customer_name, customer_address, customer_pincode, status, subtotal, gst_amount, total_amount, expires_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at, updated_at;
`
		row := tx.QueryRow(ctx, q,
			order.OrderRef,
			order.Phone,
			order.CustomerName,
			order.CustomerAddress,
			order.CustomerPincode,
			order.Status,
			order.Subtotal,
			order.GSTAmount,
			order.TotalAmount,
			order.ExpiresAt,
			meta,
		)
		if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		const itemQ = `
INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, line_total, size, color)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;
`
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRow(ctx, itemQ,
				order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.LineTotal, item.Size, item.Color,
			).Scan(&item.ID); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByRef retrieves an order and its items by reference.
func (r *Repository) GetOrderByRef(ctx context.Context, ref string) (*Order, error) {
	const q = `
SELECT id, order_ref, phone, customer_name, customer_address, customer_pincode, status, subtotal, gst_amount, total_amount, payment_id, expires_at, metadata, created_at, updated_at
FROM orders
WHERE order_ref = $1
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, q, ref)
	var o Order
	var meta []byte
	if err := row.Scan(&o.ID, &o.OrderRef, &o.Phone, &o.CustomerName, &o.CustomerAddress, &o.CustomerPincode, &o.Status, &o.Subtotal, &o.GSTAmount, &o.TotalAmount, &o.PaymentID, &o.ExpiresAt, &meta, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by ref: %w", err)
	}
	o.Metadata = fromJSON(meta)

	const itemQ = `
SELECT id, order_id, product_id, name, unit_price, quantity, line_total, size, color
FROM order_items
WHERE order_id = $1;
`
	rows, err := r.pool.Query(ctx, itemQ, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPrice, &it.Quantity, &it.LineTotal, &it.Size, &it.Color); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return &o, nil
}

// MarkOrderPaid transitions a PENDING order to PAID with the provider
// payment id. Returns false when the order was not pending.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderRef, paymentID string) (bool, error) {
	const q = `
UPDATE orders
SET status = $2, payment_id = $3, updated_at = NOW()
WHERE order_ref = $1 AND status = $4;
`
	ct, err := r.pool.Exec(ctx, q, orderRef, OrderStatusPaid, paymentID, OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateOrderStatus updates status and merges metadata.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderRef, status string, metadata map[string]any) error {
	meta, err := toJSON(metadata)
	if err != nil {
		return err
	}
	const q = `
UPDATE orders
SET status = $2, metadata = metadata || $3, updated_at = NOW()
WHERE order_ref = $1;
`
	ct, err := r.pool.Exec(ctx, q, orderRef, status, meta)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", orderRef)
	}
	return nil
}

// ExpirePendingOrders flips unpaid orders past their expiry to EXPIRED and
// returns the affected references for notification.
func (r *Repository) ExpirePendingOrders(ctx context.Context, now time.Time) ([]string, error) {
	const q = `
UPDATE orders
SET status = $2, updated_at = NOW()
WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $3
RETURNING order_ref;
`
	rows, err := r.pool.Query(ctx, q, OrderStatusPending, OrderStatusExpired, now)
	if err != nil {
		return nil, fmt.Errorf("expire pending orders: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan expired order ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired orders: %w", err)
	}
	return refs, nil
}
