package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cafe-pos/internal/database"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/models"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrder stores o and its items in one transaction. Creation is
// serialized per contact (or per session when no contact is given) so the
// rate-limit window check and the stock decrement cannot interleave.
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order, sessionID string, window time.Duration) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := checkRateLimit(ctx, tx, o.ContactNumber, sessionID, window); err != nil {
			return err
		}
		if err := reserveStock(ctx, tx, o.Items); err != nil {
			return err
		}

		var session *string
		if sessionID != "" {
			session = &sessionID
		}
		err := tx.QueryRow(ctx, database.InsertOrderSQL,
			o.ID, session, o.CustomerName, o.ContactNumber, string(o.ServiceType),
			o.TableNumber, o.Address, o.PickupTime, o.PaymentMethod, o.ReferenceNumber,
			o.Notes, o.Total, string(o.Status),
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range o.Items {
			if err := insertItem(ctx, tx, o.ID, &o.Items[i]); err != nil {
				return err
			}
		}

		note := "order placed"
		if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, o.ID, string(o.Status), "storefront", note); err != nil {
			return fmt.Errorf("failed to insert initial status: %w", err)
		}
		return nil
	})
}

func checkRateLimit(ctx context.Context, tx pgx.Tx, contact, sessionID string, window time.Duration) error {
	key, query := "contact:"+contact, database.LastOrderByContactSQL
	arg := contact
	if contact == "" {
		if sessionID == "" {
			return models.ErrMissingIdentifiers
		}
		key, query, arg = "session:"+sessionID, database.LastOrderBySessionSQL, sessionID
	}

	if _, err := tx.Exec(ctx, database.LockOrderIdentitySQL, key); err != nil {
		return fmt.Errorf("failed to lock order identity: %w", err)
	}
	if window <= 0 {
		return nil
	}

	var last time.Time
	err := tx.QueryRow(ctx, query, arg).Scan(&last)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read last order: %w", err)
	}
	if time.Since(last) < window {
		return models.ErrRateLimited
	}
	return nil
}

// reserveStock locks tracked menu items in id order and decrements them.
func reserveStock(ctx context.Context, tx pgx.Tx, items []models.OrderItem) error {
	wanted := make(map[string]int)
	for _, item := range items {
		if item.MenuItemID != "" {
			wanted[item.MenuItemID] += item.Quantity
		}
	}
	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		var (
			name    string
			tracked bool
			stock   int
		)
		err := tx.QueryRow(ctx, database.LockMenuItemStockSQL, id).Scan(&name, &tracked, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			// item removed from the menu; the snapshot still stands
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to lock menu item %s: %w", id, err)
		}
		if !tracked {
			continue
		}
		if stock < wanted[id] {
			return &models.StockError{Item: name, Requested: wanted[id], Available: stock}
		}
		if _, err := tx.Exec(ctx, database.DecrementMenuItemStockSQL, wanted[id], id); err != nil {
			return fmt.Errorf("failed to decrement stock for %s: %w", name, err)
		}
	}
	return nil
}

func insertItem(ctx context.Context, tx pgx.Tx, orderID string, item *models.OrderItem) error {
	var variation []byte
	if item.Variation != nil {
		b, err := json.Marshal(item.Variation)
		if err != nil {
			return fmt.Errorf("failed to encode variation: %w", err)
		}
		variation = b
	}
	addOns := item.AddOns
	if addOns == nil {
		addOns = []models.AddOnSnapshot{}
	}
	addOnsJSON, err := json.Marshal(addOns)
	if err != nil {
		return fmt.Errorf("failed to encode add-ons: %w", err)
	}

	var menuItemID *string
	if item.MenuItemID != "" {
		menuItemID = &item.MenuItemID
	}

	err = tx.QueryRow(ctx, database.InsertOrderItemSQL,
		orderID, menuItemID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal, variation, addOnsJSON,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
	}
	item.OrderID = orderID
	return nil
}

// UpdateStatus moves an order to a new status on behalf of actor and records
// the change. Concurrent updates are last-write-wins.
func (r *Repository) UpdateStatus(ctx context.Context, id string, actor lifecycle.Actor, to models.OrderStatus, changedBy string) (models.OrderStatus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", models.ErrNotFound
	}

	var from models.OrderStatus
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, database.LockOrderStatusSQL, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		from = models.OrderStatus(current).Normalize()

		next, err := lifecycle.Transition(actor, from, to)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, string(next), id); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		note := fmt.Sprintf("%s -> %s by %s", from, next, actor)
		if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, id, string(next), changedBy, note); err != nil {
			return fmt.Errorf("failed to log status change: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return from, nil
}

// Get returns one order with its items.
func (r *Repository) Get(ctx context.Context, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, database.GetOrderSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders created in [from, to], newest first. Nil bounds are open.
func (r *Repository) List(ctx context.Context, from, to *time.Time) ([]models.Order, error) {
	return r.query(ctx, database.ListOrdersSQL, from, to)
}

// ListByStatus returns orders in any of statuses, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s.Normalize())
	}
	return r.query(ctx, database.ListOrdersByStatusSQL, names)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// History returns the status log of an order, oldest first.
func (r *Repository) History(ctx context.Context, id string) ([]models.OrderStatusHistory, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, database.GetOrderStatusHistorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderStatusHistory, error) {
		var (
			h      models.OrderStatusHistory
			status string
		)
		err := row.Scan(&status, &h.ChangedBy, &h.ChangedAt, &h.Notes)
		h.Status = models.OrderStatus(status).Normalize()
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan status history: %w", err)
	}
	if len(history) == 0 {
		return nil, models.ErrNotFound
	}
	return history, nil
}

// CountPendingSince counts pending orders created at or after since.
func (r *Repository) CountPendingSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, database.CountPendingSinceSQL, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending orders: %w", err)
	}
	return n, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o           models.Order
		serviceType string
		status      string
	)
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.ContactNumber, &serviceType, &o.TableNumber, &o.Address,
		&o.PickupTime, &o.PaymentMethod, &o.ReferenceNumber, &o.Notes, &o.Total, &status,
		&o.ReceiptURL, &o.CreatedAt, &o.UpdatedAt,
	)
	o.ServiceType = models.ServiceType(serviceType)
	o.Status = models.OrderStatus(status)
	return o, err
}

func (r *Repository) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := r.pool.Query(ctx, database.ListOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item      models.OrderItem
			variation []byte
			addOns    []byte
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.UnitPrice,
			&item.Quantity, &item.Subtotal, &variation, &addOns); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if len(variation) > 0 && string(variation) != "null" {
			item.Variation = &models.VariationSnapshot{}
			if err := json.Unmarshal(variation, item.Variation); err != nil {
				return fmt.Errorf("failed to decode variation of item %d: %w", item.ID, err)
			}
		}
		if len(addOns) > 0 {
			if err := json.Unmarshal(addOns, &item.AddOns); err != nil {
				return fmt.Errorf("failed to decode add-ons of item %d: %w", item.ID, err)
			}
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}
