// Package storefront serves the customer side: the menu, the visitor session
// with its cart, and checkout.
package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/database"
	"cafe-pos/internal/models"
)

// MenuStore reads the menu. The storefront never writes it.
type MenuStore interface {
	ListMenu(ctx context.Context) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// MenuRepository reads menu items with their variations and add-ons.
type MenuRepository struct {
	pool *pgxpool.Pool
}

func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func (r *MenuRepository) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := r.pool.Query(ctx, database.ListMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MenuItem, error) {
		return scanMenuItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan menu: %w", err)
	}
	if err := r.attachOptions(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MenuRepository) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	item, err := scanMenuItem(r.pool.QueryRow(ctx, database.GetMenuItemSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	items := []models.MenuItem{item}
	if err := r.attachOptions(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var (
		m              models.MenuItem
		discountPrice  decimal.NullDecimal
		effectivePrice decimal.NullDecimal
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Category, &m.BasePrice, &discountPrice, &m.IsOnDiscount,
		&effectivePrice, &m.Available, &m.Popular, &m.TrackInventory, &m.StockQuantity,
		&m.LowStockThreshold, &m.ImageURL, &m.UpdatedAt,
	)
	if discountPrice.Valid {
		m.DiscountPrice = &discountPrice.Decimal
	}
	if effectivePrice.Valid {
		m.EffectivePrice = &effectivePrice.Decimal
	}
	return m, err
}

func (r *MenuRepository) attachOptions(ctx context.Context, items []models.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	index := make(map[string]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
		items[i].Variations = []models.Variation{}
		items[i].AddOns = []models.AddOn{}
	}

	rows, err := r.pool.Query(ctx, database.ListVariationsSQL, ids)
	if err != nil {
		return fmt.Errorf("failed to list variations: %w", err)
	}
	for rows.Next() {
		var (
			v      models.Variation
			itemID string
		)
		if err := rows.Scan(&v.ID, &itemID, &v.Name, &v.Price); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan variation: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].Variations = append(items[i].Variations, v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read variations: %w", err)
	}

	rows, err = r.pool.Query(ctx, database.ListAddOnsSQL, ids)
	if err != nil {
		return fmt.Errorf("failed to list add-ons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a      models.AddOn
			itemID string
		)
		if err := rows.Scan(&a.ID, &itemID, &a.Name, &a.Category, &a.Price); err != nil {
			return fmt.Errorf("failed to scan add-on: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].AddOns = append(items[i].AddOns, a)
		}
	}
	return rows.Err()
}
