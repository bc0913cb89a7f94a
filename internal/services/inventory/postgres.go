// Package inventory is the back office: materials, purchases, suppliers,
// recipes and the costing report built from them.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/costing"
	"cafe-pos/internal/database"
	"cafe-pos/internal/models"
)

const foreignKeyViolation = "23503"

// Repository stores back-office records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMaterial(row pgx.Row) (models.Material, error) {
	var m models.Material
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.UnitCost, &m.StockQuantity, &m.LowStockThreshold, &m.UpdatedAt)
	return m, err
}

// validID keeps malformed ids away from uuid columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repository) ListMaterials(ctx context.Context, query string) ([]models.Material, error) {
	rows, err := r.pool.Query(ctx, database.ListMaterialsSQL, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	materials, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Material, error) {
		return scanMaterial(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan materials: %w", err)
	}
	return materials, nil
}

func (r *Repository) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	m, err := scanMaterial(r.pool.QueryRow(ctx, database.GetMaterialSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return &m, nil
}

func (r *Repository) CreateMaterial(ctx context.Context, m *models.Material) error {
	err := r.pool.QueryRow(ctx, database.InsertMaterialSQL,
		m.ID, m.Name, m.Category, m.Unit, m.UnitCost, m.StockQuantity, m.LowStockThreshold,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert material: %w", err)
	}
	return nil
}

func (r *Repository) UpdateMaterial(ctx context.Context, m *models.Material) error {
	if !validID(m.ID) {
		return models.ErrNotFound
	}
	err := r.pool.QueryRow(ctx, database.UpdateMaterialSQL,
		m.Name, m.Category, m.Unit, m.UnitCost, m.StockQuantity, m.LowStockThreshold, m.ID,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	return nil
}

func (r *Repository) DeleteMaterial(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, database.DeleteMaterialSQL, id, "material")
}

// AdjustStock adds delta under a row lock. The result is clamped at zero.
func (r *Repository) AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (*models.Material, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	var out models.Material
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := lockMaterial(ctx, tx, id)
		if err != nil {
			return err
		}
		m = costing.AdjustStock(m, delta)
		if err := setStock(ctx, tx, &m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePurchase records p and, when it references a material, raises that
// material's stock by the purchased quantity and sets its unit cost to the
// purchase price. Both writes commit together.
func (r *Repository) CreatePurchase(ctx context.Context, p *models.Purchase) (*models.Material, error) {
	if p.MaterialID != nil && !validID(*p.MaterialID) {
		return nil, models.ErrNotFound
	}

	var updated *models.Material
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if p.MaterialID != nil {
			m, err := lockMaterial(ctx, tx, *p.MaterialID)
			if err != nil {
				return err
			}
			m = costing.ApplyPurchase(m, p.Quantity, p.PricePerUnit)
			if err := setStock(ctx, tx, &m); err != nil {
				return err
			}
			if p.ItemName == "" {
				p.ItemName = m.Name
			}
			updated = &m
		}

		_, err := tx.Exec(ctx, database.InsertPurchaseSQL,
			p.ID, p.MaterialID, p.ItemName, p.Quantity, p.PricePerUnit, p.TotalPaid, p.PurchaseDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	rows, err := r.pool.Query(ctx, database.ListPurchasesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	purchases, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Purchase, error) {
		var p models.Purchase
		err := row.Scan(&p.ID, &p.MaterialID, &p.ItemName, &p.Quantity, &p.PricePerUnit, &p.TotalPaid, &p.PurchaseDate)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan purchases: %w", err)
	}
	return purchases, nil
}

// DeletePurchase removes the record only. Stock is left as it is.
func (r *Repository) DeletePurchase(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, database.DeletePurchaseSQL, id, "purchase")
}

func (r *Repository) ListSuppliers(ctx context.Context, query string) ([]models.Supplier, error) {
	rows, err := r.pool.Query(ctx, database.ListSuppliersSQL, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	suppliers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Supplier, error) {
		var s models.Supplier
		err := row.Scan(&s.ID, &s.ItemName, &s.Category, &s.SupplierName, &s.Contact, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *Repository) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	err := r.pool.QueryRow(ctx, database.InsertSupplierSQL,
		s.ID, s.ItemName, s.Category, s.SupplierName, s.Contact,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert supplier: %w", err)
	}
	return nil
}

func (r *Repository) UpdateSupplier(ctx context.Context, s *models.Supplier) error {
	if !validID(s.ID) {
		return models.ErrNotFound
	}
	err := r.pool.QueryRow(ctx, database.UpdateSupplierSQL,
		s.ItemName, s.Category, s.SupplierName, s.Contact, s.ID,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSupplier(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, database.DeleteSupplierSQL, id, "supplier")
}

// ListRecipeEntries returns every entry, or those of one menu item when
// menuItemID is set.
func (r *Repository) ListRecipeEntries(ctx context.Context, menuItemID string) ([]models.RecipeEntry, error) {
	rows, err := r.pool.Query(ctx, database.ListRecipeEntriesSQL, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RecipeEntry, error) {
		var e models.RecipeEntry
		err := row.Scan(&e.ID, &e.MenuItemID, &e.MaterialID, &e.QuantityUsed)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipes: %w", err)
	}
	return entries, nil
}

// UpsertRecipeEntry stores e. An existing entry for the same menu item and
// material keeps its id and takes the new quantity.
func (r *Repository) UpsertRecipeEntry(ctx context.Context, e *models.RecipeEntry) error {
	if !validID(e.MenuItemID) || !validID(e.MaterialID) {
		return models.ErrNotFound
	}
	err := r.pool.QueryRow(ctx, database.UpsertRecipeEntrySQL,
		e.ID, e.MenuItemID, e.MaterialID, e.QuantityUsed,
	).Scan(&e.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		// menu item or material deleted since it was checked
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save recipe entry: %w", err)
	}
	return nil
}

func (r *Repository) DeleteRecipeEntry(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, database.DeleteRecipeEntrySQL, id, "recipe entry")
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func lockMaterial(ctx context.Context, q database.Querier, id string) (models.Material, error) {
	m, err := scanMaterial(q.QueryRow(ctx, database.LockMaterialSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return m, models.ErrNotFound
	}
	if err != nil {
		return m, fmt.Errorf("failed to lock material: %w", err)
	}
	return m, nil
}

func setStock(ctx context.Context, q database.Querier, m *models.Material) error {
	var updated time.Time
	if err := q.QueryRow(ctx, database.SetMaterialStockSQL, m.StockQuantity, m.UnitCost, m.ID).Scan(&updated); err != nil {
		return fmt.Errorf("failed to update material stock: %w", err)
	}
	m.UpdatedAt = updated
	return nil
}

func deleteByID(ctx context.Context, q database.Querier, sql, id, what string) error {
	if !validID(id) {
		return models.ErrNotFound
	}
	tag, err := q.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
