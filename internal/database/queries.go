package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	RecordMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Menu queries
const (
	menuItemColumns = `
		id, name, description, category, base_price, discount_price, is_on_discount,
		effective_price, available, popular, track_inventory, stock_quantity,
		low_stock_threshold, COALESCE(image_url, ''), updated_at`

	ListMenuItemsSQL = `SELECT` + menuItemColumns + `
		FROM menu_items
		ORDER BY category, name`

	GetMenuItemSQL = `SELECT` + menuItemColumns + `
		FROM menu_items WHERE id = $1`

	ListVariationsSQL = `
		SELECT id, menu_item_id, name, price
		FROM variations
		WHERE menu_item_id = ANY($1::uuid[])
		ORDER BY price, name`

	ListAddOnsSQL = `
		SELECT id, menu_item_id, name, category, price
		FROM add_ons
		WHERE menu_item_id = ANY($1::uuid[])
		ORDER BY category, name`

	LockMenuItemStockSQL = `
		SELECT name, track_inventory, stock_quantity
		FROM menu_items WHERE id = $1
		FOR UPDATE`

	DecrementMenuItemStockSQL = `
		UPDATE menu_items SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2`
)

// Order queries
const (
	orderColumns = `
		id, customer_name, contact_number, service_type, table_number, address,
		pickup_time, payment_method, reference_number, notes, total, status,
		receipt_url, created_at, updated_at`

	InsertOrderSQL = `
		INSERT INTO orders (id, session_id, customer_name, contact_number, service_type,
			table_number, address, pickup_time, payment_method, reference_number, notes, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, unit_price, quantity, subtotal, variation, add_ons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	// Serializes creation per contact (or session) so the window check holds.
	LockOrderIdentitySQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	LastOrderByContactSQL = `
		SELECT created_at FROM orders
		WHERE contact_number = $1
		ORDER BY created_at DESC
		LIMIT 1`

	LastOrderBySessionSQL = `
		SELECT created_at FROM orders
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	GetOrderSQL = `SELECT` + orderColumns + `
		FROM orders WHERE id = $1`

	ListOrdersSQL = `SELECT` + orderColumns + `
		FROM orders
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC`

	ListOrdersByStatusSQL = `SELECT` + orderColumns + `
		FROM orders
		WHERE LOWER(status) = ANY($1)
		ORDER BY created_at ASC`

	ListOrderItemsSQL = `
		SELECT id, order_id, COALESCE(menu_item_id::text, ''), name, unit_price, quantity, subtotal, variation, add_ons
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY id`

	LockOrderStatusSQL = `
		SELECT status FROM orders WHERE id = $1
		FOR UPDATE`

	UpdateOrderStatusSQL = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`

	CountPendingSinceSQL = `
		SELECT COUNT(*) FROM orders
		WHERE LOWER(status) = 'pending' AND created_at >= $1`
)

// Inventory queries
const (
	materialColumns = `
		id, name, category, unit, unit_cost, stock_quantity, low_stock_threshold, updated_at`

	ListMaterialsSQL = `SELECT` + materialColumns + `
		FROM materials
		WHERE ($1::text = '' OR name ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')
		ORDER BY name`

	GetMaterialSQL = `SELECT` + materialColumns + `
		FROM materials WHERE id = $1`

	LockMaterialSQL = `SELECT` + materialColumns + `
		FROM materials WHERE id = $1
		FOR UPDATE`

	InsertMaterialSQL = `
		INSERT INTO materials (id, name, category, unit, unit_cost, stock_quantity, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING updated_at`

	UpdateMaterialSQL = `
		UPDATE materials SET name = $1, category = $2, unit = $3, unit_cost = $4,
			stock_quantity = $5, low_stock_threshold = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	SetMaterialStockSQL = `
		UPDATE materials SET stock_quantity = $1, unit_cost = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	DeleteMaterialSQL = `DELETE FROM materials WHERE id = $1`

	InsertPurchaseSQL = `
		INSERT INTO purchases (id, material_id, item_name, quantity, price_per_unit, total_paid, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ListPurchasesSQL = `
		SELECT id, material_id, item_name, quantity, price_per_unit, total_paid, purchase_date
		FROM purchases
		ORDER BY purchase_date DESC, id`

	DeletePurchaseSQL = `DELETE FROM purchases WHERE id = $1`

	ListRecipeEntriesSQL = `
		SELECT id, menu_item_id, material_id, quantity_used
		FROM recipes
		WHERE ($1::text = '' OR menu_item_id::text = $1)
		ORDER BY menu_item_id, id`

	UpsertRecipeEntrySQL = `
		INSERT INTO recipes (id, menu_item_id, material_id, quantity_used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (menu_item_id, material_id) DO UPDATE SET quantity_used = EXCLUDED.quantity_used
		RETURNING id`

	DeleteRecipeEntrySQL = `DELETE FROM recipes WHERE id = $1`

	ListSuppliersSQL = `
		SELECT id, item_name, category, supplier_name, contact, updated_at
		FROM suppliers
		WHERE ($1::text = '' OR item_name ILIKE '%' || $1 || '%' OR supplier_name ILIKE '%' || $1 || '%')
		ORDER BY supplier_name, item_name`

	InsertSupplierSQL = `
		INSERT INTO suppliers (id, item_name, category, supplier_name, contact)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at`

	UpdateSupplierSQL = `
		UPDATE suppliers SET item_name = $1, category = $2, supplier_name = $3, contact = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	DeleteSupplierSQL = `DELETE FROM suppliers WHERE id = $1`
)

// Session and staff queries
const (
	GetSessionSQL = `
		SELECT id, table_number, service_type, updated_at
		FROM sessions WHERE id = $1`

	UpsertSessionSQL = `
		INSERT INTO sessions (id, table_number, service_type, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			table_number = EXCLUDED.table_number,
			service_type = EXCLUDED.service_type,
			updated_at = EXCLUDED.updated_at`

	DeleteSessionSQL = `DELETE FROM sessions WHERE id = $1`

	GetStaffByUsernameSQL = `
		SELECT id, username, password_hash, role
		FROM staff_users WHERE username = $1`

	InsertStaffSQL = `
		INSERT INTO staff_users (username, password_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id`
)
