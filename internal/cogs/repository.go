package cogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// fetchChunkSize bounds IN-list sizes so large id sets respect query
// limits; chunk queries run concurrently and merge by concatenation.
const fetchChunkSize = 200

// Repository provides PostgreSQL backed read access for the engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PriorClosedPeriod returns the most recent closed period ending before
// the given instant, or nil when none exists.
func (r *Repository) PriorClosedPeriod(ctx context.Context, before time.Time) (*ReportingPeriod, error) {
	const q = `SELECT id, start_at, end_at, status, ending_inventory_value, closed_at
		FROM reporting_periods
		WHERE status = 'closed' AND end_at < $1
		ORDER BY end_at DESC
		LIMIT 1`
	var p ReportingPeriod
	err := r.pool.QueryRow(ctx, q, before).
		Scan(&p.ID, &p.StartAt, &p.EndAt, &p.Status, &p.EndingInventoryValue, &p.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fetchErr("prior closed period", err)
	}
	return &p, nil
}

// ListInventoryItems returns all non-deleted inventory items.
func (r *Repository) ListInventoryItems(ctx context.Context) ([]InventoryItem, error) {
	const q = `SELECT id, name, unit_cost, COALESCE(unit_type, ''), current_stock, deleted_at
		FROM inventory_items
		WHERE deleted_at IS NULL
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("inventory items", err)
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.UnitCost, &item.UnitType, &item.CurrentStock, &item.DeletedAt); err != nil {
			return nil, fetchErr("inventory items", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("inventory items", err)
	}
	return items, nil
}

// ListInvoices returns confirmed invoices whose effective date falls
// within the inclusive range.
func (r *Repository) ListInvoices(ctx context.Context, start, end time.Time) ([]Invoice, error) {
	const q = `SELECT id, status, invoice_date, confirmed_at, total_amount
		FROM invoices
		WHERE status = 'confirmed'
		  AND COALESCE(confirmed_at, invoice_date) >= $1
		  AND COALESCE(confirmed_at, invoice_date) <= $2
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q, start, end)
	if err != nil {
		return nil, fetchErr("invoices", err)
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Status, &inv.InvoiceDate, &inv.ConfirmedAt, &inv.TotalAmount); err != nil {
			return nil, fetchErr("invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("invoices", err)
	}
	return invoices, nil
}

// soldLineMetadata mirrors the loosely-typed JSONB blob on a sold line.
// Malformed blobs degrade to empty metadata rather than failing the
// fetch.
type soldLineMetadata struct {
	VariationID             string `json:"variation_id"`
	OriginalCatalogObjectID string `json:"original_catalog_object_id"`
	Modifiers               []struct {
		CatalogObjectID string  `json:"catalog_object_id"`
		Quantity        float64 `json:"quantity"`
	} `json:"modifiers"`
}

// ListSoldLines returns sold transaction lines for transactions whose
// sale instant falls in [start, end).
func (r *Repository) ListSoldLines(ctx context.Context, start, end time.Time) ([]SoldLine, error) {
	const q = `SELECT i.catalog_object_id, i.quantity, t.sold_at, i.metadata
		FROM sales_transaction_items i
		JOIN sales_transactions t ON t.id = i.transaction_id
		WHERE t.sold_at >= $1 AND t.sold_at < $2
		ORDER BY i.id`
	rows, err := r.pool.Query(ctx, q, start, end)
	if err != nil {
		return nil, fetchErr("sold lines", err)
	}
	defer rows.Close()
	var lines []SoldLine
	for rows.Next() {
		var line SoldLine
		var raw []byte
		if err := rows.Scan(&line.CatalogObjectID, &line.Qty, &line.SoldAt, &raw); err != nil {
			return nil, fetchErr("sold lines", err)
		}
		if len(raw) > 0 {
			var meta soldLineMetadata
			if err := json.Unmarshal(raw, &meta); err == nil {
				line.Metadata = LineMetadata{
					VariationID:             meta.VariationID,
					OriginalCatalogObjectID: meta.OriginalCatalogObjectID,
				}
				for _, m := range meta.Modifiers {
					if m.CatalogObjectID == "" || m.Quantity <= 0 {
						continue
					}
					line.Modifiers = append(line.Modifiers, SoldModifier{CatalogID: m.CatalogObjectID, Qty: m.Quantity})
				}
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("sold lines", err)
	}
	return lines, nil
}

// ListSellables returns all sellables.
func (r *Repository) ListSellables(ctx context.Context) ([]Sellable, error) {
	const q = `SELECT id, product_id, name, COALESCE(variation_id, '') FROM sellables ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("sellables", err)
	}
	defer rows.Close()
	var sellables []Sellable
	for rows.Next() {
		var s Sellable
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Name, &s.VariationID); err != nil {
			return nil, fetchErr("sellables", err)
		}
		sellables = append(sellables, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("sellables", err)
	}
	return sellables, nil
}

// ListSellableAliases returns all historical variation-id aliases.
func (r *Repository) ListSellableAliases(ctx context.Context) ([]SellableAlias, error) {
	const q = `SELECT id, sellable_id, variation_id, valid_from, valid_to FROM sellable_aliases ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("sellable aliases", err)
	}
	defer rows.Close()
	var aliases []SellableAlias
	for rows.Next() {
		var a SellableAlias
		if err := rows.Scan(&a.ID, &a.SellableID, &a.VariationID, &a.ValidFrom, &a.ValidTo); err != nil {
			return nil, fetchErr("sellable aliases", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("sellable aliases", err)
	}
	return aliases, nil
}

// ListProductRecipes returns all recipe versions with their lines.
// Lines are fetched in recipe-id chunks running concurrently.
func (r *Repository) ListProductRecipes(ctx context.Context) ([]ProductRecipe, error) {
	const q = `SELECT id, product_id, effective_from, effective_to, COALESCE(yield_qty, 0), COALESCE(yield_unit, '')
		FROM product_recipes
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("product recipes", err)
	}
	defer rows.Close()
	var recipes []ProductRecipe
	var ids []int64
	for rows.Next() {
		var rec ProductRecipe
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.EffectiveFrom, &rec.EffectiveTo, &rec.YieldQty, &rec.YieldUnit); err != nil {
			return nil, fetchErr("product recipes", err)
		}
		recipes = append(recipes, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("product recipes", err)
	}

	lines, err := r.recipeLinesByRecipe(ctx, "recipe_lines", "recipe_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Lines = lines[recipes[i].ID]
	}
	return recipes, nil
}

// ListSellableOverrides returns override scopes with their ordered ops.
func (r *Repository) ListSellableOverrides(ctx context.Context) ([]SellableOverride, error) {
	const q = `SELECT id, sellable_id, effective_from, effective_to
		FROM sellable_recipe_overrides
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("sellable overrides", err)
	}
	defer rows.Close()
	var overrides []SellableOverride
	var ids []int64
	for rows.Next() {
		var ov SellableOverride
		if err := rows.Scan(&ov.ID, &ov.SellableID, &ov.EffectiveFrom, &ov.EffectiveTo); err != nil {
			return nil, fetchErr("sellable overrides", err)
		}
		overrides = append(overrides, ov)
		ids = append(ids, ov.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("sellable overrides", err)
	}

	ops, err := r.overrideOpsByOverride(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range overrides {
		overrides[i].Ops = ops[overrides[i].ID]
	}
	return overrides, nil
}

// ListModifierOptions returns all modifier options.
func (r *Repository) ListModifierOptions(ctx context.Context) ([]ModifierOption, error) {
	const q = `SELECT id, COALESCE(catalog_id, ''), name FROM modifier_options ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("modifier options", err)
	}
	defer rows.Close()
	var options []ModifierOption
	for rows.Next() {
		var m ModifierOption
		if err := rows.Scan(&m.ID, &m.CatalogID, &m.Name); err != nil {
			return nil, fetchErr("modifier options", err)
		}
		options = append(options, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("modifier options", err)
	}
	return options, nil
}

// ListModifierRecipes returns modifier recipe versions with lines.
func (r *Repository) ListModifierRecipes(ctx context.Context) ([]ModifierRecipe, error) {
	const q = `SELECT id, modifier_option_id, effective_from, effective_to
		FROM modifier_option_recipes
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fetchErr("modifier recipes", err)
	}
	defer rows.Close()
	var recipes []ModifierRecipe
	var ids []int64
	for rows.Next() {
		var rec ModifierRecipe
		if err := rows.Scan(&rec.ID, &rec.ModifierOptionID, &rec.EffectiveFrom, &rec.EffectiveTo); err != nil {
			return nil, fetchErr("modifier recipes", err)
		}
		recipes = append(recipes, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("modifier recipes", err)
	}

	lines, err := r.recipeLinesByRecipe(ctx, "modifier_recipe_lines", "modifier_recipe_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Lines = lines[recipes[i].ID]
	}
	return recipes, nil
}

// ListWasteMovements returns waste write-offs dated within the range.
func (r *Repository) ListWasteMovements(ctx context.Context, start, end time.Time) ([]StockMovement, error) {
	const q = `SELECT id, inventory_item_id, movement_type, quantity_change, unit_cost, occurred_at
		FROM stock_movements
		WHERE movement_type = 'waste' AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY id`
	rows, err := r.pool.Query(ctx, q, start, end)
	if err != nil {
		return nil, fetchErr("waste movements", err)
	}
	defer rows.Close()
	var movements []StockMovement
	for rows.Next() {
		var mv StockMovement
		if err := rows.Scan(&mv.ID, &mv.InventoryItemID, &mv.MovementType, &mv.QuantityChange, &mv.UnitCost, &mv.OccurredAt); err != nil {
			return nil, fetchErr("waste movements", err)
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchErr("waste movements", err)
	}
	return movements, nil
}

type recipeLineRow struct {
	parentID int64
	line     RecipeLine
}

func (r *Repository) recipeLinesByRecipe(ctx context.Context, table, parentCol string, ids []int64) (map[int64][]RecipeLine, error) {
	out := make(map[int64][]RecipeLine)
	if len(ids) == 0 {
		return out, nil
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunkIDs(ids, fetchChunkSize) {
		g.Go(func() error {
			q := fmt.Sprintf(`SELECT %s, inventory_item_id, qty, COALESCE(unit, ''), COALESCE(loss_pct, 0)
				FROM %s WHERE %s = ANY($1) ORDER BY id`, parentCol, table, parentCol)
			rows, err := r.pool.Query(gctx, q, chunk)
			if err != nil {
				return fetchErr(table, err)
			}
			defer rows.Close()
			var batch []recipeLineRow
			for rows.Next() {
				var row recipeLineRow
				if err := rows.Scan(&row.parentID, &row.line.InventoryItemID, &row.line.Qty, &row.line.Unit, &row.line.LossPct); err != nil {
					return fetchErr(table, err)
				}
				batch = append(batch, row)
			}
			if err := rows.Err(); err != nil {
				return fetchErr(table, err)
			}
			mu.Lock()
			for _, row := range batch {
				out[row.parentID] = append(out[row.parentID], row.line)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) overrideOpsByOverride(ctx context.Context, ids []int64) (map[int64][]OverrideOp, error) {
	out := make(map[int64][]OverrideOp)
	if len(ids) == 0 {
		return out, nil
	}
	type opRow struct {
		overrideID int64
		op         OverrideOp
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunkIDs(ids, fetchChunkSize) {
		g.Go(func() error {
			const q = `SELECT override_id, id, kind,
					COALESCE(target_inventory_item_id, 0), COALESCE(new_inventory_item_id, 0),
					qty, unit, loss_pct, multiplier, created_at
				FROM override_ops WHERE override_id = ANY($1) ORDER BY created_at, id`
			rows, err := r.pool.Query(gctx, q, chunk)
			if err != nil {
				return fetchErr("override ops", err)
			}
			defer rows.Close()
			var batch []opRow
			for rows.Next() {
				var row opRow
				var unit *string
				if err := rows.Scan(&row.overrideID, &row.op.ID, &row.op.Kind,
					&row.op.TargetItemID, &row.op.NewItemID,
					&row.op.Qty, &unit, &row.op.LossPct, &row.op.Multiplier, &row.op.CreatedAt); err != nil {
					return fetchErr("override ops", err)
				}
				if unit != nil {
					u := UnitType(*unit)
					row.op.Unit = &u
				}
				batch = append(batch, row)
			}
			if err := rows.Err(); err != nil {
				return fetchErr("override ops", err)
			}
			mu.Lock()
			for _, row := range batch {
				out[row.overrideID] = append(out[row.overrideID], row.op)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = fetchChunkSize
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// fetchErr wraps repository failures with the failing operation, and
// the SQLSTATE when the driver reports one. These are the only errors
// that abort a report.
func fetchErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("cogs: query %s (%s): %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("cogs: query %s: %w", op, err)
}
