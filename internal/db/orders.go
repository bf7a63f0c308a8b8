package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pstracker/backend/internal/models"
)

// ExpectedItems returns order items for a basket within a pinned import
// batch, joined with their order numbers.
func (s *Store) ExpectedItems(ctx context.Context, cesta string, batchID int64) ([]models.ExpectedItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT o.order_number, oi.n_lista, oi.listone, oi.sku, oi.qty_ordered
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.cesta = $1 AND oi.batch_id = $2
		ORDER BY oi.sku, oi.n_lista
	`, cesta, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExpectedItem
	for rows.Next() {
		var it models.ExpectedItem
		if err := rows.Scan(&it.NOrdine, &it.NLista, &it.Listone, &it.SKU, &it.QtyOrdered); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) InsertOrder(ctx context.Context, tx pgx.Tx, o models.Order) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, registered_at, commessa, proprieta, batch_id)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (order_number, batch_id) DO UPDATE SET registered_at = EXCLUDED.registered_at
		RETURNING id
	`, o.OrderNumber, o.RegisteredAt, o.Commessa, o.Proprieta, o.BatchID).Scan(&id)
	return id, err
}

func (s *Store) CopyOrderItems(ctx context.Context, tx pgx.Tx, items []models.OrderItem) (int64, error) {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.OrderID, it.NLista, it.Listone, it.SKU, it.QtyOrdered, it.Cesta, it.BatchID})
	}
	return tx.CopyFrom(ctx, pgx.Identifier{"order_items"},
		[]string{"order_id", "n_lista", "listone", "sku", "qty_ordered", "cesta", "batch_id"},
		pgx.CopyFromRows(rows))
}

func (s *Store) ShippedItems(ctx context.Context, cesta string, batchID int64) ([]models.ShippedItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, cesta, batch_id, n_ordine, n_lista, sku, qty_shipped, sovracollo, vettore, shipped_at
		FROM shipped_items
		WHERE cesta = $1 AND batch_id = $2
		ORDER BY sku, n_lista
	`, cesta, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShippedItem
	for rows.Next() {
		var it models.ShippedItem
		var sovracollo, vettore *string
		if err := rows.Scan(&it.ID, &it.Cesta, &it.BatchID, &it.NOrdine, &it.NLista, &it.SKU,
			&it.QtyShipped, &sovracollo, &vettore, &it.ShippedAt); err != nil {
			return nil, err
		}
		it.Sovracollo = deref(sovracollo)
		it.Vettore = deref(vettore)
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertShippedItems is the read-through cache write for GetSpedito2
// results, idempotent on (cesta, batch, order, list, sku).
func (s *Store) UpsertShippedItems(ctx context.Context, items []models.ShippedItem) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, it := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO shipped_items (cesta, batch_id, n_ordine, n_lista, sku, qty_shipped, sovracollo, vettore, shipped_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				ON CONFLICT (cesta, batch_id, n_ordine, n_lista, sku) DO UPDATE SET
					qty_shipped = EXCLUDED.qty_shipped,
					sovracollo = EXCLUDED.sovracollo,
					vettore = EXCLUDED.vettore,
					shipped_at = EXCLUDED.shipped_at
			`, it.Cesta, it.BatchID, it.NOrdine, it.NLista, it.SKU, it.QtyShipped, it.Sovracollo, it.Vettore, it.ShippedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PositionCandidate is a (SKU, position) pair resolved from current UDC
// inventory.
type PositionCandidate struct {
	SKU          string
	Listone      int64
	UDC          string
	PositionCode string
}

func (s *Store) CandidatePositions(ctx context.Context, skus []string) ([]PositionCandidate, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT i.sku, i.listone, i.udc, COALESCE(l.position_code, 'UNKNOWN')
		FROM udc_inventory i
		LEFT JOIN udc_locations l ON l.udc = i.udc
		WHERE i.qty > 0 AND i.sku = ANY($1)
		ORDER BY i.sku, i.udc
	`, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionCandidate
	for rows.Next() {
		var c PositionCandidate
		if err := rows.Scan(&c.SKU, &c.Listone, &c.UDC, &c.PositionCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertUdcLocation(ctx context.Context, tx pgx.Tx, loc models.UdcLocation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO udc_locations (udc, mag, scaf, col, pia, sc, comp, position_code, last_movement, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		ON CONFLICT (udc) DO UPDATE SET
			mag = EXCLUDED.mag,
			scaf = EXCLUDED.scaf,
			col = EXCLUDED.col,
			pia = EXCLUDED.pia,
			sc = EXCLUDED.sc,
			comp = EXCLUDED.comp,
			position_code = EXCLUDED.position_code,
			last_movement = EXCLUDED.last_movement,
			last_updated = NOW()
	`, loc.UDC, loc.Mag, loc.Scaf, loc.Col, loc.Pia, loc.Sc, loc.Comp, loc.PositionCode, loc.LastMovement)
	return err
}

// OrderItemKey identifies an order item by its picking list and article.
type OrderItemKey struct {
	Listone int64
	SKU     string
}

func (s *Store) OrderItemIDsByListoneSKU(ctx context.Context) (map[OrderItemKey][]int64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, listone, sku FROM order_items WHERE listone IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[OrderItemKey][]int64{}
	for rows.Next() {
		var id, listone int64
		var sku string
		if err := rows.Scan(&id, &listone, &sku); err != nil {
			return nil, err
		}
		key := OrderItemKey{Listone: listone, SKU: sku}
		out[key] = append(out[key], id)
	}
	return out, rows.Err()
}

func (s *Store) CopyPickingEvents(ctx context.Context, events []models.PickingEvent) (int64, error) {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.OrderItemID, e.UDC, e.Carrello, e.QtyPicked, e.Operator, e.PickedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"picking_events"},
		[]string{"order_item_id", "udc", "carrello", "qty_picked", "operator", "picked_at"},
		pgx.CopyFromRows(rows))
}

// RebuildUdcInventory recomputes the inventory snapshot by aggregating
// picking events, replacing the previous snapshot wholesale.
func (s *Store) RebuildUdcInventory(ctx context.Context) (int64, error) {
	var created int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM udc_inventory`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO udc_inventory (udc, sku, listone, qty)
			SELECT p.udc, oi.sku, oi.listone, SUM(p.qty_picked)
			FROM picking_events p
			JOIN order_items oi ON oi.id = p.order_item_id
			WHERE oi.listone IS NOT NULL AND p.qty_picked > 0 AND p.udc IS NOT NULL
			GROUP BY p.udc, oi.sku, oi.listone
			HAVING SUM(p.qty_picked) > 0
		`)
		if err != nil {
			return err
		}
		created = tag.RowsAffected()
		return nil
	})
	return created, err
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
