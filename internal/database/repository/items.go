package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ItemRepo handles the item master.
type ItemRepo struct {
	db DBTX
}

func NewItemRepo(db DBTX) *ItemRepo { return &ItemRepo{db: db} }

func (r *ItemRepo) Upsert(ctx context.Context, it Item) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO items(no, description, unit_price_cents, uom)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(no) DO UPDATE SET
	 description=excluded.description,
	 unit_price_cents=excluded.unit_price_cents,
	 uom=excluded.uom;
	`, it.No, it.Description, it.UnitPriceCents, it.UOM)
	return err
}

func (r *ItemRepo) Get(ctx context.Context, no string) (Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `SELECT no, description, unit_price_cents, uom FROM items WHERE no = ?`, no).
		Scan(&it.No, &it.Description, &it.UnitPriceCents, &it.UOM)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

// Search returns items whose number or description contains any of the
// query's words. An empty query lists everything up to limit.
func (r *ItemRepo) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	var where []string
	var args []interface{}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		where = append(where, "(lower(no) LIKE ? OR lower(description) LIKE ?)")
		like := "%" + word + "%"
		args = append(args, like, like)
	}
	q := `SELECT no, description, unit_price_cents, uom FROM items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " OR ")
	}
	q += " ORDER BY no"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.No, &it.Description, &it.UnitPriceCents, &it.UOM); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
