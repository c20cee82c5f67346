package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *OrderRepo) CreateOrder(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.CreateOrder"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO orders(id, number, owner_key, status, total_price,
		                    email, phone, surname, name, patronymic, comment, telegram)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
      	 RETURNING created_at, updated_at`,
		o.ID, o.Number, o.OwnerKey, o.Status, o.TotalPrice.String(),
		o.Email, o.Phone, o.Surname, o.Name, o.Patronymic, o.Comment, o.Telegram,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// AddOrderItem inserts an item and recomputes the parent order's
// denormalized total from its items in the same statement sequence.
func (r *OrderRepo) AddOrderItem(ctx context.Context, item *domain.OrderItem) error {
	const op = "postgres.OrderRepo.AddOrderItem"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO order_items(order_id, masterclass_id, occurrence_id, quantity, price)
       	 VALUES ($1, $2, $3, $4, $5)
      	 RETURNING id`,
		item.OrderID, item.MasterClassID, item.OccurrenceID, item.Quantity, item.Price.String(),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`UPDATE orders
        	SET total_price = (SELECT COALESCE(SUM(price * quantity), 0)
                             FROM order_items WHERE order_id = $1),
            updated_at = now()
      	 WHERE id = $1`,
		item.OrderID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// SetOrderTotal overwrites the denormalized total, used by checkout to
// store the discounted net after all items are in.
func (r *OrderRepo) SetOrderTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	const op = "postgres.OrderRepo.SetOrderTotal"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE orders SET total_price = $2, updated_at = now() WHERE id = $1`,
		orderID, total.String(),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *OrderRepo) OrderWithItems(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.OrderWithItems"

	db := r.handle()

	o, err := r.scanOrder(db.QueryRow(ctx,
		`SELECT id, number, owner_key, status, total_price::text,
		        email, phone, surname, name, patronymic, comment, telegram,
		        created_at, updated_at
       	 FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	items, err := r.itemsForOrder(ctx, db, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	o.Items = items

	return o, nil
}

func (r *OrderRepo) OrdersByOwner(ctx context.Context, ownerKey string) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.OrdersByOwner"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, number, owner_key, status, total_price::text,
		        email, phone, surname, name, patronymic, comment, telegram,
		        created_at, updated_at
       	 FROM orders
      	 WHERE owner_key = $1
      	 ORDER BY created_at DESC`,
		ownerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	for i := range out {
		items, err := r.itemsForOrder(ctx, db, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out[i].Items = items
	}

	return out, nil
}

// SetOrderStatus applies from -> to and reports whether a row actually
// changed. A zero rows result on an existing order means the guard did not
// hold, which callers treat as a silent no-op.
func (r *OrderRepo) SetOrderStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.OrderStatus,
) (bool, error) {
	const op = "postgres.OrderRepo.SetOrderStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now()
      	 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		if !exists {
			return false, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return false, nil
	}

	return true, nil
}

func (r *OrderRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		total string
	)
	err := row.Scan(&o.ID, &o.Number, &o.OwnerKey, &o.Status, &total,
		&o.Email, &o.Phone, &o.Surname, &o.Name, &o.Patronymic, &o.Comment, &o.Telegram,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *OrderRepo) itemsForOrder(ctx context.Context, db DB, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := db.Query(ctx,
		`SELECT id, order_id, masterclass_id, occurrence_id, quantity, price::text
       	 FROM order_items
      	 WHERE order_id = $1
      	 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, translateDBErr(err)
	}

	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			it    domain.OrderItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MasterClassID, &it.OccurrenceID,
			&it.Quantity, &price); err != nil {
			return nil, translateDBErr(err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBErr(err)
	}

	return items, nil
}
