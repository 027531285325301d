package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists master data.
type Repository interface {
	ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	CreateCustomer(ctx context.Context, c Customer) error
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, id string) error

	ListLines(ctx context.Context, filters ListFilters) ([]Line, int, error)
	GetLine(ctx context.Context, id string) (Line, error)
	CreateLine(ctx context.Context, l Line) error
	UpdateLine(ctx context.Context, l Line) error
	DeleteLine(ctx context.Context, id string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id::text, code, name, tax_code, address, email, phone, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.TaxCode, &c.Address, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	where, args := searchClause(filters.Search)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + customerColumns + ` FROM customers` + where +
		` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir) +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) GetCustomer(ctx context.Context, id string) (Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Customer{}, ErrNotFound
	}
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) CreateCustomer(ctx context.Context, c Customer) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO customers (id, code, name, tax_code, address, email, phone, search_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Code, c.Name, c.TaxCode, c.Address, c.Email, c.Phone, searchKey(c.Code, c.Name, c.TaxCode), c.CreatedAt, c.UpdatedAt)
	return mapWriteErr(err)
}

func (r *repository) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx, `
UPDATE customers SET code = $2, name = $3, tax_code = $4, address = $5, email = $6, phone = $7, search_key = $8, updated_at = $9
WHERE id = $1`,
		c.ID, c.Code, c.Name, c.TaxCode, c.Address, c.Email, c.Phone, searchKey(c.Code, c.Name, c.TaxCode), c.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteCustomer(ctx context.Context, id string) error {
	return r.delete(ctx, `DELETE FROM customers WHERE id = $1`, id)
}

const lineColumns = `id::text, code, name, created_at, updated_at`

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *repository) ListLines(ctx context.Context, filters ListFilters) ([]Line, int, error) {
	where, args := searchClause(filters.Search)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM shipping_lines`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + lineColumns + ` FROM shipping_lines` + where +
		` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir) +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, 0, err
		}
		lines = append(lines, l)
	}
	return lines, total, rows.Err()
}

func (r *repository) GetLine(ctx context.Context, id string) (Line, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Line{}, ErrNotFound
	}
	l, err := scanLine(r.db.QueryRow(ctx, `SELECT `+lineColumns+` FROM shipping_lines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, ErrNotFound
	}
	return l, err
}

func (r *repository) CreateLine(ctx context.Context, l Line) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO shipping_lines (id, code, name, search_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Code, l.Name, searchKey(l.Code, l.Name), l.CreatedAt, l.UpdatedAt)
	return mapWriteErr(err)
}

func (r *repository) UpdateLine(ctx context.Context, l Line) error {
	tag, err := r.db.Exec(ctx, `UPDATE shipping_lines SET code = $2, name = $3, search_key = $4, updated_at = $5 WHERE id = $1`,
		l.ID, l.Code, l.Name, searchKey(l.Code, l.Name), l.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, id string) error {
	return r.delete(ctx, `DELETE FROM shipping_lines WHERE id = $1`, id)
}

func (r *repository) delete(ctx context.Context, query, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func searchClause(search string) (string, []any) {
	if Fold(search) == "" {
		return "", nil
	}
	return ` WHERE search_key LIKE $1`, []any{likePattern(search)}
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
