package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk/internal/docno"
	"github.com/freightdesk/freightdesk/internal/platform/db"
	"github.com/freightdesk/freightdesk/internal/shipment"
)

const activeJobCodeKey = "freight_jobs_active_code_key"

var claimTx = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Repository stores jobs as JSONB documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListJobs implements RepositoryPort.
func (r *Repository) ListJobs(ctx context.Context, filter JobFilter) ([]shipment.Job, error) {
	query := `SELECT payload, deleted_at FROM freight_jobs WHERE 1=1`
	var args []any
	if !filter.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if filter.Month != "" {
		args = append(args, filter.Month)
		query += ` AND month = $` + strconv.Itoa(len(args))
	}
	if filter.Booking != "" {
		args = append(args, filter.Booking)
		query += ` AND booking = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []shipment.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetJob implements RepositoryPort.
func (r *Repository) GetJob(ctx context.Context, id string) (shipment.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return shipment.Job{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT payload, deleted_at FROM freight_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return shipment.Job{}, ErrNotFound
	}
	return job, err
}

func scanJob(row pgx.Row) (shipment.Job, error) {
	var (
		payload   []byte
		deletedAt *time.Time
	)
	if err := row.Scan(&payload, &deletedAt); err != nil {
		return shipment.Job{}, err
	}
	var job shipment.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return shipment.Job{}, fmt.Errorf("decode job payload: %w", err)
	}
	job.DeletedAt = deletedAt
	return job, nil
}

// SaveJob implements RepositoryPort. Document numbers are claimed in the same
// transaction under per-number advisory locks.
func (r *Repository) SaveJob(ctx context.Context, job shipment.Job, details *shipment.CostDetails) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	claims := jobClaims(&job)
	err = db.WithTxOptions(ctx, r.pool, claimTx, func(tx pgx.Tx) error {
		if err := replaceClaims(ctx, tx, jobOwner(job.ID), claims); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
INSERT INTO freight_jobs (id, job_code, month, booking, payload, created_at, updated_at, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
ON CONFLICT (id) DO UPDATE SET
    job_code = EXCLUDED.job_code,
    month = EXCLUDED.month,
    booking = EXCLUDED.booking,
    payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at`,
			job.ID, job.JobCode, job.Month, job.Booking, payload, job.CreatedAt, job.UpdatedAt)
		if err != nil || details == nil {
			return err
		}
		return upsertCostDetails(ctx, tx, job.Booking, *details, job.UpdatedAt)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeJobCodeKey {
		return fmt.Errorf("%w: %s", ErrDuplicate, job.JobCode)
	}
	return err
}

// DeleteJob implements RepositoryPort. The job's claims are kept so its
// document numbers stay taken.
func (r *Repository) DeleteJob(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE freight_jobs SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCostDetails implements RepositoryPort. It returns nil when the booking
// has no stored breakdown.
func (r *Repository) GetCostDetails(ctx context.Context, booking string) (*shipment.CostDetails, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT details FROM booking_cost_details WHERE booking = $1`, booking).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cost details: %w", err)
	}
	var details shipment.CostDetails
	if err := json.Unmarshal(payload, &details); err != nil {
		return nil, fmt.Errorf("decode cost details: %w", err)
	}
	return &details, nil
}

// SaveCostDetails implements RepositoryPort.
func (r *Repository) SaveCostDetails(ctx context.Context, booking string, details shipment.CostDetails, at time.Time) error {
	return upsertCostDetails(ctx, r.pool, booking, details, at)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertCostDetails(ctx context.Context, q execer, booking string, details shipment.CostDetails, at time.Time) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode cost details: %w", err)
	}
	_, err = q.Exec(ctx, `
INSERT INTO booking_cost_details (booking, details, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (booking) DO UPDATE SET details = EXCLUDED.details, updated_at = EXCLUDED.updated_at`,
		booking, payload, at)
	return err
}

// ListReceipts implements RepositoryPort.
func (r *Repository) ListReceipts(ctx context.Context) ([]shipment.Receipt, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, doc_no, receipt_date, amount::text, customer_id, description, created_at
FROM external_receipts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []shipment.Receipt
	for rows.Next() {
		var (
			rec    shipment.Receipt
			amount string
		)
		if err := rows.Scan(&rec.ID, &rec.DocNo, &rec.Date, &amount, &rec.CustomerID, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("receipt %s amount: %w", rec.ID, err)
		}
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}

// SaveReceipt implements RepositoryPort.
func (r *Repository) SaveReceipt(ctx context.Context, rec shipment.Receipt) error {
	return db.WithTxOptions(ctx, r.pool, claimTx, func(tx pgx.Tx) error {
		if err := replaceClaims(ctx, tx, receiptOwner(rec.ID), receiptClaims(rec)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
INSERT INTO external_receipts (id, doc_no, receipt_date, amount, customer_id, description, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
			rec.ID, rec.DocNo, rec.Date, rec.Amount.String(), rec.CustomerID, rec.Description, rec.CreatedAt)
		return err
	})
}

// replaceClaims swaps the claims of owner for incoming after checking them
// against every other holder. Each number is locked for the rest of the
// transaction so two writers cannot claim it at once.
func replaceClaims(ctx context.Context, tx pgx.Tx, owner string, incoming []Claim) error {
	docNos := claimDocNos(incoming)
	held := make(map[string][]docno.Usage, len(docNos))
	for _, docNo := range docNos {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, docNo); err != nil {
			return fmt.Errorf("lock %s: %w", docNo, err)
		}
	}
	if len(docNos) > 0 {
		rows, err := tx.Query(ctx, `SELECT doc_no, owner, field, ref_group FROM doc_no_claims WHERE doc_no = ANY($1) AND owner <> $2`, docNos, owner)
		if err != nil {
			return fmt.Errorf("load claims: %w", err)
		}
		for rows.Next() {
			var (
				docNo string
				use   docno.Usage
			)
			if err := rows.Scan(&docNo, &use.Owner, &use.Field, &use.Group); err != nil {
				rows.Close()
				return err
			}
			held[docNo] = append(held[docNo], use)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	if err := checkClaims(incoming, held); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM doc_no_claims WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("clear claims: %w", err)
	}
	batch := &pgx.Batch{}
	for _, c := range incoming {
		batch.Queue(`INSERT INTO doc_no_claims (doc_no, owner, field, ref_group) VALUES ($1, $2, $3, $4)`, c.DocNo, c.Owner, c.Field, c.Group)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}
