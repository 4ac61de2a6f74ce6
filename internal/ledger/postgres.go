package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// merchantRowID is the single merchant account row; the service is
// single-tenant.
const merchantRowID = 1

const uniqueViolation = "23505"

// PostgresStore persists the merchant account, its activity feed and payouts
// in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureAccount creates the merchant account row if it does not exist yet.
func (s *PostgresStore) EnsureAccount(ctx context.Context, account Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO merchant_accounts (id, available_balance, pending_balance, currency)
        VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		merchantRowID, account.AvailableBalance, account.PendingBalance, string(account.Currency))
	return err
}

// Account returns the merchant balance.
func (s *PostgresStore) Account(ctx context.Context) (Account, error) {
	var a Account
	var currency string
	err := s.db.QueryRow(ctx, `SELECT available_balance, pending_balance, currency
        FROM merchant_accounts WHERE id = $1`, merchantRowID).Scan(&a.AvailableBalance, &a.PendingBalance, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("merchant account not provisioned")
		}
		return Account{}, err
	}
	a.Currency = dto.Currency(currency)
	return a, nil
}

// Activity returns one page of the feed using keyset pagination on
// (occurred_at, id). Unknown cursors restart from the newest entry.
func (s *PostgresStore) Activity(ctx context.Context, cursor string, limit int) (dto.ActivityPage, error) {
	limit = NormalizeLimit(limit)

	const base = `SELECT id, type, amount, currency, occurred_at, description, status FROM activities`
	const order = ` ORDER BY occurred_at DESC, id DESC LIMIT $1`

	var rows pgx.Rows
	var err error
	found := false
	if cursor != "" && cursor != firstPageCursor {
		err = s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id = $1)`, cursor).Scan(&found)
		if err != nil {
			return dto.ActivityPage{}, err
		}
	}
	if found {
		rows, err = s.db.Query(ctx, base+`
        WHERE (occurred_at, id) < (SELECT occurred_at, id FROM activities WHERE id = $2)`+order, limit+1, cursor)
	} else {
		rows, err = s.db.Query(ctx, base+order, limit+1)
	}
	if err != nil {
		return dto.ActivityPage{}, err
	}
	defer rows.Close()

	items := make([]dto.ActivityItem, 0, limit+1)
	for rows.Next() {
		var item dto.ActivityItem
		var kind, currency, status string
		if err := rows.Scan(&item.ID, &kind, &item.Amount, &currency, &item.Date, &item.Description, &status); err != nil {
			return dto.ActivityPage{}, err
		}
		item.Type = dto.ActivityType(kind)
		item.Currency = dto.Currency(currency)
		item.Status = dto.ActivityStatus(status)
		item.Date = item.Date.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return dto.ActivityPage{}, err
	}

	page := dto.ActivityPage{Items: items, HasMore: len(items) > limit}
	if page.HasMore {
		page.Items = items[:limit]
		next := page.Items[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// InsertActivity adds entries to the feed, ignoring ids that already exist.
func (s *PostgresStore) InsertActivity(ctx context.Context, items []dto.ActivityItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO activities (id, type, amount, currency, occurred_at, description, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			item.ID, string(item.Type), item.Amount, string(item.Currency), item.Date.UTC(), item.Description, string(item.Status))
	}
	return s.db.SendBatch(ctx, batch).Close()
}

// RecordPayout stores the payout, debits the available balance unless the
// payout already failed, and appends the matching activity entry.
func (s *PostgresStore) RecordPayout(ctx context.Context, p dto.Payout, deviceID string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var available int64
	if err := tx.QueryRow(ctx, `SELECT available_balance FROM merchant_accounts WHERE id = $1 FOR UPDATE`, merchantRowID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("merchant account not provisioned")
		}
		return err
	}

	if p.Status != dto.PayoutFailed {
		if available < p.Amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.Exec(ctx, `UPDATE merchant_accounts SET available_balance = available_balance - $1 WHERE id = $2`, p.Amount, merchantRowID); err != nil {
			return err
		}
	}

	var device *string
	if deviceID != "" {
		device = &deviceID
	}
	if _, err := tx.Exec(ctx, `INSERT INTO payouts (id, status, amount, currency, iban, device_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, string(p.Status), p.Amount, string(p.Currency), p.IBAN, device, p.CreatedAt.UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicatePayout
		}
		return err
	}

	item := payout.ActivityFromPayout(p)
	if _, err := tx.Exec(ctx, `INSERT INTO activities (id, type, amount, currency, occurred_at, description, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, string(item.Type), item.Amount, string(item.Currency), item.Date.UTC(), item.Description, string(item.Status)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Payout fetches a payout by identifier.
func (s *PostgresStore) Payout(ctx context.Context, id string) (dto.Payout, error) {
	var p dto.Payout
	var status, currency string
	err := s.db.QueryRow(ctx, `SELECT id, status, amount, currency, iban, created_at FROM payouts WHERE id = $1`, id).
		Scan(&p.ID, &status, &p.Amount, &currency, &p.IBAN, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.Payout{}, ErrPayoutNotFound
		}
		return dto.Payout{}, err
	}
	p.Status = dto.PayoutStatus(status)
	p.Currency = dto.Currency(currency)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// UpdatePayoutStatus moves a payout and its activity entry to status.
func (s *PostgresStore) UpdatePayoutStatus(ctx context.Context, id string, status dto.PayoutStatus) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE payouts SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPayoutNotFound
	}

	item := payout.ActivityFromPayout(dto.Payout{Status: status})
	if _, err := tx.Exec(ctx, `UPDATE activities SET status = $1 WHERE id = $2`, string(item.Status), id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
