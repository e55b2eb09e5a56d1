package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	ledger "flatpay/internal/ledger/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS taxpayers (
	id INTEGER PRIMARY KEY,
	passport TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	electricity INTEGER NOT NULL DEFAULT 0,
	cold_water INTEGER NOT NULL DEFAULT 0,
	hot_water INTEGER NOT NULL DEFAULT 0,
	gas INTEGER NOT NULL DEFAULT 0,
	current_debt REAL NOT NULL DEFAULT 0,
	next_period_debt REAL NOT NULL DEFAULT 0,
	last_payment REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Repository persists account ledgers in a single sqlite table.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the taxpayers table if absent. Safe to call on
// every startup.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// CreateAccount inserts a new account with zeroed readings and debts.
// The password hash may be empty for accounts without portal access.
func (r *Repository) CreateAccount(ctx context.Context, passport, passwordHash string) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO taxpayers (passport, password_hash) VALUES (?, ?)`, passport, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ledger.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteAccount removes an account row. Returns false when no row matched.
func (r *Repository) DeleteAccount(ctx context.Context, passport string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM taxpayers WHERE passport = ?`, passport)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AccountExists reports whether a row with the passport exists.
func (r *Repository) AccountExists(ctx context.Context, passport string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("ledger repo: nil db")
	}
	var one int
	err := r.db.QueryRowContext(ctx, `
SELECT 1 FROM taxpayers WHERE passport = ? LIMIT 1`, passport).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAccount loads the full ledger row for a passport.
func (r *Repository) GetAccount(ctx context.Context, passport string) (*ledger.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ledger repo: nil db")
	}
	var (
		account     ledger.Account
		currentDebt float64
		nextDebt    float64
		lastPayment float64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT passport, electricity, cold_water, hot_water, gas,
	current_debt, next_period_debt, last_payment, created_at
FROM taxpayers WHERE passport = ?`, passport).Scan(
		&account.Passport,
		&account.Readings.Electricity,
		&account.Readings.ColdWater,
		&account.Readings.HotWater,
		&account.Readings.Gas,
		&currentDebt,
		&nextDebt,
		&lastPayment,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account.CurrentDebt = decimal.NewFromFloat(currentDebt)
	account.NextPeriodDebt = decimal.NewFromFloat(nextDebt)
	account.LastPayment = decimal.NewFromFloat(lastPayment)
	return &account, nil
}

// GetReadings returns the four meter counters for a passport.
func (r *Repository) GetReadings(ctx context.Context, passport string) (ledger.Readings, error) {
	var readings ledger.Readings
	if r == nil || r.db == nil {
		return readings, errors.New("ledger repo: nil db")
	}
	err := r.db.QueryRowContext(ctx, `
SELECT electricity, cold_water, hot_water, gas
FROM taxpayers WHERE passport = ?`, passport).Scan(
		&readings.Electricity, &readings.ColdWater, &readings.HotWater, &readings.Gas)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Readings{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Readings{}, err
	}
	return readings, nil
}

// SetReadings overwrites the meter counters for a passport.
func (r *Repository) SetReadings(ctx context.Context, passport string, readings ledger.Readings) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET electricity = ?, cold_water = ?, hot_water = ?, gas = ?
WHERE passport = ?`,
		readings.Electricity, readings.ColdWater, readings.HotWater, readings.Gas, passport)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetReadingsWithNextDebt overwrites readings and the staged next-period
// debt in one statement so a reading submission is never half-visible.
func (r *Repository) SetReadingsWithNextDebt(ctx context.Context, passport string, readings ledger.Readings, nextDebt decimal.Decimal) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE taxpayers
SET electricity = ?, cold_water = ?, hot_water = ?, gas = ?, next_period_debt = ?
WHERE passport = ?`,
		readings.Electricity, readings.ColdWater, readings.HotWater, readings.Gas,
		nextDebt.InexactFloat64(), passport)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetCurrentDebt returns the payable balance for the active period.
func (r *Repository) GetCurrentDebt(ctx context.Context, passport string) (decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return decimal.Zero, errors.New("ledger repo: nil db")
	}
	var debt float64
	err := r.db.QueryRowContext(ctx, `
SELECT current_debt FROM taxpayers WHERE passport = ?`, passport).Scan(&debt)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ledger.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(debt), nil
}

// SetCurrentDebt overwrites the active-period balance.
func (r *Repository) SetCurrentDebt(ctx context.Context, passport string, amount decimal.Decimal) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET current_debt = ? WHERE passport = ?`, amount.InexactFloat64(), passport)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetNextPeriodDebt overwrites the staged next-period debt.
func (r *Repository) SetNextPeriodDebt(ctx context.Context, passport string, amount decimal.Decimal) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET next_period_debt = ? WHERE passport = ?`, amount.InexactFloat64(), passport)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ApplyPayment records the payment and the recomputed balance together.
func (r *Repository) ApplyPayment(ctx context.Context, passport string, paid, newDebt decimal.Decimal) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET last_payment = ?, current_debt = ? WHERE passport = ?`,
		paid.InexactFloat64(), newDebt.InexactFloat64(), passport)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// FoldNextPeriodIntoCurrent adds every staged debt onto the current debt
// across all accounts in one statement.
func (r *Repository) FoldNextPeriodIntoCurrent(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	// REAL addition can drift below the cent; round inside the statement.
	_, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET current_debt = ROUND(current_debt + next_period_debt, 2)`)
	return err
}

// ResetNextPeriodDebt zeroes the staged debt across all accounts.
func (r *Repository) ResetNextPeriodDebt(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `UPDATE taxpayers SET next_period_debt = 0`)
	return err
}

// RolloverDebt folds staged debt into current debt and zeroes the staged
// column for every account inside one transaction, so the monthly
// transition is all-or-nothing.
func (r *Repository) RolloverDebt(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE taxpayers SET current_debt = ROUND(current_debt + next_period_debt, 2)`); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE taxpayers SET next_period_debt = 0`); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ResetAllReadings zeroes the meter counters across all accounts.
func (r *Repository) ResetAllReadings(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE taxpayers SET electricity = 0, cold_water = 0, hot_water = 0, gas = 0`)
	return err
}

// PasswordHash returns the stored credential hash for a passport.
func (r *Repository) PasswordHash(ctx context.Context, passport string) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("ledger repo: nil db")
	}
	var hash string
	err := r.db.QueryRowContext(ctx, `
SELECT password_hash FROM taxpayers WHERE passport = ?`, passport).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.ErrAccountNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// CountAccounts returns the number of registered accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("ledger repo: nil db")
	}
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM taxpayers`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountAccountsWithStagedDebt returns the number of accounts holding a
// nonzero next-period debt.
func (r *Repository) CountAccountsWithStagedDebt(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("ledger repo: nil db")
	}
	var count int64
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM taxpayers WHERE next_period_debt > 0`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Open opens (or creates) the sqlite database file at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// sqlite serializes writers internally; one connection avoids
	// SQLITE_BUSY between the request handlers and the monthly jobs.
	db.SetMaxOpenConns(1)
	return db, nil
}
