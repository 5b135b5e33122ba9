package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
// Transactions are always returned in (transaction_date, rowid) order so
// same-day trades replay in insertion order.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{db: r.db, tx: tx}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionSelect = `
	SELECT t.rowid, t.id, t.stock_id, s.symbol, t.side, t.quantity, t.price_per_share, t.currency,
		t.fee_amount, t.fee_currency, t.fx_rate, t.fx_error, t.transaction_date, t.created_at
	FROM "transaction" t
	JOIN stock s ON s.id = t.stock_id
`

// GetTransactions returns every transaction in replay order.
func (r *TransactionRepository) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return r.query(ctx, transactionSelect+` ORDER BY t.transaction_date ASC, t.rowid ASC`)
}

// GetTransactionsMissingFx returns transactions in a currency other than base
// that have no fx rate yet. Rows with a recorded fx error are included so a
// later run can replace the error with a rate.
func (r *TransactionRepository) GetTransactionsMissingFx(ctx context.Context, base string) ([]model.Transaction, error) {
	return r.query(ctx, transactionSelect+`
		WHERE t.currency <> ? AND t.fx_rate IS NULL
		ORDER BY t.transaction_date ASC, t.rowid ASC`, base)
}

// GetTransaction returns apperrors.ErrTransactionNotFound when no row matches.
func (r *TransactionRepository) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	txs, err := r.query(ctx, transactionSelect+` WHERE t.id = ?`, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txs) == 0 {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	return txs[0], nil
}

// Exists reports whether a transaction with the same symbol, side, date,
// quantity and price is already stored.
func (r *TransactionRepository) Exists(ctx context.Context, key model.DuplicateKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM "transaction" t
			JOIN stock s ON s.id = t.stock_id
			WHERE s.symbol = ?
			AND t.side = ?
			AND t.transaction_date = ?
			AND t.quantity = ?
			AND ABS(t.price_per_share - ?) < 1e-9
		)
	`
	var exists bool
	err := r.getQuerier().QueryRowContext(ctx, query,
		key.Symbol, key.Side, key.Date.Format(dateLayout), key.Quantity, key.Price,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate transaction: %w", err)
	}
	return exists, nil
}

// InsertTransaction stores t, assigning ID, Seq and CreatedAt.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO "transaction" (
			id, stock_id, side, quantity, price_per_share, currency,
			fee_amount, fee_currency, fx_rate, fx_error, transaction_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.StockID,
		t.Side,
		t.Quantity,
		t.PricePerShare,
		t.Currency,
		sqlFloat(t.FeeAmount),
		sqlString(t.FeeCurrency),
		sqlFloat(t.FxRate),
		sqlString(t.FxError),
		t.TransactionDate.UTC().Format(dateLayout),
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if t.Seq, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get transaction rowid: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, id string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM "transaction" WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// SetFxRate records the resolved trade-currency to base rate and clears any error.
func (r *TransactionRepository) SetFxRate(ctx context.Context, id string, rate float64) error {
	return r.exec(ctx, `UPDATE "transaction" SET fx_rate = ?, fx_error = NULL WHERE id = ?`, rate, id)
}

// SetFxError records why the rate could not be resolved.
func (r *TransactionRepository) SetFxError(ctx context.Context, id string, reason string) error {
	return r.exec(ctx, `UPDATE "transaction" SET fx_error = ? WHERE id = ?`, reason, id)
}

func (r *TransactionRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.getQuerier().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		var dateStr, createdAtStr string
		var feeAmount, fxRate sql.NullFloat64
		var feeCurrency, fxError sql.NullString

		err := rows.Scan(
			&t.Seq,
			&t.ID,
			&t.StockID,
			&t.StockSymbol,
			&t.Side,
			&t.Quantity,
			&t.PricePerShare,
			&t.Currency,
			&feeAmount,
			&feeCurrency,
			&fxRate,
			&fxError,
			&dateStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}

		t.FeeAmount = nullFloat(feeAmount)
		t.FeeCurrency = nullString(feeCurrency)
		t.FxRate = nullFloat(fxRate)
		t.FxError = nullString(fxError)

		if t.TransactionDate, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}
	return transactions, nil
}
