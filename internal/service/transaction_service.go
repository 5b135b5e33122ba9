package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/repository"
)

// TransactionService handles manual transaction operations.
type TransactionService struct {
	db              *sql.DB
	stockRepo       *repository.StockRepository
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	db *sql.DB,
	stockRepo *repository.StockRepository,
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		db:              db,
		stockRepo:       stockRepo,
		transactionRepo: transactionRepo,
	}
}

// GetTransactions lists transactions in (date, insertion) order, narrowed by filters.
// SortDir "desc" reverses the order.
func (s *TransactionService) GetTransactions(ctx context.Context, filters request.TransactionFilters) ([]model.Transaction, error) {
	txs, err := s.transactionRepo.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}

	filtered := txs[:0]
	for _, t := range txs {
		if filters.Symbol != "" && t.StockSymbol != filters.Symbol {
			continue
		}
		if filters.Side != "" && t.Side != filters.Side {
			continue
		}
		filtered = append(filtered, t)
	}
	if filters.SortDir == "desc" {
		slices.Reverse(filtered)
	}
	return filtered, nil
}

// GetTransaction retrieves a single transaction by its ID.
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(ctx, id)
}

// CreateTransaction stores a manual transaction, creating its stock when needed.
// The request is expected to be validated.
func (s *TransactionService) CreateTransaction(ctx context.Context, req request.CreateTransactionRequest) (*model.Transaction, error) {
	transactionDate, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, err
	}
	ccy, err := currency.Parse(req.Currency)
	if err != nil {
		return nil, err
	}

	transaction := &model.Transaction{
		StockSymbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:            strings.ToLower(strings.TrimSpace(req.Side)),
		Quantity:        req.Quantity,
		PricePerShare:   req.PricePerShare,
		Currency:        ccy.String(),
		FeeAmount:       req.FeeAmount,
		TransactionDate: transactionDate,
	}
	if req.FeeCurrency != nil && *req.FeeCurrency != "" {
		feeCcy, err := currency.Parse(*req.FeeCurrency)
		if err != nil {
			return nil, err
		}
		code := feeCcy.String()
		transaction.FeeCurrency = &code
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stock, err := s.stockRepo.WithTx(tx).GetOrCreateStock(ctx, transaction.StockSymbol)
	if err != nil {
		return nil, err
	}
	transaction.StockID = stock.ID

	if err := s.transactionRepo.WithTx(tx).InsertTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return transaction, nil
}

// DeleteTransaction removes a transaction. Returns apperrors.ErrTransactionNotFound for unknown IDs.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	return s.transactionRepo.DeleteTransaction(ctx, id)
}
