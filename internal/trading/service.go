package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paper-trading-go/internal/models"
	"paper-trading-go/internal/quote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service implements the trading business rules: buy, sell, deposit,
// withdraw, portfolio valuation and history. Every multi-row mutation
// runs inside a single database transaction so a failure mid-operation
// leaves no partial state behind.
type Service struct {
	db     *gorm.DB
	quotes quote.ClientInterface
	logger *zap.Logger
}

// NewService creates a new trading service.
func NewService(db *gorm.DB, quotes quote.ClientInterface, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		quotes: quotes,
		logger: logger,
	}
}

// Buy purchases shares of a symbol at the current quoted price. The
// quote is fetched exactly once; the price that passes the funds check
// is the price recorded in the transaction log.
func (s *Service) Buy(ctx context.Context, userID uint, symbol, sharesRaw string) (*models.Transaction, error) {
	shares, err := parseBuyShares(sharesRaw)
	if err != nil {
		return nil, err
	}

	symbol = normalizeSymbol(symbol)
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			return nil, ErrUnknownSymbol
		}
		return nil, fmt.Errorf("quote lookup failed: %w", err)
	}

	cost := q.Price.Mul(decimal.NewFromInt(shares))
	record := models.Transaction{
		UserID:         userID,
		Symbol:         q.Symbol,
		Shares:         shares,
		Price:          q.Price,
		TimeOfTransact: time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Debit guarded by the balance itself: zero rows affected means
		// the user cannot afford the purchase, and nothing has changed.
		res := tx.Model(&models.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			Update("cash", gorm.Expr("cash - ?", cost))
		if res.Error != nil {
			return fmt.Errorf("failed to debit cash: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrInsufficientFunds
		}

		var pos models.Position
		err := tx.Where("user_id = ? AND symbol = ?", userID, q.Symbol).First(&pos).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pos = models.Position{UserID: userID, Symbol: q.Symbol, Shares: shares}
			if err := tx.Create(&pos).Error; err != nil {
				return fmt.Errorf("failed to create position: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load position: %w", err)
		default:
			if err := tx.Model(&pos).Update("shares", gorm.Expr("shares + ?", shares)).Error; err != nil {
				return fmt.Errorf("failed to increment position: %w", err)
			}
		}

		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Buy executed",
		zap.Uint("user_id", userID),
		zap.String("symbol", q.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", q.Price.String()),
	)
	return &record, nil
}

// Sell sells shares of a symbol at the current quoted price. A user with
// no position in the symbol holds zero shares, so any sale is an
// oversell, not a fault.
func (s *Service) Sell(ctx context.Context, userID uint, symbol, sharesRaw string) (*models.Transaction, error) {
	shares, err := parseSellShares(sharesRaw)
	if err != nil {
		return nil, err
	}

	symbol = normalizeSymbol(symbol)
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			return nil, ErrUnknownSymbol
		}
		return nil, fmt.Errorf("quote lookup failed: %w", err)
	}

	proceeds := q.Price.Mul(decimal.NewFromInt(shares))
	record := models.Transaction{
		UserID:         userID,
		Symbol:         q.Symbol,
		Shares:         -shares,
		Price:          q.Price,
		TimeOfTransact: time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pos models.Position
		err := tx.Where("user_id = ? AND symbol = ?", userID, q.Symbol).First(&pos).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOverSell
		}
		if err != nil {
			return fmt.Errorf("failed to load position: %w", err)
		}
		if shares > pos.Shares {
			return ErrOverSell
		}

		if shares == pos.Shares {
			// No zero-share rows: selling the whole position removes it.
			if err := tx.Unscoped().Delete(&pos).Error; err != nil {
				return fmt.Errorf("failed to delete position: %w", err)
			}
		} else {
			if err := tx.Model(&pos).Update("shares", gorm.Expr("shares - ?", shares)).Error; err != nil {
				return fmt.Errorf("failed to decrement position: %w", err)
			}
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", proceeds)).Error; err != nil {
			return fmt.Errorf("failed to credit cash: %w", err)
		}

		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sell executed",
		zap.Uint("user_id", userID),
		zap.String("symbol", q.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", q.Price.String()),
	)
	return &record, nil
}

// Deposit credits cash. Non-positive amounts are rejected; a deposit
// can never reduce the balance.
func (s *Service) Deposit(ctx context.Context, userID uint, amountRaw string) error {
	amount, err := parseAmount(amountRaw)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("cash", gorm.Expr("cash + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to credit cash: %w", res.Error)
	}

	s.logger.Info("Deposit executed", zap.Uint("user_id", userID), zap.String("amount", amount.String()))
	return nil
}

// Withdraw debits cash, refusing to take the balance below zero.
func (s *Service) Withdraw(ctx context.Context, userID uint, amountRaw string) error {
	amount, err := parseAmount(amountRaw)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND cash >= ?", userID, amount).
		Update("cash", gorm.Expr("cash - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to debit cash: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrInsufficientFunds
	}

	s.logger.Info("Withdrawal executed", zap.Uint("user_id", userID), zap.String("amount", amount.String()))
	return nil
}

// Holding is one portfolio line: a position priced at the current quote.
type Holding struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}

// Portfolio is the full valuation of an account: every holding priced
// live, plus uninvested cash and the grand total.
type Portfolio struct {
	Cash       decimal.Decimal `json:"cash"`
	Holdings   []Holding       `json:"holdings"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// GetPortfolio values the user's account at current prices. Quotes are
// fetched per symbol at view time; there is no price cache.
func (s *Service) GetPortfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var positions []models.Position
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol").
		Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	portfolio := &Portfolio{
		Cash:       user.Cash,
		Holdings:   make([]Holding, 0, len(positions)),
		GrandTotal: user.Cash,
	}

	for _, pos := range positions {
		q, err := s.quotes.Lookup(ctx, pos.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to price held symbol %s: %w", pos.Symbol, err)
		}
		total := q.Price.Mul(decimal.NewFromInt(pos.Shares))
		portfolio.Holdings = append(portfolio.Holdings, Holding{
			Symbol: pos.Symbol,
			Name:   q.Name,
			Shares: pos.Shares,
			Price:  q.Price,
			Total:  total,
		})
		portfolio.GrandTotal = portfolio.GrandTotal.Add(total)
	}

	return portfolio, nil
}

// GetHistory returns the user's transactions, oldest first.
func (s *Service) GetHistory(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("time_of_transact").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return transactions, nil
}

// GetQuote looks up a symbol for the quote page.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	q, err := s.quotes.Lookup(ctx, normalizeSymbol(symbol))
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			return nil, ErrUnknownSymbol
		}
		return nil, fmt.Errorf("quote lookup failed: %w", err)
	}
	return q, nil
}
