package repository

import (
	"context"

	"gorm.io/gorm"

	"findash/internal/model"
)

const insertBatchSize = 500

// PriceQuery selects stock prices for one symbol. Nil dates leave that side
// of the range open; both bounds are inclusive.
type PriceQuery struct {
	Symbol    string
	Skip      int
	Limit     int
	StartDate *model.Date
	EndDate   *model.Date
}

// StockPriceRepository defines persistence operations for daily price bars.
// Symbols are upper-cased on every write and every lookup.
type StockPriceRepository interface {
	Create(ctx context.Context, price *model.StockPrice) error
	CreateBulk(ctx context.Context, prices []model.StockPrice) error
	FindBySymbol(ctx context.Context, q PriceQuery) ([]model.StockPrice, error)
	DeleteBySymbolAndSource(ctx context.Context, symbol, source string) (int64, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo StockPriceRepository) error) error
}

type stockPriceRepository struct {
	db *gorm.DB
}

// NewStockPriceRepository builds a GORM-backed repository.
func NewStockPriceRepository(db *gorm.DB) StockPriceRepository {
	return &stockPriceRepository{db: db}
}

func (r *stockPriceRepository) Create(ctx context.Context, price *model.StockPrice) error {
	return r.db.WithContext(ctx).Create(price).Error
}

// CreateBulk inserts prices in the given order as a single unit; either every
// row is stored or none is.
func (r *stockPriceRepository) CreateBulk(ctx context.Context, prices []model.StockPrice) error {
	if len(prices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&prices, insertBatchSize).Error
	})
}

// FindBySymbol returns matching rows newest first. An empty result is not an error.
func (r *stockPriceRepository) FindBySymbol(ctx context.Context, q PriceQuery) ([]model.StockPrice, error) {
	prices := []model.StockPrice{}
	tx := r.db.WithContext(ctx).
		Where("symbol = ?", model.NormalizeSymbol(q.Symbol))
	if q.StartDate != nil {
		tx = tx.Where("date >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		tx = tx.Where("date <= ?", *q.EndDate)
	}
	tx = tx.Order("date DESC").Order("id DESC").Offset(q.Skip)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// DeleteBySymbolAndSource removes every row of symbol whose data_source equals
// source exactly and returns how many were removed.
func (r *stockPriceRepository) DeleteBySymbolAndSource(ctx context.Context, symbol, source string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("symbol = ? AND data_source = ?", model.NormalizeSymbol(symbol), source).
		Delete(&model.StockPrice{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// WithTransaction runs fn inside a database transaction. Every call fn makes
// must go through repo.
func (r *stockPriceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo StockPriceRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &stockPriceRepository{db: tx})
	})
}
