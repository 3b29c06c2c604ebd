package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "findash/internal/errors"
	"findash/internal/marketdata"
	"findash/internal/metrics"
	"findash/internal/model"
	"findash/internal/repository"
)

// FetchResult summarizes one fetch-and-store run.
type FetchResult struct {
	Symbol  string
	Source  string
	Fetched int
	Deleted int64
	Stored  int
}

// StockService exposes price store operations and the provider import.
type StockService interface {
	Create(ctx context.Context, price *model.StockPrice) (*model.StockPrice, error)
	CreateBulk(ctx context.Context, prices []model.StockPrice, commonSource *string) ([]model.StockPrice, error)
	Query(ctx context.Context, q repository.PriceQuery) ([]model.StockPrice, error)
	DeleteBySymbolAndSource(ctx context.Context, symbol, source string) (int64, error)
	FetchAndStore(ctx context.Context, symbol string, size marketdata.OutputSize, refresh bool) (*FetchResult, error)
}

type stockService struct {
	repo     repository.StockPriceRepository
	provider marketdata.Provider
	log      *logrus.Logger
}

// NewStockService builds a StockService. provider may be nil, in which case
// FetchAndStore reports the provider as not configured.
func NewStockService(repo repository.StockPriceRepository, provider marketdata.Provider, log *logrus.Logger) StockService {
	return &stockService{repo: repo, provider: provider, log: log}
}

func (s *stockService) Create(ctx context.Context, price *model.StockPrice) (*model.StockPrice, error) {
	if err := s.repo.Create(ctx, price); err != nil {
		return nil, fmt.Errorf("create stock price: %w", err)
	}
	metrics.AddPricesStored(price.SourceOrEmpty(), 1)
	return price, nil
}

// CreateBulk stores prices in order as one unit. commonSource fills in rows
// without their own data source.
func (s *stockService) CreateBulk(ctx context.Context, prices []model.StockPrice, commonSource *string) ([]model.StockPrice, error) {
	if commonSource != nil {
		for i := range prices {
			if prices[i].DataSource == nil {
				src := *commonSource
				prices[i].DataSource = &src
			}
		}
	}
	if err := s.repo.CreateBulk(ctx, prices); err != nil {
		return nil, fmt.Errorf("bulk create stock prices: %w", err)
	}
	for _, p := range prices {
		metrics.AddPricesStored(p.SourceOrEmpty(), 1)
	}
	if prices == nil {
		prices = []model.StockPrice{}
	}
	return prices, nil
}

func (s *stockService) Query(ctx context.Context, q repository.PriceQuery) ([]model.StockPrice, error) {
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return nil, apperrors.ErrInvalidDateRange
	}
	prices, err := s.repo.FindBySymbol(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stock prices: %w", err)
	}
	return prices, nil
}

func (s *stockService) DeleteBySymbolAndSource(ctx context.Context, symbol, source string) (int64, error) {
	n, err := s.repo.DeleteBySymbolAndSource(ctx, symbol, source)
	if err != nil {
		return 0, fmt.Errorf("delete stock prices: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"symbol": model.NormalizeSymbol(symbol), "data_source": source, "deleted": n,
	}).Info("stock prices deleted")
	return n, nil
}

// FetchAndStore pulls daily bars from the provider and stores them under the
// provider's source label. With refresh, the provider's existing rows for the
// symbol are replaced in the same transaction.
func (s *stockService) FetchAndStore(ctx context.Context, symbol string, size marketdata.OutputSize, refresh bool) (*FetchResult, error) {
	symbol = model.NormalizeSymbol(symbol)
	if s.provider == nil {
		return nil, &marketdata.Error{
			Kind:    marketdata.KindNotConfigured,
			Message: "Market data provider is not configured.",
		}
	}
	source := s.provider.Source()
	result := &FetchResult{Symbol: symbol, Source: source}

	bars, err := s.provider.DailyBars(ctx, symbol, size)
	if err != nil {
		var upstream *marketdata.Error
		outcome := "error"
		if errors.As(err, &upstream) {
			outcome = upstream.Kind.String()
		}
		metrics.RecordFetch(source, outcome)
		s.log.WithError(err).WithField("symbol", symbol).Warn("market data fetch failed")
		return nil, err
	}
	metrics.RecordFetch(source, "ok")
	result.Fetched = len(bars)
	if len(bars) == 0 {
		return result, nil
	}

	prices := make([]model.StockPrice, len(bars))
	for i, b := range bars {
		src := source
		prices[i] = model.StockPrice{
			Symbol:     symbol,
			Date:       model.DateOf(b.Date),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			DataSource: &src,
		}
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.StockPriceRepository) error {
		if refresh {
			n, err := tx.DeleteBySymbolAndSource(ctx, symbol, source)
			if err != nil {
				return err
			}
			result.Deleted = n
		}
		return tx.CreateBulk(ctx, prices)
	})
	if err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Error("storing fetched prices failed")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreFetched, err)
	}
	result.Stored = len(prices)
	metrics.AddPricesStored(source, len(prices))

	s.log.WithFields(logrus.Fields{
		"symbol": symbol, "source": source, "stored": result.Stored, "replaced": result.Deleted,
	}).Info("prices fetched")
	return result, nil
}
