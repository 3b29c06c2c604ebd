package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"findash/internal/marketdata"
	"findash/internal/model"
	"findash/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User, fields map[string]interface{}) error {
	args := m.Called(ctx, user, fields)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockStockPriceRepository is a mock implementation of StockPriceRepository.
// WithTransaction runs fn against the mock itself unless an error is stubbed.
type MockStockPriceRepository struct {
	mock.Mock
}

func (m *MockStockPriceRepository) Create(ctx context.Context, price *model.StockPrice) error {
	args := m.Called(ctx, price)
	return args.Error(0)
}

func (m *MockStockPriceRepository) CreateBulk(ctx context.Context, prices []model.StockPrice) error {
	args := m.Called(ctx, prices)
	return args.Error(0)
}

func (m *MockStockPriceRepository) FindBySymbol(ctx context.Context, q repository.PriceQuery) ([]model.StockPrice, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockPrice), args.Error(1)
}

func (m *MockStockPriceRepository) DeleteBySymbolAndSource(ctx context.Context, symbol, source string) (int64, error) {
	args := m.Called(ctx, symbol, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStockPriceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.StockPriceRepository) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockProvider is a mock market data provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) DailyBars(ctx context.Context, symbol string, size marketdata.OutputSize) ([]marketdata.Bar, error) {
	args := m.Called(ctx, symbol, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.Bar), args.Error(1)
}

func (m *MockProvider) Source() string {
	return marketdata.AlphaVantageSource
}
