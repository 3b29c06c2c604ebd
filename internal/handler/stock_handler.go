package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "findash/internal/errors"
	"findash/internal/marketdata"
	"findash/internal/model"
	"findash/internal/repository"
	"findash/internal/service"
)

// StockHandler serves the price store endpoints.
type StockHandler struct {
	svc service.StockService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(svc service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// StockPriceRequest is one daily bar submitted by a client.
type StockPriceRequest struct {
	Symbol     string          `json:"symbol" validate:"required,max=32"`
	Date       model.Date      `json:"date" validate:"required"`
	Open       decimal.Decimal `json:"open" swaggertype:"number" validate:"gt=0"`
	High       decimal.Decimal `json:"high" swaggertype:"number" validate:"gt=0"`
	Low        decimal.Decimal `json:"low" swaggertype:"number" validate:"gt=0"`
	Close      decimal.Decimal `json:"close" swaggertype:"number" validate:"gt=0"`
	Volume     *int64          `json:"volume" validate:"required,gte=0"`
	DataSource *string         `json:"data_source" validate:"omitempty,max=100"`
}

// StockPriceBulkRequest submits many bars with an optional common source.
type StockPriceBulkRequest struct {
	Prices     []StockPriceRequest `json:"prices" validate:"required,dive"`
	DataSource *string             `json:"data_source" validate:"omitempty,max=100"`
}

type priceQueryParams struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=1,lte=1000"`
}

func (r StockPriceRequest) ToModel() model.StockPrice {
	return model.StockPrice{
		Symbol:     model.NormalizeSymbol(r.Symbol),
		Date:       r.Date,
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     *r.Volume,
		DataSource: r.DataSource,
	}
}

// CreatePrice godoc
// @Summary Create a single stock price entry (superuser only)
// @Tags stocks
// @Accept json
// @Produce json
// @Security OAuth2Password
// @Param price body StockPriceRequest true "Daily bar"
// @Success 201 {object} model.StockPrice
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /stocks/ [post]
func (h *StockHandler) CreatePrice(c echo.Context) error {
	var req StockPriceRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	price := req.ToModel()
	created, err := h.svc.Create(c.Request().Context(), &price)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// CreatePricesBulk godoc
// @Summary Create many stock price entries in one transaction (superuser only)
// @Tags stocks
// @Accept json
// @Produce json
// @Security OAuth2Password
// @Param prices body StockPriceBulkRequest true "Daily bars"
// @Success 201 {array} model.StockPrice
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /stocks/bulk [post]
func (h *StockHandler) CreatePricesBulk(c echo.Context) error {
	var req StockPriceBulkRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	prices := make([]model.StockPrice, len(req.Prices))
	for i, p := range req.Prices {
		prices[i] = p.ToModel()
	}
	created, err := h.svc.CreateBulk(c.Request().Context(), prices, req.DataSource)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetPrices godoc
// @Summary Get stock prices by symbol, newest first
// @Tags stocks
// @Produce json
// @Param symbol path string true "Ticker symbol (case-insensitive)"
// @Param skip query int false "Rows to skip" default(0)
// @Param limit query int false "Maximum rows (1-1000)" default(100)
// @Param start_date query string false "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {array} model.StockPrice
// @Failure 400 {object} errors.ErrorResponse "Start date after end date"
// @Failure 422 {object} errors.ErrorResponse
// @Router /stocks/{symbol} [get]
func (h *StockHandler) GetPrices(c echo.Context) error {
	params := priceQueryParams{Limit: 100}
	var start, end model.Date
	if err := echo.QueryParamsBinder(c).
		Int("skip", &params.Skip).
		Int("limit", &params.Limit).
		BindUnmarshaler("start_date", &start).
		BindUnmarshaler("end_date", &end).
		BindError(); err != nil {
		return queryError(err)
	}
	if err := validate(c, &params, "query"); err != nil {
		return err
	}

	q := repository.PriceQuery{
		Symbol: c.Param("symbol"),
		Skip:   params.Skip,
		Limit:  params.Limit,
	}
	if c.QueryParam("start_date") != "" {
		q.StartDate = &start
	}
	if c.QueryParam("end_date") != "" {
		q.EndDate = &end
	}

	prices, err := h.svc.Query(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prices)
}

// DeletePrices godoc
// @Summary Delete stock prices by symbol and data source (superuser only)
// @Tags stocks
// @Produce json
// @Security OAuth2Password
// @Param symbol path string true "Ticker symbol"
// @Param data_source query string true "Exact data source label"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /stocks/{symbol} [delete]
func (h *StockHandler) DeletePrices(c echo.Context) error {
	source := c.QueryParam("data_source")
	if source == "" {
		return missing("query", "data_source")
	}
	symbol := model.NormalizeSymbol(c.Param("symbol"))

	n, err := h.svc.DeleteBySymbolAndSource(c.Request().Context(), symbol, source)
	if err != nil {
		return err
	}
	if n == 0 {
		return c.JSON(http.StatusOK, MessageResponse{
			Message: fmt.Sprintf("No stock prices found for symbol %s from source '%s' to delete.", symbol, source),
		})
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Successfully deleted %d entries for symbol %s from source '%s'.", n, symbol, source),
	})
}

// FetchPrices godoc
// @Summary Fetch daily prices from the market data provider and store them (superuser only)
// @Tags stocks
// @Produce json
// @Security OAuth2Password
// @Param symbol path string true "Ticker symbol"
// @Param output_size query string false "compact (latest 100 points) or full" Enums(compact, full) default(compact)
// @Param refresh_data query bool false "Replace the provider's existing rows for the symbol" default(true)
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse "Provider rejected the symbol"
// @Failure 408 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /stocks/fetch/{symbol} [post]
func (h *StockHandler) FetchPrices(c echo.Context) error {
	refresh := true
	if err := echo.QueryParamsBinder(c).Bool("refresh_data", &refresh).BindError(); err != nil {
		return queryError(err)
	}
	size, err := marketdata.ParseOutputSize(c.QueryParam("output_size"))
	if err != nil {
		return apperrors.NewValidationError([]string{"query", "output_size"},
			"value is not a valid enumeration member; permitted: 'compact', 'full'", "type_error.enum")
	}
	symbol := model.NormalizeSymbol(c.Param("symbol"))

	result, err := h.svc.FetchAndStore(c.Request().Context(), symbol, size, refresh)
	if err != nil {
		return err
	}
	if result.Fetched == 0 {
		return c.JSON(http.StatusOK, MessageResponse{
			Message: fmt.Sprintf("No data fetched from %s for symbol %s. Nothing stored.", result.Source, symbol),
		})
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Successfully fetched and stored %d data points for symbol %s from %s.", result.Stored, symbol, result.Source),
	})
}
