package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/services"
	"github.com/gin-gonic/gin"
)

// DashboardHandler handles price and analytics endpoints
type DashboardHandler struct {
	dashboardSvc *services.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardSvc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardSvc: dashboardSvc,
	}
}

// GetPrices handles GET /prices
// @Summary Get prices
// @Description Joined fact and dimension rows, filtered in memory after one cached load per currency
// @Tags prices
// @Produce json
// @Param currency query string false "ISO currency code (defaults to the first configured currency)"
// @Param start_date query string false "Start date (YYYY-MM-DD or RFC3339), inclusive"
// @Param end_date query string false "End date (YYYY-MM-DD or RFC3339), inclusive"
// @Param metal query []string false "Metal names" collectionFormat(multi)
// @Param market query []string false "Market names" collectionFormat(multi)
// @Param unit query string false "toz (default) or kg"
// @Success 200 {object} models.PricesResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /prices [get]
func (h *DashboardHandler) GetPrices(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.Prices(ctx, q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetKPI handles GET /analytics/kpi
// @Summary Headline KPIs
// @Description Latest price and daily % change of a metal on every market, plus the MCX premium over Spot
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param metal query string false "Metal name (default Silver)"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Param unit query string false "toz (default) or kg"
// @Success 200 {object} models.KPIResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/kpi [get]
func (h *DashboardHandler) GetKPI(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.KPI(ctx, q, first(q.Metal))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetMovingAverages handles GET /analytics/moving-averages
// @Summary Moving averages
// @Description Daily last-price series of one instrument with simple moving averages
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param metal query string false "Metal name (default Silver)"
// @Param market query string false "Market name (default Spot)"
// @Param windows query string false "Comma separated window sizes in days (default 7,30)"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Param unit query string false "toz (default) or kg"
// @Success 200 {object} services.MovingAveragesResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/moving-averages [get]
func (h *DashboardHandler) GetMovingAverages(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	windows, err := parseWindows(c.Query("windows"))
	if err != nil {
		badRequest(c, err)
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.MovingAverages(ctx, q, first(q.Metal), first(q.Market), windows)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetCorrelation handles GET /analytics/correlation
// @Summary Correlation matrix
// @Description Pearson correlation of metal prices on one market, matched on timestamp
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param market query string false "Market name (default Spot)"
// @Param metal query []string false "Restrict to these metals" collectionFormat(multi)
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {object} services.CorrelationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/correlation [get]
func (h *DashboardHandler) GetCorrelation(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.Correlation(ctx, q, first(q.Market))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetVolatility handles GET /analytics/volatility
// @Summary Volatility alerts
// @Description Instruments whose latest point-to-point move exceeds the threshold
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param threshold query number false "Absolute % change threshold (default 3.0)"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {object} services.VolatilityResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/volatility [get]
func (h *DashboardHandler) GetVolatility(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	threshold, err := parseThreshold(c.Query("threshold"))
	if err != nil {
		badRequest(c, err)
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.Volatility(ctx, q, threshold)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetMostVolatile handles GET /analytics/most-volatile
// @Summary Most volatile metal
// @Description Spot metal with the highest standard deviation of daily returns, or null
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {object} models.MostVolatileResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/most-volatile [get]
func (h *DashboardHandler) GetMostVolatile(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.MostVolatile(ctx, q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetPremium handles GET /analytics/premium
// @Summary Premium series
// @Description Futures price over reference price in percent, matched within one hour
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param metal query string false "Metal name (default Silver)"
// @Param futures query string false "Futures market (default MCX)"
// @Param reference query string false "Reference market (default Spot)"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Success 200 {object} services.PremiumResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/premium [get]
func (h *DashboardHandler) GetPremium(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.Premium(ctx, q, first(q.Metal), c.Query("futures"), c.Query("reference"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// GetOverview handles GET /analytics/overview
// @Summary Dashboard overview
// @Description Every analytic over one filtered table, computed concurrently
// @Tags analytics
// @Produce json
// @Param currency query string false "ISO currency code"
// @Param metal query string false "Metal name (default Silver)"
// @Param market query string false "Market name (default Spot)"
// @Param windows query string false "Comma separated window sizes in days (default 7,30)"
// @Param threshold query number false "Volatility threshold in percent (default 3.0)"
// @Param start_date query string false "Start date"
// @Param end_date query string false "End date"
// @Param unit query string false "toz (default) or kg"
// @Success 200 {object} services.OverviewResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analytics/overview [get]
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	q, ok := bindDashboardQuery(c)
	if !ok {
		return
	}
	windows, err := parseWindows(c.Query("windows"))
	if err != nil {
		badRequest(c, err)
		return
	}
	threshold, err := parseThreshold(c.Query("threshold"))
	if err != nil {
		badRequest(c, err)
		return
	}
	ctx, wc := services.NewWarningContext(c.Request.Context())

	resp, err := h.dashboardSvc.Overview(ctx, services.OverviewRequest{
		// the overview correlates every metal, so only the date range and unit filter the table
		Query: models.DashboardQuery{
			Currency:  q.Currency,
			StartDate: q.StartDate,
			EndDate:   q.EndDate,
			Unit:      q.Unit,
		},
		Metal:     first(q.Metal),
		Market:    first(q.Market),
		Windows:   windows,
		Threshold: threshold,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp.Warnings = wc.GetWarnings()
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /refresh
// @Summary Refresh cached data
// @Description Drop the cached price table so the next request reloads it from the database
// @Tags prices
// @Produce json
// @Param currency query string false "Only refresh this currency"
// @Success 200 {object} models.RefreshResponse
// @Router /refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboardSvc.Refresh(c.Query("currency")))
}

func bindDashboardQuery(c *gin.Context) (models.DashboardQuery, bool) {
	var q models.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return q, false
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate.Time) {
		badRequest(c, errors.New("end_date must not be before start_date"))
		return q, false
	}
	return q, true
}

func writeServiceError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInvalidUnit) {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

// first returns the first non-empty entry of a repeated or comma separated parameter
func first(values []string) string {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				return p
			}
		}
	}
	return ""
}

func parseWindows(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var windows []int
	for _, part := range strings.Split(s, ",") {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || w < 1 {
			return nil, fmt.Errorf("invalid window %q", part)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func parseThreshold(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid threshold %q", s)
	}
	return v, nil
}
