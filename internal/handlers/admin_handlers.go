package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxImportBytes bounds the size of an uploaded CSV
const maxImportBytes = 32 << 20

// AdminHandler handles admin endpoints
type AdminHandler struct {
	ingestSvc  *services.IngestService
	cacheReset func(currency string) *models.RefreshResponse
	currencies []string
}

// NewAdminHandler creates a new AdminHandler. Writes invalidate the dashboard
// cache through dashboardSvc.
func NewAdminHandler(ingestSvc *services.IngestService, dashboardSvc *services.DashboardService, currencies []string) *AdminHandler {
	return &AdminHandler{
		ingestSvc:  ingestSvc,
		cacheReset: dashboardSvc.Refresh,
		currencies: currencies,
	}
}

// Ingest handles POST /admin/ingest
// @Summary Run an ingestion cycle
// @Description Fetch the latest quotes and upsert them. Without a currency every configured currency is ingested.
// @Tags admin
// @Produce json
// @Param currency query string false "ISO currency code"
// @Success 200 {array} services.IngestOutcome
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/ingest [post]
func (h *AdminHandler) Ingest(c *gin.Context) {
	var req models.IngestRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	currencies := h.currencies
	if req.Currency != "" {
		currencies = []string{strings.ToUpper(req.Currency)}
	}

	outcomes, err := h.ingestSvc.RunCycle(c.Request.Context(), currencies)
	if errors.Is(err, services.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	for _, o := range outcomes {
		if o.FactsWritten > 0 {
			h.cacheReset(o.Currency)
		}
	}
	c.JSON(http.StatusOK, outcomes)
}

// Import handles POST /admin/import
// @Summary Import historical prices from CSV
// @Description Upload a CSV with columns metal, market, currency, timestamp, price, as a multipart "file" field or as the raw request body
// @Tags admin
// @Accept mpfd
// @Accept text/csv
// @Produce json
// @Param file formData file false "CSV file"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/import [post]
func (h *AdminHandler) Import(c *gin.Context) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: "file field is required",
			})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
		defer f.Close()
		body = f
	}

	records, err := ParsePriceCSV(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_csv",
			Message: err.Error(),
		})
		return
	}

	result, err := h.ingestSvc.ImportRecords(c.Request.Context(), records)
	if err != nil {
		log.Errorf("CSV import failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	if result.FactsWritten > 0 {
		h.cacheReset("")
	}
	c.JSON(http.StatusOK, result)
}
