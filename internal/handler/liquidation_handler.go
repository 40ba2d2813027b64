package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/middleware"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type liquidationService interface {
	DistributorMetrics(ctx context.Context, distributorID string) (*models.LiquidationMetrics, bool, error)
	Overview(ctx context.Context) (*models.LiquidationMetrics, bool, error)
	GetEntry(ctx context.Context, id string) (*models.LiquidationEntry, error)
	ListEntries(ctx context.Context, filter models.LiquidationFilter) ([]models.LiquidationEntry, error)
}

type entryLetterRenderer interface {
	EntryLetter(entry *models.LiquidationEntry, format string) (*service.ExportDocument, error)
}

// LiquidationHandler exposes liquidation metrics and submitted entries.
type LiquidationHandler struct {
	service liquidationService
	letters entryLetterRenderer
}

// NewLiquidationHandler constructs the handler.
func NewLiquidationHandler(svc liquidationService, letters entryLetterRenderer) *LiquidationHandler {
	return &LiquidationHandler{service: svc, letters: letters}
}

// DistributorMetrics godoc
// @Summary Liquidation metrics for a distributor
// @Tags Liquidation
// @Produce json
// @Param id path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Router /distributors/{id}/metrics [get]
func (h *LiquidationHandler) DistributorMetrics(c *gin.Context) {
	metrics, hit, err := h.service.DistributorMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, metrics, nil, middleware.ExtractMeta(c))
}

// Overview godoc
// @Summary Liquidation metrics across all distributors
// @Tags Liquidation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /liquidation/overview [get]
func (h *LiquidationHandler) Overview(c *gin.Context) {
	metrics, hit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, metrics, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List submitted liquidation entries
// @Tags Liquidation
// @Produce json
// @Param distributorId query string false "Distributor ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /liquidations [get]
func (h *LiquidationHandler) List(c *gin.Context) {
	filter := models.LiquidationFilter{
		DistributorID: c.Query("distributorId"),
		Limit:         intQuery(c, "limit", 20),
		Offset:        intQuery(c, "offset", 0),
	}
	entries, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Get godoc
// @Summary Get a submitted entry, or download it as a letter with ?format=
// @Tags Liquidation
// @Produce json
// @Param id path string true "Entry ID"
// @Param format query string false "pdf, xlsx or csv"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /liquidations/{id} [get]
func (h *LiquidationHandler) Get(c *gin.Context) {
	entry, err := h.service.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" && h.letters != nil {
		doc, err := h.letters.EntryLetter(entry, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, doc.ContentType, doc.Filename, doc.Data)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
