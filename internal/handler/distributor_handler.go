package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type distributorService interface {
	List(ctx context.Context, search string) ([]models.Distributor, error)
	SKUs(ctx context.Context, distributorID string) ([]models.SKURecord, error)
}

// DistributorHandler exposes distributors and their inventory.
type DistributorHandler struct {
	service distributorService
}

// NewDistributorHandler constructs the handler.
func NewDistributorHandler(svc distributorService) *DistributorHandler {
	return &DistributorHandler{service: svc}
}

// List godoc
// @Summary List distributors
// @Tags Distributors
// @Produce json
// @Param search query string false "Name or code"
// @Success 200 {object} response.Envelope
// @Router /distributors [get]
func (h *DistributorHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SKUs godoc
// @Summary Inventory snapshot of a distributor
// @Tags Distributors
// @Produce json
// @Param id path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributors/{id}/skus [get]
func (h *DistributorHandler) SKUs(c *gin.Context) {
	rows, err := h.service.SKUs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
