package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type retailerService interface {
	Search(ctx context.Context, query string) ([]dto.RetailerSearchResult, error)
	CheckDuplicates(ctx context.Context, req dto.DuplicateCheckRequest) (*models.DuplicateReport, error)
	Create(ctx context.Context, req dto.CreateRetailerRequest, actor *models.JWTClaims) (*models.Retailer, error)
}

// RetailerHandler exposes the retailer directory.
type RetailerHandler struct {
	service retailerService
}

// NewRetailerHandler constructs the handler.
func NewRetailerHandler(svc retailerService) *RetailerHandler {
	return &RetailerHandler{service: svc}
}

// List godoc
// @Summary Search retailers
// @Tags Retailers
// @Produce json
// @Param search query string false "Name, outlet, code or phone"
// @Success 200 {object} response.Envelope
// @Router /retailers [get]
func (h *RetailerHandler) List(c *gin.Context) {
	items, err := h.service.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Register a retailer
// @Tags Retailers
// @Accept json
// @Produce json
// @Param payload body dto.CreateRetailerRequest true "Retailer"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /retailers [post]
func (h *RetailerHandler) Create(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.CreateRetailerRequest
	if !bindJSON(c, &req, "invalid retailer payload") {
		return
	}
	retailer, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, retailer)
}

// Duplicates godoc
// @Summary Check a retailer for duplicates
// @Tags Retailers
// @Accept json
// @Produce json
// @Param payload body dto.DuplicateCheckRequest true "Name and phone"
// @Success 200 {object} response.Envelope
// @Router /retailers/duplicates [post]
func (h *RetailerHandler) Duplicates(c *gin.Context) {
	var req dto.DuplicateCheckRequest
	if !bindJSON(c, &req, "invalid duplicate check payload") {
		return
	}
	report, err := h.service.CheckDuplicates(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
