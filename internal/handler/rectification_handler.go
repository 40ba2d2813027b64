package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type rectificationService interface {
	Request(ctx context.Context, req dto.CreateRectificationRequest, actor *models.JWTClaims) (*models.Rectification, error)
	List(ctx context.Context, query dto.RectificationQuery, actor *models.JWTClaims) ([]models.Rectification, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Rectification, error)
	Review(ctx context.Context, id string, req dto.ReviewRectificationRequest, actor *models.JWTClaims) (*models.Rectification, error)
}

// RectificationHandler exposes stock rectification requests.
type RectificationHandler struct {
	service rectificationService
}

// NewRectificationHandler constructs the handler.
func NewRectificationHandler(svc rectificationService) *RectificationHandler {
	return &RectificationHandler{service: svc}
}

// Create godoc
// @Summary Request a stock rectification
// @Tags Rectifications
// @Accept json
// @Produce json
// @Param payload body dto.CreateRectificationRequest true "Rectification"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rectifications [post]
func (h *RectificationHandler) Create(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.CreateRectificationRequest
	if !bindJSON(c, &req, "invalid rectification payload") {
		return
	}
	rec, err := h.service.Request(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// List godoc
// @Summary List rectification requests
// @Tags Rectifications
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param distributorId query string false "Distributor ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /rectifications [get]
func (h *RectificationHandler) List(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	query := dto.RectificationQuery{
		DistributorID: c.Query("distributorId"),
		Limit:         intQuery(c, "limit", 20),
		Offset:        intQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(strings.ToUpper(s)); s != "" {
				query.Status = append(query.Status, models.RectificationStatus(s))
			}
		}
	}
	items, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a rectification request
// @Tags Rectifications
// @Produce json
// @Param id path string true "Rectification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rectifications/{id} [get]
func (h *RectificationHandler) Get(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Review godoc
// @Summary Approve or reject a rectification
// @Tags Rectifications
// @Accept json
// @Produce json
// @Param id path string true "Rectification ID"
// @Param payload body dto.ReviewRectificationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rectifications/{id}/review [post]
func (h *RectificationHandler) Review(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.ReviewRectificationRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	rec, err := h.service.Review(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}
