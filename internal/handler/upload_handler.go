package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type uploadService interface {
	Upload(ctx context.Context, upload service.FileUpload, actor *models.JWTClaims) (*dto.UploadResponse, error)
	Open(ctx context.Context, key, token string) (*service.FileDownload, error)
}

// UploadHandler stores proof and signature files and serves signed local downloads.
type UploadHandler struct {
	service uploadService
	maxBody int64
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(svc uploadService, maxBody int64) *UploadHandler {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &UploadHandler{service: svc, maxBody: maxBody}
}

// Upload godoc
// @Summary Upload a file
// @Tags Uploads
// @Accept mpfd
// @Produce json
// @Param file formData file true "File"
// @Param kind formData string false "proofs or signatures"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	kind := c.DefaultPostForm("kind", service.UploadKindProof)
	upload, ok := readMultipartFile(c, "file", kind, h.maxBody)
	if !ok {
		return
	}
	res, err := h.service.Upload(c.Request.Context(), upload, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// File godoc
// @Summary Download a stored file via signed token
// @Tags Uploads
// @Produce octet-stream
// @Param key path string true "Object key"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/{key} [get]
func (h *UploadHandler) File(c *gin.Context) {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Open(c.Request.Context(), c.Param("key"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}
