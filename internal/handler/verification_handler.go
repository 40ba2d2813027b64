package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
	"github.com/noah-isme/liquidation-verify-api/pkg/response"
)

type verificationService interface {
	Open(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.OpenVerificationRequest) (*dto.OpenVerificationResponse, error)
	Resume(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	DiscardDraft(ctx context.Context, actor *models.JWTClaims, distributorID string) error
	Get(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	SetStockInputs(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.StockInputRequest) (*workflow.Workflow, error)
	Next(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	Back(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	UpdateAllocation(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.AllocationUpdateRequest) (*workflow.Workflow, error)
	AddRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.RetailerRowRequest) (*workflow.Workflow, int, error)
	UpdateRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, index int, req dto.RetailerRowRequest) (*workflow.Workflow, error)
	RemoveRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, index int) (*workflow.Workflow, error)
	CreateRetailerForSKU(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.CreateRetailerForSKURequest) (*dto.CreateRetailerResponse, error)
	CaptureSignature(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.SignatureRequest) (*workflow.Workflow, error)
	ClearSignature(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)
	UploadProof(ctx context.Context, actor *models.JWTClaims, distributorID string, upload service.FileUpload, location *workflow.Location) (*workflow.Workflow, error)
	RemoveProof(ctx context.Context, actor *models.JWTClaims, distributorID, proofID string) (*workflow.Workflow, error)
	Submit(ctx context.Context, actor *models.JWTClaims, distributorID string) (*dto.SubmitResponse, error)
}

type letterRenderer interface {
	VerificationLetter(w *workflow.Workflow, format string, now time.Time) (*service.ExportDocument, error)
}

// VerificationHandler exposes the stock verification workflow.
type VerificationHandler struct {
	service verificationService
	letters letterRenderer
	maxBody int64
}

// NewVerificationHandler constructs the handler. maxBody caps proof uploads.
func NewVerificationHandler(svc verificationService, letters letterRenderer, maxBody int64) *VerificationHandler {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &VerificationHandler{service: svc, letters: letters, maxBody: maxBody}
}

type workflowCall func(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error)

// run executes a workflow operation and renders the resulting view.
func (h *VerificationHandler) run(c *gin.Context, call workflowCall) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	w, err := call(c.Request.Context(), actor, c.Param("distributorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewVerificationView(w), nil)
}

// Open godoc
// @Summary Open a verification
// @Description Starts a fresh verification for the distributor and offers a same-day draft when one exists
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param payload body dto.OpenVerificationRequest false "Device location"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /verifications/{distributorId}/open [post]
func (h *VerificationHandler) Open(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.OpenVerificationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid open payload") {
		return
	}
	res, err := h.service.Open(c.Request.Context(), actor, c.Param("distributorId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Resume godoc
// @Summary Resume today's draft
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /verifications/{distributorId}/resume [post]
func (h *VerificationHandler) Resume(c *gin.Context) {
	h.run(c, h.service.Resume)
}

// DiscardDraft godoc
// @Summary Discard the saved draft
// @Tags Verifications
// @Param distributorId path string true "Distributor ID"
// @Success 204
// @Router /verifications/{distributorId}/draft [delete]
func (h *VerificationHandler) DiscardDraft(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	if err := h.service.DiscardDraft(c.Request.Context(), actor, c.Param("distributorId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Current verification state
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId} [get]
func (h *VerificationHandler) Get(c *gin.Context) {
	h.run(c, h.service.Get)
}

// SetStock godoc
// @Summary Enter new stock values
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param payload body dto.StockInputRequest true "Raw stock entries keyed by SKU key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /verifications/{distributorId}/stock [put]
func (h *VerificationHandler) SetStock(c *gin.Context) {
	var req dto.StockInputRequest
	if !bindJSON(c, &req, "invalid stock payload") {
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.SetStockInputs(ctx, actor, id, req)
	})
}

// Next godoc
// @Summary Advance to the next stage
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /verifications/{distributorId}/next [post]
func (h *VerificationHandler) Next(c *gin.Context) {
	h.run(c, h.service.Next)
}

// Back godoc
// @Summary Return to the previous stage
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/back [post]
func (h *VerificationHandler) Back(c *gin.Context) {
	h.run(c, h.service.Back)
}

// Cancel godoc
// @Summary Cancel the verification
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/cancel [post]
func (h *VerificationHandler) Cancel(c *gin.Context) {
	h.run(c, h.service.Cancel)
}

// UpdateAllocation godoc
// @Summary Set farmer quantity and pending retailer total
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param skuKey path string true "SKU key"
// @Param payload body dto.AllocationUpdateRequest true "Allocation"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/allocations/{skuKey} [put]
func (h *VerificationHandler) UpdateAllocation(c *gin.Context) {
	var req dto.AllocationUpdateRequest
	if !bindJSON(c, &req, "invalid allocation payload") {
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.UpdateAllocation(ctx, actor, id, c.Param("skuKey"), req)
	})
}

// AddRetailerRow godoc
// @Summary Add a retailer allocation row
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param skuKey path string true "SKU key"
// @Param payload body dto.RetailerRowRequest false "Row"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /verifications/{distributorId}/allocations/{skuKey}/retailers [post]
func (h *VerificationHandler) AddRetailerRow(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.RetailerRowRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid retailer row payload") {
		return
	}
	w, index, err := h.service.AddRetailerRow(c.Request.Context(), actor, c.Param("distributorId"), c.Param("skuKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.NewVerificationView(w), nil, map[string]interface{}{"rowIndex": index})
}

// UpdateRetailerRow godoc
// @Summary Select a retailer or change quantity on a row
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param skuKey path string true "SKU key"
// @Param index path int true "Row index"
// @Param payload body dto.RetailerRowRequest true "Row"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/allocations/{skuKey}/retailers/{index} [put]
func (h *VerificationHandler) UpdateRetailerRow(c *gin.Context) {
	index, ok := intParam(c, "index")
	if !ok {
		return
	}
	var req dto.RetailerRowRequest
	if !bindJSON(c, &req, "invalid retailer row payload") {
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.UpdateRetailerRow(ctx, actor, id, c.Param("skuKey"), index, req)
	})
}

// RemoveRetailerRow godoc
// @Summary Remove a retailer allocation row
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param skuKey path string true "SKU key"
// @Param index path int true "Row index"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/allocations/{skuKey}/retailers/{index} [delete]
func (h *VerificationHandler) RemoveRetailerRow(c *gin.Context) {
	index, ok := intParam(c, "index")
	if !ok {
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.RemoveRetailerRow(ctx, actor, id, c.Param("skuKey"), index)
	})
}

// CreateRetailer godoc
// @Summary Register a new retailer and allocate to it
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param skuKey path string true "SKU key"
// @Param payload body dto.CreateRetailerForSKURequest true "Retailer"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /verifications/{distributorId}/allocations/{skuKey}/retailers/new [post]
func (h *VerificationHandler) CreateRetailer(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	var req dto.CreateRetailerForSKURequest
	if !bindJSON(c, &req, "invalid retailer payload") {
		return
	}
	res, err := h.service.CreateRetailerForSKU(c.Request.Context(), actor, c.Param("distributorId"), c.Param("skuKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// CaptureSignature godoc
// @Summary Capture the e-signature
// @Tags Verifications
// @Accept json
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param payload body dto.SignatureRequest true "Signature"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/signature [put]
func (h *VerificationHandler) CaptureSignature(c *gin.Context) {
	var req dto.SignatureRequest
	if !bindJSON(c, &req, "invalid signature payload") {
		return
	}
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.CaptureSignature(ctx, actor, id, req)
	})
}

// ClearSignature godoc
// @Summary Clear the e-signature
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/signature [delete]
func (h *VerificationHandler) ClearSignature(c *gin.Context) {
	h.run(c, h.service.ClearSignature)
}

// UploadProof godoc
// @Summary Attach a proof photo or document
// @Tags Verifications
// @Accept mpfd
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param file formData file true "Proof file"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Param address formData string false "Address"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /verifications/{distributorId}/proofs [post]
func (h *VerificationHandler) UploadProof(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	upload, ok := readMultipartFile(c, "file", service.UploadKindProof, h.maxBody)
	if !ok {
		return
	}
	w, err := h.service.UploadProof(c.Request.Context(), actor, c.Param("distributorId"), upload, formLocation(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.NewVerificationView(w), nil)
}

// RemoveProof godoc
// @Summary Remove a proof
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Param proofId path string true "Proof ID"
// @Success 200 {object} response.Envelope
// @Router /verifications/{distributorId}/proofs/{proofId} [delete]
func (h *VerificationHandler) RemoveProof(c *gin.Context) {
	h.run(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Workflow, error) {
		return h.service.RemoveProof(ctx, actor, id, c.Param("proofId"))
	})
}

// Submit godoc
// @Summary Submit the verification
// @Tags Verifications
// @Produce json
// @Param distributorId path string true "Distributor ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /verifications/{distributorId}/submit [post]
func (h *VerificationHandler) Submit(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	res, err := h.service.Submit(c.Request.Context(), actor, c.Param("distributorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Letter godoc
// @Summary Download the verification letter
// @Tags Verifications
// @Produce application/pdf
// @Param distributorId path string true "Distributor ID"
// @Param format query string false "pdf, xlsx or csv"
// @Success 200 {file} file
// @Failure 412 {object} response.Envelope
// @Router /verifications/{distributorId}/letter [get]
func (h *VerificationHandler) Letter(c *gin.Context) {
	actor := requireClaims(c)
	if actor == nil {
		return
	}
	w, err := h.service.Get(c.Request.Context(), actor, c.Param("distributorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.letters.VerificationLetter(w, c.DefaultQuery("format", service.FormatPDF), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.ContentType, doc.Filename, doc.Data)
}

func readMultipartFile(c *gin.Context, field, kind string, maxBody int64) (service.FileUpload, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, field+" is required"))
		return service.FileUpload{}, false
	}
	if header.Size > maxBody {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum size"))
		return service.FileUpload{}, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return service.FileUpload{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBody+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return service.FileUpload{}, false
	}
	return service.FileUpload{Filename: header.Filename, Kind: kind, Data: data}, true
}

func formLocation(c *gin.Context) *workflow.Location {
	lat, errLat := strconv.ParseFloat(c.PostForm("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	return &workflow.Location{Latitude: lat, Longitude: lng, Address: c.PostForm("address")}
}
