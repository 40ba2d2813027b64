package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
	"github.com/noah-isme/liquidation-verify-api/pkg/cache"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

const (
	locationRequiredMessage = "Please update your location details"
	draftGrace              = time.Hour
)

type distributorReader interface {
	GetByID(ctx context.Context, id string) (*models.Distributor, error)
}

type skuLister interface {
	ListByDistributor(ctx context.Context, distributorID string) ([]models.SKURecord, error)
}

type sessionStore interface {
	Save(ctx context.Context, operatorID string, w *workflow.Workflow, ttl time.Duration) error
	Get(ctx context.Context, operatorID, distributorID string) (*workflow.Workflow, error)
	Delete(ctx context.Context, operatorID, distributorID string) error
}

type draftStore interface {
	Save(ctx context.Context, draft workflow.Draft, ttl time.Duration) error
	Get(ctx context.Context, distributorID string) (*workflow.Draft, error)
	Delete(ctx context.Context, distributorID string) error
}

type liquidationWriter interface {
	Create(ctx context.Context, entry *models.LiquidationEntry) error
}

type fileUploader interface {
	Upload(ctx context.Context, upload FileUpload, actor *models.JWTClaims) (*dto.UploadResponse, error)
	UploadDataURL(ctx context.Context, dataURL, kind string, actor *models.JWTClaims) (*dto.UploadResponse, error)
}

type retailerDirectory interface {
	Get(ctx context.Context, id string) (*models.Retailer, error)
	Create(ctx context.Context, req dto.CreateRetailerRequest, actor *models.JWTClaims) (*models.Retailer, error)
}

type submitLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type distributorCacheInvalidator interface {
	InvalidateDistributor(ctx context.Context, distributorID string)
}

// VerificationConfig controls session lifetime, the calendar used for drafts and location policy.
type VerificationConfig struct {
	SessionTTL      time.Duration
	Location        *time.Location
	RequireLocation bool
	SubmitLockTTL   time.Duration
}

// VerificationDeps groups the collaborators of the verification service.
type VerificationDeps struct {
	Distributors distributorReader
	SKUs         skuLister
	Sessions     sessionStore
	Drafts       draftStore
	Liquidations liquidationWriter
	Uploads      fileUploader
	Retailers    retailerDirectory
	Locker       submitLocker
	Cache        distributorCacheInvalidator
	Audit        auditLogger
	Metrics      *MetricsService
}

// VerificationService drives the stock verification workflow for an operator and a distributor.
type VerificationService struct {
	deps   VerificationDeps
	cfg    VerificationConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewVerificationService constructs the service with defaults.
func NewVerificationService(deps VerificationDeps, cfg VerificationConfig, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SubmitLockTTL <= 0 {
		cfg.SubmitLockTTL = 30 * time.Second
	}
	return &VerificationService{deps: deps, cfg: cfg, logger: logger, now: time.Now}
}

// Open starts a fresh workflow over the distributor's current stock and offers a same-day draft.
func (s *VerificationService) Open(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.OpenVerificationRequest) (*dto.OpenVerificationResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	dist, err := s.loadDistributor(ctx, distributorID)
	if err != nil {
		return nil, err
	}
	if s.cfg.RequireLocation && (req.Location == nil || !dist.HasLocation()) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, locationRequiredMessage)
	}
	skus, err := s.loadSKUs(ctx, distributorID)
	if err != nil {
		return nil, err
	}

	w := workflow.New(workflowDistributor(dist), skus)
	w.UpdatedAt = s.now().UTC()
	if err := s.saveSession(ctx, actor, w); err != nil {
		return nil, err
	}

	resp := &dto.OpenVerificationResponse{Verification: dto.NewVerificationView(w)}
	if draft := s.currentDraft(ctx, distributorID); draft != nil && draft.Resumable(s.now(), s.cfg.Location) {
		resp.Resume = &dto.ResumeOffer{
			ResumeAvailable: true,
			DraftStage:      draft.Stage,
			StageName:       draft.Stage.String(),
			SavedAt:         draft.SavedAt,
			DistributorName: draft.Distributor.Name,
		}
	}
	return resp, nil
}

// Resume restores the same-day draft into the live workflow.
func (s *VerificationService) Resume(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	draft := s.currentDraft(ctx, distributorID)
	if draft == nil || !draft.Resumable(s.now(), s.cfg.Location) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no saved progress to resume")
	}
	skus, err := s.loadSKUs(ctx, distributorID)
	if err != nil {
		return nil, err
	}
	w := workflow.Restore(*draft, skus)
	w.UpdatedAt = s.now().UTC()
	if err := s.saveSession(ctx, actor, w); err != nil {
		return nil, err
	}
	s.observeTransition("resume", workflow.StageStockInput, w.Stage)
	return w, nil
}

// DiscardDraft drops saved progress so the operator starts over.
func (s *VerificationService) DiscardDraft(ctx context.Context, actor *models.JWTClaims, distributorID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.deps.Drafts.Delete(ctx, distributorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard draft")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionVerificationDiscard, distributorID, nil)
	return nil
}

// Get returns the live workflow.
func (s *VerificationService) Get(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.loadSession(ctx, actor, distributorID)
}

// SetStockInputs applies raw stock entries at stock input.
func (s *VerificationService) SetStockInputs(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.StockInputRequest) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "stock", func(w *workflow.Workflow) error {
		return w.SetStockInputs(req.Stocks)
	})
}

// Next validates the current stage and advances.
func (s *VerificationService) Next(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "next", func(w *workflow.Workflow) error {
		return w.Next()
	})
}

// Back steps one stage back without validation.
func (s *VerificationService) Back(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "back", func(w *workflow.Workflow) error {
		return w.Back()
	})
}

// Cancel discards entered state and the saved draft.
func (s *VerificationService) Cancel(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	w, err := s.mutate(ctx, actor, distributorID, "cancel", func(w *workflow.Workflow) error {
		w.Cancel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.deps.Drafts.Delete(ctx, distributorID); err != nil {
		s.logger.Warn("failed to delete draft on cancel", zap.String("distributor_id", distributorID), zap.Error(err))
	}
	return w, nil
}

// UpdateAllocation sets the farmer quantity and the pending retailer placeholder of an item.
func (s *VerificationService) UpdateAllocation(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.AllocationUpdateRequest) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "allocation", func(w *workflow.Workflow) error {
		if req.FarmerQuantity != nil {
			if err := w.SetFarmerQuantity(key, *req.FarmerQuantity); err != nil {
				return err
			}
		}
		switch {
		case req.ClearPending:
			return w.SetPendingRetailerTotal(key, nil)
		case req.PendingRetailerTotal != nil:
			return w.SetPendingRetailerTotal(key, req.PendingRetailerTotal)
		}
		return nil
	})
}

// AddRetailerRow appends a retailer row, resolving the retailer when one is named.
func (s *VerificationService) AddRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.RetailerRowRequest) (*workflow.Workflow, int, error) {
	row := workflow.RetailerAllocation{RetailerID: req.RetailerID, RetailerName: req.RetailerName, RetailerCode: req.RetailerCode}
	if req.Quantity != nil {
		row.Quantity = *req.Quantity
	}
	if row.Selected() {
		retailer, err := s.deps.Retailers.Get(ctx, row.RetailerID)
		if err != nil {
			return nil, 0, err
		}
		row.RetailerName, row.RetailerCode = retailer.Name, retailer.Code
	}
	index := 0
	w, err := s.mutate(ctx, actor, distributorID, "allocation", func(w *workflow.Workflow) error {
		var err error
		index, err = w.AddRetailerRow(key, row)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return w, index, nil
}

// UpdateRetailerRow selects a retailer and/or sets the quantity on one row.
func (s *VerificationService) UpdateRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, index int, req dto.RetailerRowRequest) (*workflow.Workflow, error) {
	var retailer *models.Retailer
	if req.RetailerID != "" {
		var err error
		if retailer, err = s.deps.Retailers.Get(ctx, req.RetailerID); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, actor, distributorID, "allocation", func(w *workflow.Workflow) error {
		if retailer != nil {
			if err := w.SelectRetailer(key, index, retailer.ID, retailer.Name, retailer.Code); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			return w.SetRetailerQuantity(key, index, *req.Quantity)
		}
		return nil
	})
}

// RemoveRetailerRow deletes one retailer row.
func (s *VerificationService) RemoveRetailerRow(ctx context.Context, actor *models.JWTClaims, distributorID, key string, index int) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "allocation", func(w *workflow.Workflow) error {
		return w.RemoveRetailerRow(key, index)
	})
}

// CreateRetailerForSKU registers a retailer and allocates to it on the given SKU.
func (s *VerificationService) CreateRetailerForSKU(ctx context.Context, actor *models.JWTClaims, distributorID, key string, req dto.CreateRetailerForSKURequest) (*dto.CreateRetailerResponse, error) {
	w, err := s.Get(ctx, actor, distributorID)
	if err != nil {
		return nil, err
	}
	if w.Stage != workflow.StageAllocation {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "retailers can only be added while allocating stock")
	}
	if _, ok := w.Item(key); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("sku %s is not part of this verification", key))
	}
	retailer, err := s.deps.Retailers.Create(ctx, req.CreateRetailerRequest, actor)
	if err != nil {
		return nil, err
	}
	index := 0
	w, err = s.mutate(ctx, actor, distributorID, "allocation", func(w *workflow.Workflow) error {
		var err error
		index, err = w.AddRetailerRow(key, workflow.RetailerAllocation{
			RetailerID:   retailer.ID,
			RetailerName: retailer.Name,
			RetailerCode: retailer.Code,
			Quantity:     req.Quantity,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	view := dto.NewVerificationView(w)
	return &dto.CreateRetailerResponse{Retailer: *retailer, RowIndex: &index, Verification: &view}, nil
}

// CaptureSignature stores the e-signature and stamps the verifier on first capture.
func (s *VerificationService) CaptureSignature(ctx context.Context, actor *models.JWTClaims, distributorID string, req dto.SignatureRequest) (*workflow.Workflow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	operator := operatorFromClaims(actor)
	return s.mutate(ctx, actor, distributorID, "signature", func(w *workflow.Workflow) error {
		return w.CaptureSignature(req.Image, operator, req.Location, s.now())
	})
}

// ClearSignature removes the signature image.
func (s *VerificationService) ClearSignature(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "signature", func(w *workflow.Workflow) error {
		return w.ClearSignature()
	})
}

// UploadProof stores a proof file and attaches it. A failed upload leaves the proofs unchanged.
func (s *VerificationService) UploadProof(ctx context.Context, actor *models.JWTClaims, distributorID string, upload FileUpload, location *workflow.Location) (*workflow.Workflow, error) {
	w, err := s.Get(ctx, actor, distributorID)
	if err != nil {
		return nil, err
	}
	if w.Stage != workflow.StageProof {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "proofs can only be added at the proof stage")
	}
	upload.Kind = UploadKindProof
	stored, err := s.deps.Uploads.Upload(ctx, upload, actor)
	if err != nil {
		return nil, err
	}
	proof := workflow.Proof{
		ID:         uuid.NewString(),
		URL:        stored.URL,
		Name:       upload.Filename,
		MimeType:   stored.MimeType,
		CapturedAt: s.now().UTC(),
		CapturedBy: actor.FullName,
		Location:   location,
	}
	return s.mutate(ctx, actor, distributorID, "proof", func(w *workflow.Workflow) error {
		return w.AddProof(proof)
	})
}

// RemoveProof detaches a proof.
func (s *VerificationService) RemoveProof(ctx context.Context, actor *models.JWTClaims, distributorID, proofID string) (*workflow.Workflow, error) {
	return s.mutate(ctx, actor, distributorID, "proof", func(w *workflow.Workflow) error {
		return w.RemoveProof(proofID)
	})
}

// Submit persists the verification. Only one submission per distributor runs at a time.
// On failure the workflow is left as it was, except that an uploaded signature URL is kept.
func (s *VerificationService) Submit(ctx context.Context, actor *models.JWTClaims, distributorID string) (*dto.SubmitResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	release, err := s.deps.Locker.Obtain(ctx, submitLockKey(distributorID), s.cfg.SubmitLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotObtained) {
			return nil, appErrors.ErrSubmissionLocked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire submission lock")
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("failed to release submission lock", zap.String("distributor_id", distributorID), zap.Error(err))
		}
	}()

	w, err := s.loadSession(ctx, actor, distributorID)
	if err != nil {
		return nil, err
	}
	if err := w.ValidateSubmission(); err != nil {
		s.observeSubmission("invalid")
		return nil, err
	}

	if w.Attestation.RawSignature() {
		stored, err := s.deps.Uploads.UploadDataURL(ctx, w.Attestation.Signature, UploadKindSignature, actor)
		if err != nil {
			s.observeSubmission("error")
			return nil, err
		}
		if err := w.SetSignatureURL(stored.URL); err != nil {
			return nil, err
		}
		if err := s.saveSession(ctx, actor, w); err != nil {
			return nil, err
		}
	}

	payload, err := w.BuildPayload()
	if err != nil {
		s.observeSubmission("invalid")
		return nil, err
	}
	entry := entryFromPayload(payload, s.now().UTC())
	if err := s.deps.Liquidations.Create(ctx, entry); err != nil {
		s.observeSubmission("error")
		s.logger.Error("liquidation submission failed",
			zap.String("distributor_id", distributorID),
			zap.String("operator_id", actor.UserID),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to submit verification")
	}

	from := w.Stage
	w.MarkSubmitted(entry.ID)
	w.UpdatedAt = s.now().UTC()
	if err := s.deps.Sessions.Save(ctx, actor.UserID, w, s.cfg.SessionTTL); err != nil {
		s.logger.Warn("failed to save submitted session", zap.String("distributor_id", distributorID), zap.Error(err))
		// a submittable session must not outlive its entry
		if err := s.deps.Sessions.Delete(ctx, actor.UserID, distributorID); err != nil {
			s.logger.Error("failed to drop submitted session",
				zap.String("distributor_id", distributorID),
				zap.String("operator_id", actor.UserID),
				zap.Error(err),
			)
		}
	}
	if err := s.deps.Drafts.Delete(ctx, distributorID); err != nil {
		s.logger.Warn("failed to delete draft after submit", zap.String("distributor_id", distributorID), zap.Error(err))
	}
	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateDistributor(ctx, distributorID)
	}
	s.observeSubmission("success")
	s.observeTransition("submit", from, w.Stage)
	auditPayload, _ := json.Marshal(payload)
	s.emitAudit(ctx, actor.UserID, models.AuditActionVerificationSubmit, entry.ID, auditPayload)

	return &dto.SubmitResponse{
		EntryID:      entry.ID,
		SubmittedAt:  entry.SubmittedAt,
		Verification: dto.NewVerificationView(w),
	}, nil
}

// draftedActions also refresh the draft without a stage change, so a reopened
// verification resumes with the latest allocations, signature and proofs.
var draftedActions = map[string]bool{
	"allocation": true,
	"signature":  true,
	"proof":      true,
}

// mutate loads the session, applies fn and saves on success. A failing fn leaves the stored
// state untouched. Stage changes and drafted actions save a draft once verification items exist.
func (s *VerificationService) mutate(ctx context.Context, actor *models.JWTClaims, distributorID, action string, fn func(w *workflow.Workflow) error) (*workflow.Workflow, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	w, err := s.loadSession(ctx, actor, distributorID)
	if err != nil {
		return nil, err
	}
	from := w.Stage
	if err := fn(w); err != nil {
		return nil, err
	}
	w.UpdatedAt = s.now().UTC()
	if err := s.saveSession(ctx, actor, w); err != nil {
		return nil, err
	}
	changed := from != w.Stage
	if changed {
		s.observeTransition(action, from, w.Stage)
	}
	if (changed || draftedActions[action]) && len(w.Items) > 0 && !w.Completed() {
		s.saveDraft(ctx, w)
	}
	return w, nil
}

func (s *VerificationService) saveDraft(ctx context.Context, w *workflow.Workflow) {
	now := s.now()
	ttl := workflow.EndOfDay(now, s.cfg.Location).Add(draftGrace).Sub(now)
	if err := s.deps.Drafts.Save(ctx, w.Snapshot(now), ttl); err != nil {
		s.logger.Warn("failed to save verification draft", zap.String("distributor_id", w.Distributor.ID), zap.Error(err))
	}
}

// currentDraft returns today's draft. Stale drafts are deleted.
func (s *VerificationService) currentDraft(ctx context.Context, distributorID string) *workflow.Draft {
	draft, err := s.deps.Drafts.Get(ctx, distributorID)
	if err != nil {
		if !errors.Is(err, repository.ErrDraftNotFound) {
			s.logger.Warn("failed to load verification draft", zap.String("distributor_id", distributorID), zap.Error(err))
		}
		return nil
	}
	if !draft.ValidOn(s.now(), s.cfg.Location) {
		if err := s.deps.Drafts.Delete(ctx, distributorID); err != nil {
			s.logger.Warn("failed to delete stale draft", zap.String("distributor_id", distributorID), zap.Error(err))
		}
		return nil
	}
	return draft
}

func (s *VerificationService) loadSession(ctx context.Context, actor *models.JWTClaims, distributorID string) (*workflow.Workflow, error) {
	w, err := s.deps.Sessions.Get(ctx, actor.UserID, distributorID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "verification is not open for this distributor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verification")
	}
	return w, nil
}

func (s *VerificationService) saveSession(ctx context.Context, actor *models.JWTClaims, w *workflow.Workflow) error {
	if err := s.deps.Sessions.Save(ctx, actor.UserID, w, s.cfg.SessionTTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save verification")
	}
	return nil
}

func (s *VerificationService) loadDistributor(ctx context.Context, id string) (*models.Distributor, error) {
	dist, err := s.deps.Distributors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "distributor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distributor")
	}
	return dist, nil
}

func (s *VerificationService) loadSKUs(ctx context.Context, distributorID string) ([]workflow.SKU, error) {
	rows, err := s.deps.SKUs.ListByDistributor(ctx, distributorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distributor stock")
	}
	return models.SKURecordsToWorkflow(rows), nil
}

func (s *VerificationService) observeTransition(action string, from, to workflow.Stage) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveTransition(action, from.String(), to.String())
	}
	s.logger.Debug("verification stage changed", zap.String("action", action), zap.Stringer("from", from), zap.Stringer("to", to))
}

func (s *VerificationService) observeSubmission(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSubmission(result)
	}
}

func (s *VerificationService) emitAudit(ctx context.Context, userID, action, resourceID string, payload []byte) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "verification",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "verification-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func submitLockKey(distributorID string) string {
	return "verification:lock:" + distributorID
}

func workflowDistributor(d *models.Distributor) workflow.Distributor {
	return workflow.Distributor{ID: d.ID, Code: d.Code, Name: d.Name}
}

func operatorFromClaims(c *models.JWTClaims) workflow.Operator {
	return workflow.Operator{
		ID:          c.UserID,
		Name:        c.FullName,
		Email:       c.Email,
		Role:        string(c.Role),
		Designation: c.Designation,
	}
}

func entryFromPayload(p workflow.Payload, submittedAt time.Time) *models.LiquidationEntry {
	entry := &models.LiquidationEntry{
		DistributorID:   p.DistributorID,
		DistributorCode: p.DistributorCode,
		DistributorName: p.DistributorName,
		SignatureURL:    p.SignatureURL,
		VerifiedBy:      p.VerifiedBy.ID,
		VerifierName:    p.VerifiedBy.Name,
		VerifierRole:    p.VerifiedBy.Role,
		VerifiedAt:      p.VerifiedAt,
		SubmittedAt:     submittedAt,
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		entry.Latitude, entry.Longitude = &lat, &lng
		entry.Address = optionalString(p.Location.Address)
	}
	for _, pe := range p.ProductEntries {
		item := models.LiquidationItem{
			ProductCode:    pe.ProductCode,
			SKUCode:        pe.SKUCode,
			PreviousStock:  pe.PreviousStock,
			CurrentStock:   pe.CurrentStock,
			FarmerQuantity: pe.FarmerQuantity,
		}
		for _, r := range pe.RetailerAllocations {
			item.Retailers = append(item.Retailers, models.LiquidationRetailerAllocation{RetailerID: r.RetailerID, Quantity: r.Quantity})
		}
		entry.Items = append(entry.Items, item)
	}
	for _, url := range p.ProofURLs {
		entry.Proofs = append(entry.Proofs, models.LiquidationProof{URL: url})
	}
	return entry
}
