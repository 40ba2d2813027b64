package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type rectificationStore interface {
	Create(ctx context.Context, rec *models.Rectification) error
	GetByID(ctx context.Context, id string) (*models.Rectification, error)
	List(ctx context.Context, filter models.RectificationFilter) ([]models.Rectification, error)
	UpdateReview(ctx context.Context, params repository.ReviewParams) error
}

type skuReader interface {
	GetSKU(ctx context.Context, distributorID, productCode, skuCode string) (*models.SKURecord, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

const defaultUnitValue = 5000

// RectificationService orchestrates stock adjustment requests and reviews.
type RectificationService struct {
	repo             rectificationStore
	inventory        skuReader
	audit            auditLogger
	validator        *validator.Validate
	logger           *zap.Logger
	defaultUnitValue decimal.Decimal
	now              func() time.Time
}

// RectificationServiceOption configures the service.
type RectificationServiceOption func(*RectificationService)

// WithDefaultUnitValue sets the value per unit used when the SKU has no balance.
func WithDefaultUnitValue(v float64) RectificationServiceOption {
	return func(s *RectificationService) {
		if v > 0 {
			s.defaultUnitValue = decimal.NewFromFloat(v)
		}
	}
}

// WithRectificationClock overrides the clock.
func WithRectificationClock(now func() time.Time) RectificationServiceOption {
	return func(s *RectificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRectificationService constructs the service with defaults.
func NewRectificationService(repo rectificationStore, inventory skuReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...RectificationServiceOption) *RectificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RectificationService{
		repo:             repo,
		inventory:        inventory,
		audit:            audit,
		validator:        validate,
		logger:           logger,
		defaultUnitValue: decimal.NewFromInt(defaultUnitValue),
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Request stores a new adjustment after pricing it against the current balance.
func (s *RectificationService) Request(ctx context.Context, req dto.CreateRectificationRequest, actor *models.JWTClaims) (*models.Rectification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rectification payload")
	}
	if !req.Units.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "units must be greater than zero")
	}
	if !req.Type.ValidReason(req.Reason) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported reason for "+strings.ToLower(string(req.Type)))
	}

	sku, err := s.inventory.GetSKU(ctx, req.DistributorID, req.ProductCode, req.SKUCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sku not found for distributor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sku")
	}

	rec := &models.Rectification{
		DistributorID:     req.DistributorID,
		ProductCode:       req.ProductCode,
		SKUCode:           req.SKUCode,
		Type:              req.Type,
		Units:             req.Units,
		Reason:            req.Reason,
		SourceDestination: strings.TrimSpace(req.SourceDestination),
		Notes:             strings.TrimSpace(req.Notes),
		Status:            models.RectificationStatusPending,
		RequestedBy:       actor.UserID,
		RequestedAt:       s.now().UTC(),
	}
	if err := s.price(rec, sku); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rectification request")
	}
	payload, _ := json.Marshal(rec)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRectificationCreate,
		Resource:   "rectification",
		ResourceID: &rec.ID,
		NewValues:  payload,
	})
	return rec, nil
}

// price fills the value columns. The unit value is the current balance value per unit,
// falling back to the default when the SKU holds no units.
func (s *RectificationService) price(rec *models.Rectification, sku *models.SKURecord) error {
	rec.CurrentUnits = decimal.NewFromInt(int64(sku.BalanceStock))
	rec.CurrentValue = sku.BalanceValue()
	if rec.CurrentUnits.IsZero() {
		rec.UnitValue = s.defaultUnitValue
	} else {
		rec.UnitValue = rec.CurrentValue.Div(rec.CurrentUnits)
	}
	rec.AdjustmentValue = rec.Units.Mul(rec.UnitValue)
	switch rec.Type {
	case models.RectificationIncrease:
		rec.NewBalanceUnits = rec.CurrentUnits.Add(rec.Units)
		rec.NewBalanceValue = rec.CurrentValue.Add(rec.AdjustmentValue)
	case models.RectificationDecrease:
		rec.NewBalanceUnits = rec.CurrentUnits.Sub(rec.Units)
		rec.NewBalanceValue = rec.CurrentValue.Sub(rec.AdjustmentValue)
	}
	if rec.NewBalanceUnits.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "adjustment would make the balance negative")
	}
	return nil
}

// List returns accessible requests. Sales reps only see their own.
func (s *RectificationService) List(ctx context.Context, query dto.RectificationQuery, actor *models.JWTClaims) ([]models.Rectification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.RectificationFilter{
		Status:        query.Status,
		DistributorID: strings.TrimSpace(query.DistributorID),
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleTSM:
	case models.RoleSalesRep:
		filter.RequestedBy = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	recs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rectifications")
	}
	return recs, nil
}

// Get returns a request enforcing scope constraints.
func (s *RectificationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Rectification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rectification")
	}
	if actor.Role == models.RoleSalesRep && rec.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return rec, nil
}

// Review records the reviewer decision. A request is reviewed once.
func (s *RectificationService) Review(ctx context.Context, id string, req dto.ReviewRectificationRequest, actor *models.JWTClaims) (*models.Rectification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleTSM && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if req.Status != models.RectificationStatusApproved && req.Status != models.RectificationStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rectification")
	}
	if rec.Status != models.RectificationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "rectification already reviewed")
	}
	oldStatus, _ := json.Marshal(map[string]string{"status": string(rec.Status)})

	now := s.now().UTC()
	params := repository.ReviewParams{
		ID:         rec.ID,
		Status:     req.Status,
		ReviewedBy: actor.UserID,
		ReviewedAt: now,
		Note:       optionalString(req.Note),
	}
	if err := s.repo.UpdateReview(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "rectification already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rectification")
	}
	rec.Status = req.Status
	rec.ReviewedBy = &actor.UserID
	rec.ReviewedAt = &now
	rec.ReviewNote = params.Note

	newStatus, _ := json.Marshal(map[string]string{"status": string(rec.Status)})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRectificationReview,
		Resource:   "rectification",
		ResourceID: &rec.ID,
		OldValues:  oldStatus,
		NewValues:  newStatus,
	})
	return rec, nil
}

func (s *RectificationService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "rectification-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}
