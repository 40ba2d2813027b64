package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type retailerStore interface {
	List(ctx context.Context, filter repository.RetailerFilter) ([]models.Retailer, error)
	GetByID(ctx context.Context, id string) (*models.Retailer, error)
	Create(ctx context.Context, retailer *models.Retailer) error
}

// RetailerServiceConfig tunes duplicate detection and phone validation.
type RetailerServiceConfig struct {
	SimilarityThreshold float64
	PhoneRegion         string
	SearchLimit         int
}

// RetailerService manages the retailer directory.
type RetailerService struct {
	repo      retailerStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RetailerServiceConfig
}

// NewRetailerService constructs the service.
func NewRetailerService(repo retailerStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg RetailerServiceConfig) *RetailerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold >= 1 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "IN"
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 50
	}
	return &RetailerService{repo: repo, audit: audit, validator: validate, logger: logger, cfg: cfg}
}

// Search returns retailers matching the free text query, best matches first.
func (s *RetailerService) Search(ctx context.Context, query string) ([]dto.RetailerSearchResult, error) {
	retailers, err := s.repo.List(ctx, repository.RetailerFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retailers")
	}
	results := make([]dto.RetailerSearchResult, 0, len(retailers))
	for _, r := range retailers {
		if score, ok := searchScore(query, r, s.cfg.SimilarityThreshold); ok {
			results = append(results, dto.RetailerSearchResult{Retailer: r, Score: score})
		}
	}
	if strings.TrimSpace(query) != "" {
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}
	if len(results) > s.cfg.SearchLimit {
		results = results[:s.cfg.SearchLimit]
	}
	return results, nil
}

// CheckDuplicates runs duplicate detection without saving.
func (s *RetailerService) CheckDuplicates(ctx context.Context, req dto.DuplicateCheckRequest) (*models.DuplicateReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duplicate check payload")
	}
	existing, err := s.repo.List(ctx, repository.RetailerFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retailers")
	}
	report := DetectDuplicates(req.Name, req.Phone, existing, s.cfg.SimilarityThreshold)
	return &report, nil
}

// Create validates and stores a retailer. Exact and phone duplicates need Override;
// similar names need ConfirmSimilar.
func (s *RetailerService) Create(ctx context.Context, req dto.CreateRetailerRequest, actor *models.JWTClaims) (*models.Retailer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req = trimRetailerRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all retailer fields are required")
	}
	if err := ValidatePhone(req.Phone, s.cfg.PhoneRegion); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please enter a valid phone number")
	}

	existing, err := s.repo.List(ctx, repository.RetailerFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retailers")
	}
	report := DetectDuplicates(req.Name, req.Phone, existing, s.cfg.SimilarityThreshold)
	switch report.Kind {
	case models.DuplicateExact, models.DuplicatePhone:
		if !req.Override {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRetailer, report.Warning).WithDetails(report)
		}
	case models.DuplicateSimilar:
		if !req.ConfirmSimilar && !req.Override {
			return nil, appErrors.Clone(appErrors.ErrSimilarRetailer, report.Warning).WithDetails(report)
		}
	}

	retailer := &models.Retailer{
		Name:       req.Name,
		OutletName: req.OutletName,
		Phone:      req.Phone,
		Address:    req.Address,
		Pincode:    req.Pincode,
		Market:     req.Market,
		Territory:  req.Territory,
		Zone:       req.Zone,
		State:      req.State,
		Region:     req.Region,
		CreatedBy:  &actor.UserID,
	}
	if err := s.repo.Create(ctx, retailer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create retailer")
	}
	if report.Blocking() {
		s.logger.Info("retailer created over duplicate warning",
			zap.String("retailer_id", retailer.ID),
			zap.String("duplicate_kind", string(report.Kind)),
			zap.Int("matches", len(report.Matches)),
		)
	}
	s.emitAudit(ctx, actor.UserID, retailer)
	return retailer, nil
}

// Get returns a retailer by id.
func (s *RetailerService) Get(ctx context.Context, id string) (*models.Retailer, error) {
	retailer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "retailer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load retailer")
	}
	return retailer, nil
}

func (s *RetailerService) emitAudit(ctx context.Context, userID string, retailer *models.Retailer) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(retailer)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionRetailerCreate,
		Resource:   "retailer",
		ResourceID: &retailer.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "retailer-service",
	}); err != nil {
		s.logger.Warn("failed to record retailer audit log", zap.Error(err))
	}
}

func trimRetailerRequest(req dto.CreateRetailerRequest) dto.CreateRetailerRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.OutletName = strings.TrimSpace(req.OutletName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.Market = strings.TrimSpace(req.Market)
	req.Territory = strings.TrimSpace(req.Territory)
	req.Zone = strings.TrimSpace(req.Zone)
	req.State = strings.TrimSpace(req.State)
	req.Region = strings.TrimSpace(req.Region)
	return req
}
