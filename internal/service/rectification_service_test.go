package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type rectificationRepoStub struct {
	recs   map[string]*models.Rectification
	filter models.RectificationFilter
}

func newRectificationRepoStub() *rectificationRepoStub {
	return &rectificationRepoStub{recs: make(map[string]*models.Rectification)}
}

func (r *rectificationRepoStub) Create(ctx context.Context, rec *models.Rectification) error {
	if rec.ID == "" {
		rec.ID = "rec-1"
	}
	cp := *rec
	r.recs[rec.ID] = &cp
	return nil
}

func (r *rectificationRepoStub) GetByID(ctx context.Context, id string) (*models.Rectification, error) {
	if rec, ok := r.recs[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *rectificationRepoStub) List(ctx context.Context, filter models.RectificationFilter) ([]models.Rectification, error) {
	r.filter = filter
	out := make([]models.Rectification, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *rectificationRepoStub) UpdateReview(ctx context.Context, params repository.ReviewParams) error {
	rec, ok := r.recs[params.ID]
	if !ok || rec.Status != models.RectificationStatusPending {
		return sql.ErrNoRows
	}
	rec.Status = params.Status
	return nil
}

type skuReaderStub struct {
	sku *models.SKURecord
	err error
}

func (s *skuReaderStub) GetSKU(ctx context.Context, distributorID, productCode, skuCode string) (*models.SKURecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sku, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func rectificationRequest(t models.RectificationType, units int64, reason string) dto.CreateRectificationRequest {
	return dto.CreateRectificationRequest{
		DistributorID:     "dist-1",
		ProductCode:       "P1",
		SKUCode:           "S1",
		Type:              t,
		Units:             decimal.NewFromInt(units),
		Reason:            reason,
		SourceDestination: "Central warehouse",
	}
}

func salesRep() *models.JWTClaims {
	return &models.JWTClaims{UserID: "rep-1", Role: models.RoleSalesRep}
}

func TestRectificationRequestPricesAgainstBalance(t *testing.T) {
	repo := newRectificationRepoStub()
	audit := &auditStub{}
	inv := &skuReaderStub{sku: &models.SKURecord{BalanceStock: 40, UnitPrice: decimal.NewFromInt(250)}}
	fixed := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	svc := NewRectificationService(repo, inv, audit, nil, nil, WithRectificationClock(func() time.Time { return fixed }))

	rec, err := svc.Request(context.Background(), rectificationRequest(models.RectificationDecrease, 10, "Damaged/Expired stock"), salesRep())
	require.NoError(t, err)
	assert.Equal(t, models.RectificationStatusPending, rec.Status)
	assert.True(t, rec.UnitValue.Equal(decimal.NewFromInt(250)))
	assert.True(t, rec.AdjustmentValue.Equal(decimal.NewFromInt(2500)))
	assert.True(t, rec.NewBalanceUnits.Equal(decimal.NewFromInt(30)))
	assert.True(t, rec.NewBalanceValue.Equal(decimal.NewFromInt(7500)))
	assert.Equal(t, fixed, rec.RequestedAt)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRectificationCreate, audit.logs[0].Action)
}

func TestRectificationRequestUsesDefaultUnitValueForEmptyStock(t *testing.T) {
	inv := &skuReaderStub{sku: &models.SKURecord{BalanceStock: 0, UnitPrice: decimal.NewFromInt(100)}}
	svc := NewRectificationService(newRectificationRepoStub(), inv, nil, nil, nil, WithDefaultUnitValue(1200))

	rec, err := svc.Request(context.Background(), rectificationRequest(models.RectificationIncrease, 3, "Received from warehouse"), salesRep())
	require.NoError(t, err)
	assert.True(t, rec.UnitValue.Equal(decimal.NewFromInt(1200)))
	assert.True(t, rec.NewBalanceValue.Equal(decimal.NewFromInt(3600)))
}

func TestRectificationRequestRejectsNegativeBalance(t *testing.T) {
	inv := &skuReaderStub{sku: &models.SKURecord{BalanceStock: 5, UnitPrice: decimal.NewFromInt(10)}}
	svc := NewRectificationService(newRectificationRepoStub(), inv, nil, nil, nil)

	_, err := svc.Request(context.Background(), rectificationRequest(models.RectificationDecrease, 6, "Sold to farmer"), salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRectificationRequestRejectsReasonFromOtherType(t *testing.T) {
	inv := &skuReaderStub{sku: &models.SKURecord{BalanceStock: 5}}
	svc := NewRectificationService(newRectificationRepoStub(), inv, nil, nil, nil)

	_, err := svc.Request(context.Background(), rectificationRequest(models.RectificationIncrease, 1, "Sold to farmer"), salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRectificationRequestRejectsZeroUnits(t *testing.T) {
	svc := NewRectificationService(newRectificationRepoStub(), &skuReaderStub{}, nil, nil, nil)
	_, err := svc.Request(context.Background(), rectificationRequest(models.RectificationIncrease, 0, "Other"), salesRep())
	require.Error(t, err)
}

func TestRectificationRequestUnknownSKU(t *testing.T) {
	svc := NewRectificationService(newRectificationRepoStub(), &skuReaderStub{err: sql.ErrNoRows}, nil, nil, nil)
	_, err := svc.Request(context.Background(), rectificationRequest(models.RectificationIncrease, 1, "Other"), salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRectificationListScopesSalesRep(t *testing.T) {
	repo := newRectificationRepoStub()
	svc := NewRectificationService(repo, &skuReaderStub{}, nil, nil, nil)

	_, err := svc.List(context.Background(), dto.RectificationQuery{DistributorID: " dist-1 "}, salesRep())
	require.NoError(t, err)
	assert.Equal(t, "rep-1", repo.filter.RequestedBy)
	assert.Equal(t, "dist-1", repo.filter.DistributorID)

	_, err = svc.List(context.Background(), dto.RectificationQuery{}, &models.JWTClaims{UserID: "tsm-1", Role: models.RoleTSM})
	require.NoError(t, err)
	assert.Empty(t, repo.filter.RequestedBy)
}

func TestRectificationGetForbidsOtherRep(t *testing.T) {
	repo := newRectificationRepoStub()
	repo.recs["rec-1"] = &models.Rectification{ID: "rec-1", RequestedBy: "rep-2", Status: models.RectificationStatusPending}
	svc := NewRectificationService(repo, &skuReaderStub{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "rec-1", salesRep())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRectificationReviewOnce(t *testing.T) {
	repo := newRectificationRepoStub()
	repo.recs["rec-1"] = &models.Rectification{ID: "rec-1", RequestedBy: "rep-1", Status: models.RectificationStatusPending}
	audit := &auditStub{}
	svc := NewRectificationService(repo, &skuReaderStub{}, audit, nil, nil)
	tsm := &models.JWTClaims{UserID: "tsm-1", Role: models.RoleTSM}

	rec, err := svc.Review(context.Background(), "rec-1", dto.ReviewRectificationRequest{Status: models.RectificationStatusApproved, Note: " ok "}, tsm)
	require.NoError(t, err)
	assert.Equal(t, models.RectificationStatusApproved, rec.Status)
	require.NotNil(t, rec.ReviewNote)
	assert.Equal(t, "ok", *rec.ReviewNote)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRectificationReview, audit.logs[0].Action)

	_, err = svc.Review(context.Background(), "rec-1", dto.ReviewRectificationRequest{Status: models.RectificationStatusRejected}, tsm)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRectificationReviewRequiresReviewerRole(t *testing.T) {
	repo := newRectificationRepoStub()
	repo.recs["rec-1"] = &models.Rectification{ID: "rec-1", Status: models.RectificationStatusPending}
	svc := NewRectificationService(repo, &skuReaderStub{}, nil, nil, nil)

	_, err := svc.Review(context.Background(), "rec-1", dto.ReviewRectificationRequest{Status: models.RectificationStatusApproved}, salesRep())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
