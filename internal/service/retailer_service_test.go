package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/dto"
	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type retailerRepoStub struct {
	retailers []models.Retailer
	created   []*models.Retailer
}

func (r *retailerRepoStub) List(ctx context.Context, filter repository.RetailerFilter) ([]models.Retailer, error) {
	return r.retailers, nil
}

func (r *retailerRepoStub) GetByID(ctx context.Context, id string) (*models.Retailer, error) {
	for _, ret := range r.retailers {
		if ret.ID == id {
			cp := ret
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *retailerRepoStub) Create(ctx context.Context, retailer *models.Retailer) error {
	retailer.ID = "ret-new"
	retailer.Code = "RET-NEW"
	r.created = append(r.created, retailer)
	r.retailers = append(r.retailers, *retailer)
	return nil
}

func validRetailerRequest() dto.CreateRetailerRequest {
	return dto.CreateRetailerRequest{
		Name:       "Sri Lakshmi Agro",
		OutletName: "Lakshmi Outlet",
		Phone:      "9876543210",
		Address:    "12 Market Road",
		Pincode:    "560001",
		Market:     "Hosur",
	}
}

func existingRetailers() []models.Retailer {
	return []models.Retailer{
		{ID: "r1", Name: "ABC Traders", Phone: "9123456789"},
		{ID: "r2", Name: "Krishna Seeds", Phone: "9000000001"},
	}
}

func TestRetailerServiceCreate(t *testing.T) {
	repo := &retailerRepoStub{retailers: existingRetailers()}
	audit := &auditStub{}
	svc := NewRetailerService(repo, audit, nil, nil, RetailerServiceConfig{})

	req := validRetailerRequest()
	req.Name = "  Sri Lakshmi Agro "
	retailer, err := svc.Create(context.Background(), req, salesRep())
	require.NoError(t, err)
	assert.Equal(t, "ret-new", retailer.ID)
	assert.Equal(t, "Sri Lakshmi Agro", retailer.Name)
	require.NotNil(t, retailer.CreatedBy)
	assert.Equal(t, "rep-1", *retailer.CreatedBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRetailerCreate, audit.logs[0].Action)
}

func TestRetailerServiceCreateRequiresAllFields(t *testing.T) {
	svc := NewRetailerService(&retailerRepoStub{}, nil, nil, nil, RetailerServiceConfig{})
	req := validRetailerRequest()
	req.Market = "  "
	_, err := svc.Create(context.Background(), req, salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = validRetailerRequest()
	req.Pincode = "56A001"
	_, err = svc.Create(context.Background(), req, salesRep())
	require.Error(t, err)
}

func TestRetailerServiceCreateRejectsInvalidPhone(t *testing.T) {
	svc := NewRetailerService(&retailerRepoStub{}, nil, nil, nil, RetailerServiceConfig{})
	req := validRetailerRequest()
	req.Phone = "12345"
	_, err := svc.Create(context.Background(), req, salesRep())
	require.Error(t, err)
	assert.Equal(t, "please enter a valid phone number", appErrors.FromError(err).Message)
}

func TestRetailerServiceCreateBlocksDuplicates(t *testing.T) {
	repo := &retailerRepoStub{retailers: existingRetailers()}
	svc := NewRetailerService(repo, nil, nil, nil, RetailerServiceConfig{})

	req := validRetailerRequest()
	req.Phone = "9123456789"
	_, err := svc.Create(context.Background(), req, salesRep())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateRetailer.Code, appErr.Code)
	report, ok := appErr.Details.(models.DuplicateReport)
	require.True(t, ok)
	assert.Equal(t, models.DuplicatePhone, report.Kind)
	assert.Empty(t, repo.created)

	req.Override = true
	_, err = svc.Create(context.Background(), req, salesRep())
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestRetailerServiceCreateSimilarNeedsConfirmation(t *testing.T) {
	repo := &retailerRepoStub{retailers: existingRetailers()}
	svc := NewRetailerService(repo, nil, nil, nil, RetailerServiceConfig{})

	req := validRetailerRequest()
	req.Name = "ABC Tradrs"
	_, err := svc.Create(context.Background(), req, salesRep())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSimilarRetailer.Code, appErrors.FromError(err).Code)

	req.ConfirmSimilar = true
	_, err = svc.Create(context.Background(), req, salesRep())
	require.NoError(t, err)
}

func TestRetailerServiceSearchOrdersByScore(t *testing.T) {
	repo := &retailerRepoStub{retailers: []models.Retailer{
		{ID: "r1", Name: "ABC Agro Traders"},
		{ID: "r2", Name: "ABC Traders"},
		{ID: "r3", Name: "Krishna Seeds"},
	}}
	svc := NewRetailerService(repo, nil, nil, nil, RetailerServiceConfig{})

	results, err := svc.Search(context.Background(), "abc traders")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r2", results[0].ID)

	all, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRetailerServiceCheckDuplicates(t *testing.T) {
	svc := NewRetailerService(&retailerRepoStub{retailers: existingRetailers()}, nil, nil, nil, RetailerServiceConfig{})
	report, err := svc.CheckDuplicates(context.Background(), dto.DuplicateCheckRequest{Name: "abc traders"})
	require.NoError(t, err)
	assert.Equal(t, models.DuplicateExact, report.Kind)

	_, err = svc.CheckDuplicates(context.Background(), dto.DuplicateCheckRequest{})
	require.Error(t, err)
}

func TestRetailerServiceGetNotFound(t *testing.T) {
	svc := NewRetailerService(&retailerRepoStub{}, nil, nil, nil, RetailerServiceConfig{})
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
