package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

func TestRetailerRepositoryCreateGeneratesCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRetailerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO retailers")).WillReturnResult(sqlmock.NewResult(1, 1))

	retailer := &models.Retailer{Name: "ABC Traders", OutletName: "ABC Agro Centre", Phone: "9876543210"}
	require.NoError(t, repo.Create(context.Background(), retailer))
	assert.NotEmpty(t, retailer.ID)
	assert.True(t, strings.HasPrefix(retailer.Code, "RET-"))
	assert.Len(t, retailer.Code, len("RET-")+8)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetailerRepositoryListByTerritory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRetailerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "outlet_name", "phone", "address", "pincode", "market", "territory", "zone", "state", "region", "created_by", "created_at"}).
		AddRow("ret-1", "RET-1", "ABC Traders", "ABC Agro", "9876543210", "Main Rd", "522001", "Guntur", "Guntur", "Z1", "AP", "South", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM retailers WHERE territory = $1 ORDER BY name LIMIT 5000")).
		WithArgs("Guntur").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), RetailerFilter{Territory: "Guntur"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ABC Agro", list[0].OutletName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
