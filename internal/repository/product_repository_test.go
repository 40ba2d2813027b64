package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inventoryRowColumns = []string{"distributor_id", "product_code", "product_name", "sku_code", "sku_name", "unit", "opening_stock", "ytd_sales", "ytd_liquidation", "balance_stock", "unit_price", "updated_at"}

func TestProductRepositoryListByDistributor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProductRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(inventoryRowColumns).
		AddRow("dist-1", "FGCMGM0092", "DAP", "DAP-25", "DAP 25kg", "Kg", 100, 40, 20, 120, "1350.50", now).
		AddRow("dist-1", "FGCMGM0093", "Urea", "UR-45", "Urea 45kg", "Kg", 50, 0, 0, 50, "266.00", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM distributor_inventory WHERE distributor_id = $1")).
		WithArgs("dist-1").
		WillReturnRows(rows)

	records, err := repo.ListByDistributor(context.Background(), "dist-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 120, records[0].BalanceStock)
	assert.Equal(t, "1350.5", records[0].UnitPrice.String())
	assert.Equal(t, "162060", records[0].BalanceValue().String())

	sku := records[0].ToWorkflow()
	assert.Equal(t, "FGCMGM0092-DAP-25", sku.Key())
	assert.Equal(t, 120, sku.CurrentStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributorRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistributorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "territory", "region", "latitude", "longitude", "created_at", "updated_at"}).
		AddRow("dist-1", "D-01", "Sri Ram Agro", "Guntur", "South", 16.3, 80.4, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) LIKE $1 OR LOWER(code) LIKE $1")).
		WithArgs("%sri%").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), " Sri ")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].HasLocation())
	assert.NoError(t, mock.ExpectationsWereMet())
}
