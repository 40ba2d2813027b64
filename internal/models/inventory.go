package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
)

// SKURecord is one row of distributor_inventory.
type SKURecord struct {
	DistributorID  string          `db:"distributor_id" json:"distributor_id"`
	ProductCode    string          `db:"product_code" json:"product_code"`
	ProductName    string          `db:"product_name" json:"product_name"`
	SKUCode        string          `db:"sku_code" json:"sku_code"`
	SKUName        string          `db:"sku_name" json:"sku_name"`
	Unit           string          `db:"unit" json:"unit"`
	OpeningStock   int             `db:"opening_stock" json:"opening_stock"`
	YTDSales       int             `db:"ytd_sales" json:"ytd_sales"`
	YTDLiquidation int             `db:"ytd_liquidation" json:"ytd_liquidation"`
	BalanceStock   int             `db:"balance_stock" json:"balance_stock"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ToWorkflow converts the row into the verification SKU snapshot.
func (r SKURecord) ToWorkflow() workflow.SKU {
	return workflow.SKU{
		ProductCode:    r.ProductCode,
		ProductName:    r.ProductName,
		SKUCode:        r.SKUCode,
		SKUName:        r.SKUName,
		Unit:           r.Unit,
		OpeningStock:   r.OpeningStock,
		YTDSales:       r.YTDSales,
		YTDLiquidation: r.YTDLiquidation,
		CurrentStock:   r.BalanceStock,
		UnitPrice:      r.UnitPrice,
	}
}

// BalanceValue is balance stock priced at the unit price.
func (r SKURecord) BalanceValue() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.BalanceStock)))
}

// SKURecordsToWorkflow converts a slice of rows.
func SKURecordsToWorkflow(rows []SKURecord) []workflow.SKU {
	skus := make([]workflow.SKU, 0, len(rows))
	for _, r := range rows {
		skus = append(skus, r.ToWorkflow())
	}
	return skus
}
