package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMeasure pairs a unit volume with its value.
type StockMeasure struct {
	Volume int64           `json:"volume"`
	Value  decimal.Decimal `json:"value"`
}

// LiquidationMetrics aggregates inventory movement for one or more distributors.
type LiquidationMetrics struct {
	DistributorID         string       `json:"distributorId,omitempty"`
	OpeningStock          StockMeasure `json:"openingStock"`
	YTDNetSales           StockMeasure `json:"ytdNetSales"`
	Liquidation           StockMeasure `json:"liquidation"`
	BalanceStock          StockMeasure `json:"balanceStock"`
	LiquidationPercentage int64        `json:"liquidationPercentage"`
	DistributorCount      int          `json:"distributorCount"`
	GeneratedAt           time.Time    `json:"generatedAt"`
}

// SystemMetrics represents system level numbers captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	SubmissionsTotal         uint64    `json:"submissions_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
