package pnl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// TradeRecord is the Parquet schema for exported realized trades.
type TradeRecord struct {
	Wallet     string  `parquet:"wallet"`
	OrderID    int64   `parquet:"order_id"`
	ExecutedAt int64   `parquet:"executed_at,timestamp(millisecond)"` // Unix ms
	BaseQty    float64 `parquet:"base_qty"`
	Proceeds   float64 `parquet:"proceeds"`
	CostBasis  float64 `parquet:"cost_basis"`
	Realized   float64 `parquet:"realized"`
	Shortfall  bool    `parquet:"shortfall"`
}

// WriteReportParquet writes the report's realized trades to
// <dir>/<wallet>-realized.parquet, replacing any previous export.
func WriteReportParquet(dir string, rep *Report) (string, error) {
	records := make([]TradeRecord, 0, len(rep.Trades))
	for _, t := range rep.Trades {
		records = append(records, TradeRecord{
			Wallet:     rep.Wallet,
			OrderID:    t.OrderID,
			ExecutedAt: t.ExecutedAt.UnixMilli(),
			BaseQty:    t.BaseQty,
			Proceeds:   t.Proceeds,
			CostBasis:  t.CostBasis,
			Realized:   t.Realized,
			Shortfall:  t.Shortfall,
		})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-realized.parquet", rep.Wallet))
	if err := parquet.WriteFile(path, records); err != nil {
		return "", fmt.Errorf("writing parquet export: %w", err)
	}
	return path, nil
}

// ReadReportParquet reads back an export, mainly for verification.
func ReadReportParquet(path string) ([]TradeRecord, error) {
	return parquet.ReadFile[TradeRecord](path)
}
