// Package normalizer is the central invariant boundary. Per-broker parsers
// are numerous and individually fallible, so the canonical trade constraints
// are enforced once more here, regardless of which parser produced a row.
package normalizer

import (
	"math"
	"strings"
	"time"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
	"github.com/FACorreiaa/broker-import/pkg/money"
)

// Normalize filters candidates down to trades satisfying every canonical
// invariant and reports how many were dropped. Rejected rows are counted,
// not warned about. Idempotent: normalizing an already-normalized slice
// returns it unchanged.
func Normalize(candidates []parser.Trade) ([]parser.Trade, int) {
	trades := make([]parser.Trade, 0, len(candidates))
	dropped := 0

	for _, t := range candidates {
		if !valid(t) {
			dropped++
			continue
		}
		trades = append(trades, t)
	}
	return trades, dropped
}

func valid(t parser.Trade) bool {
	if strings.TrimSpace(t.Ticker) == "" {
		return false
	}
	if t.Type != parser.TypeBuy && t.Type != parser.TypeSell {
		return false
	}
	if !finitePositive(t.Qty) || !finitePositive(t.Price) {
		return false
	}
	if math.IsNaN(t.Fees) || math.IsInf(t.Fees, 0) || t.Fees < 0 {
		return false
	}
	if !money.ValidCurrency(t.Currency) {
		return false
	}
	if t.Date == "" {
		return false
	}
	if _, err := time.Parse(time.RFC3339, t.Date); err != nil {
		return false
	}
	return true
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
