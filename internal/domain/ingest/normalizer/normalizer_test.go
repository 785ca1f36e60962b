package normalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
)

func validTrade() parser.Trade {
	return parser.Trade{
		Date:     "2024-01-01T00:00:00Z",
		Ticker:   "AAPL",
		Type:     parser.TypeBuy,
		Qty:      10,
		Price:    185.30,
		Currency: "USD",
		Fees:     1.5,
		Source:   "revolut",
	}
}

func TestNormalizeDropsInvariantViolations(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*parser.Trade)
	}{
		{"zero qty", func(t *parser.Trade) { t.Qty = 0 }},
		{"negative qty", func(t *parser.Trade) { t.Qty = -1 }},
		{"NaN qty", func(t *parser.Trade) { t.Qty = math.NaN() }},
		{"infinite price", func(t *parser.Trade) { t.Price = math.Inf(1) }},
		{"zero price", func(t *parser.Trade) { t.Price = 0 }},
		{"negative fees", func(t *parser.Trade) { t.Fees = -0.01 }},
		{"empty ticker", func(t *parser.Trade) { t.Ticker = "  " }},
		{"bad type", func(t *parser.Trade) { t.Type = "HOLD" }},
		{"lowercase type", func(t *parser.Trade) { t.Type = "buy" }},
		{"empty date", func(t *parser.Trade) { t.Date = "" }},
		{"garbage date", func(t *parser.Trade) { t.Date = "yesterday" }},
		{"bad currency", func(t *parser.Trade) { t.Currency = "DOLLARS" }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			bad := validTrade()
			m.mutate(&bad)

			trades, dropped := Normalize([]parser.Trade{validTrade(), bad})
			assert.Len(t, trades, 1)
			assert.Equal(t, 1, dropped)
		})
	}
}

// Every trade that survives satisfies the full invariant set.
func TestNormalizeExhaustiveInvariants(t *testing.T) {
	input := []parser.Trade{
		validTrade(),
		{Date: "2024-01-02T00:00:00Z", Ticker: "TSLA", Type: parser.TypeSell, Qty: 2, Price: 220.1, Currency: "USD"},
		{Date: "bad", Ticker: "X", Type: parser.TypeBuy, Qty: 1, Price: 1, Currency: "USD"},
		{Date: "2024-01-03T00:00:00Z", Ticker: "", Type: parser.TypeBuy, Qty: 1, Price: 1, Currency: "USD"},
	}

	trades, dropped := Normalize(input)
	require.Equal(t, 2, dropped)

	for _, tr := range trades {
		assert.Greater(t, tr.Qty, 0.0)
		assert.Greater(t, tr.Price, 0.0)
		assert.GreaterOrEqual(t, tr.Fees, 0.0)
		assert.NotEmpty(t, tr.Ticker)
		assert.Contains(t, []string{parser.TypeBuy, parser.TypeSell}, tr.Type)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := []parser.Trade{
		validTrade(),
		{Date: "2024-01-02T00:00:00Z", Ticker: "TSLA", Type: parser.TypeSell, Qty: 2, Price: 220.1, Currency: "USD"},
		{Date: "", Ticker: "BAD", Type: parser.TypeBuy, Qty: 1, Price: 1, Currency: "USD"},
	}

	once, droppedOnce := Normalize(input)
	twice, droppedTwice := Normalize(once)

	assert.Equal(t, 1, droppedOnce)
	assert.Equal(t, 0, droppedTwice, "re-normalizing a normalized sequence drops nothing")
	assert.Equal(t, once, twice)
}

func TestNormalizeEmptyInput(t *testing.T) {
	trades, dropped := Normalize(nil)
	assert.Empty(t, trades)
	assert.Zero(t, dropped)
}
