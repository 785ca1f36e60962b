// Package fallback carries redundant embedded parsers for the brokers whose
// registry entries have historically gone missing under partial
// initialization. The duplication is deliberate resilience: each twin is an
// independent implementation (gocsv struct-tag unmarshaling instead of the
// registry's table engine) kept behaviorally equivalent to its registry
// counterpart by contract test.
package fallback

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
	"github.com/FACorreiaa/broker-import/internal/domain/ticker"
	"github.com/FACorreiaa/broker-import/pkg/money"
)

// Version tags results produced by the embedded twins.
const Version = "embedded/v1"

// Twins returns the embedded parsers keyed by broker id.
func Twins(resolver *ticker.Resolver) map[string]parser.Parser {
	if resolver == nil {
		resolver = ticker.Default()
	}
	return map[string]parser.Parser{
		broker.Revolut: &revolutParser{},
		broker.Degiro:  &degiroParser{resolver: resolver},
	}
}

// fatalCheck mirrors the registry engine's fatal conditions: a header plus
// at least one data row, and a splittable header.
func fatalCheck(content string) error {
	nonEmpty := 0
	header := ""
	for _, line := range strings.Split(strings.TrimPrefix(content, "\uFEFF"), "\n") {
		if strings.TrimSpace(line) != "" {
			if nonEmpty == 0 {
				header = line
			}
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return fmt.Errorf("need a header and at least one data row")
	}
	if !strings.ContainsAny(header, ",;\t|") {
		return fmt.Errorf("header cannot be split into columns")
	}
	return nil
}

func newResult(brokerID string) *parser.Result {
	return &parser.Result{
		Broker:   brokerID,
		Trades:   []parser.Trade{},
		Warnings: []string{},
		Meta:     parser.Meta{ParserVersion: Version},
	}
}

type revolutRow struct {
	Date     string `csv:"Date"`
	Ticker   string `csv:"Ticker"`
	Type     string `csv:"Type"`
	Quantity string `csv:"Quantity"`
	Price    string `csv:"Price per share"`
	Currency string `csv:"Currency"`
	Fee      string `csv:"Fee"`
}

type revolutParser struct{}

func (p *revolutParser) Version() string { return Version }

func (p *revolutParser) Parse(content string) (*parser.Result, error) {
	start := time.Now()
	res := newResult(broker.Revolut)

	if err := fatalCheck(content); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: %v", parser.ErrFatalInput, err)
	}

	var rows []revolutRow
	if err := gocsv.UnmarshalString(content, &rows); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: %v", parser.ErrFatalInput, err)
	}

	res.Meta.RowCount = len(rows)
	for i, row := range rows {
		rowNum := i + 2

		if skipAction(row.Type) {
			continue
		}

		qty, err := money.ParseAmount(row.Quantity)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: bad quantity %q", rowNum, strings.TrimSpace(row.Quantity)))
			continue
		}
		price, err := money.ParseAmount(row.Price)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: bad price %q", rowNum, strings.TrimSpace(row.Price)))
			continue
		}
		date, err := parser.ParseDate(broker.DateISO, row.Date)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(row.Ticker))
		if sym == "" {
			res.Warn(fmt.Sprintf("row %d: missing ticker", rowNum))
			continue
		}

		res.Trades = append(res.Trades, parser.Trade{
			Date:     date,
			Ticker:   sym,
			Type:     side(row.Type),
			Qty:      qty.Abs().InexactFloat64(),
			Price:    price.Abs().InexactFloat64(),
			Currency: money.ResolveCurrency(row.Currency, "USD"),
			Fees:     fee(row.Fee),
			Source:   broker.Revolut,
		})
	}

	res.Meta.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

type degiroRow struct {
	Date     string `csv:"Date"`
	Product  string `csv:"Product"`
	Action   string `csv:"Action"`
	Quantity string `csv:"Quantity"`
	Price    string `csv:"Price"`
	Currency string `csv:"Currency"`
	Costs    string `csv:"Transaction costs"`
}

type degiroParser struct {
	resolver *ticker.Resolver
}

func (p *degiroParser) Version() string { return Version }

func (p *degiroParser) Parse(content string) (*parser.Result, error) {
	start := time.Now()
	res := newResult(broker.Degiro)

	if err := fatalCheck(content); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: %v", parser.ErrFatalInput, err)
	}

	var rows []degiroRow
	if err := gocsv.UnmarshalString(content, &rows); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: %v", parser.ErrFatalInput, err)
	}

	res.Meta.RowCount = len(rows)
	for i, row := range rows {
		rowNum := i + 2

		if skipAction(row.Action) {
			continue
		}

		qty, err := money.ParseAmount(row.Quantity)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: bad quantity %q", rowNum, strings.TrimSpace(row.Quantity)))
			continue
		}
		price, err := money.ParseAmount(row.Price)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: bad price %q", rowNum, strings.TrimSpace(row.Price)))
			continue
		}
		date, err := parser.ParseDate(broker.DateDMYDash, row.Date)
		if err != nil {
			res.Warn(fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		name := strings.TrimSpace(row.Product)
		if name == "" {
			res.Warn(fmt.Sprintf("row %d: missing product name", rowNum))
			continue
		}
		sym, _ := p.resolver.Resolve(name)

		res.Trades = append(res.Trades, parser.Trade{
			Date:     date,
			Ticker:   sym,
			Type:     side(row.Action),
			Qty:      qty.Abs().InexactFloat64(),
			Price:    price.Abs().InexactFloat64(),
			Currency: money.ResolveCurrency(row.Currency, "EUR"),
			Fees:     fee(row.Costs),
			Source:   broker.Degiro,
		})
	}

	res.Meta.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

var skipMarkers = []string{
	"dividend", "dividendo", "interest", "transfer", "deposit", "withdraw",
	"split", "top-up", "top up", "custody", "sweep", "lending", "fee",
	"send", "receive", "convert", "reward", "income", "staking",
	"cash in", "cash out",
}

func skipAction(action string) bool {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" || side(action) == parser.TypeSell {
		return false
	}
	for _, marker := range skipMarkers {
		if strings.Contains(action, marker) {
			return true
		}
	}
	return false
}

func side(action string) string {
	lower := strings.ToLower(action)
	for _, marker := range []string{"sell", "sold", "sale", "venda", "sld"} {
		if strings.Contains(lower, marker) {
			return parser.TypeSell
		}
	}
	return parser.TypeBuy
}

func fee(raw string) float64 {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	f, err := money.ParseAmount(raw)
	if err != nil {
		return 0
	}
	return f.Abs().InexactFloat64()
}
