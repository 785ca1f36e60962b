package parser

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
	"github.com/FACorreiaa/broker-import/internal/domain/ticker"
	"github.com/FACorreiaa/broker-import/pkg/money"
)

// Non-trade categories silently skipped rather than warned about. Matching
// is case-insensitive substring matching on the action cell.
var skipMarkers = []string{
	"dividend", "dividendo", "interest", "transfer", "deposit", "withdraw",
	"split", "top-up", "top up", "custody", "sweep", "lending", "fee",
	"send", "receive", "convert", "reward", "income", "staking",
	"cash in", "cash out",
}

// Action texts classified as SELL; everything else that is a trade is a BUY.
var sellMarkers = []string{"sell", "sold", "sale", "venda", "sld"}

// tableParser is the shared engine behind every registry entry. All
// broker-specific behavior lives in the Profile.
type tableParser struct {
	profile  broker.Profile
	resolver *ticker.Resolver
}

func newTableParser(profile broker.Profile, resolver *ticker.Resolver) *tableParser {
	return &tableParser{profile: profile, resolver: resolver}
}

func (p *tableParser) Version() string { return Version }

func (p *tableParser) Parse(content string) (*Result, error) {
	start := time.Now()
	res := &Result{
		Broker:   p.profile.ID,
		Trades:   []Trade{},
		Warnings: []string{},
		Meta:     Meta{ParserVersion: Version},
	}

	header, records, err := splitRows(content)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file unusable: %v", err))
		res.Meta.DurationMs = time.Since(start).Milliseconds()
		return res, fmt.Errorf("%w: %v", ErrFatalInput, err)
	}

	cols := mapHeader(header, p.profile.Aliases)
	res.Meta.RowCount = len(records)

	for i, record := range records {
		rowNum := i + 2 // header is line 1
		trade, warn := p.parseRow(record, cols, rowNum)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
			res.Meta.InvalidCount++
			continue
		}
		if trade != nil {
			res.Trades = append(res.Trades, *trade)
		}
	}

	res.Meta.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

// parseRow maps one record to a candidate trade. A nil trade with an empty
// warning means the row was a non-trade category and is skipped silently.
// Any panic inside row logic becomes one warning; the rest of the file is
// unaffected.
func (p *tableParser) parseRow(record []string, cols map[broker.Field]int, rowNum int) (trade *Trade, warn string) {
	defer func() {
		if r := recover(); r != nil {
			trade = nil
			warn = fmt.Sprintf("row %d: %v", rowNum, r)
		}
	}()

	if blankRecord(record) {
		return nil, ""
	}

	cell := func(f broker.Field) string {
		idx, ok := cols[f]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	action := cell(broker.FieldAction)
	if isSkipAction(action) {
		return nil, ""
	}
	side := TypeBuy
	if isSellAction(action) {
		side = TypeSell
	}

	qty, err := money.ParseAmount(cell(broker.FieldQuantity))
	if err != nil {
		return nil, fmt.Sprintf("row %d: bad quantity %q", rowNum, cell(broker.FieldQuantity))
	}
	if p.profile.NegativeQtyIsSell && qty.IsNegative() {
		side = TypeSell
	}

	price, err := money.ParseAmount(cell(broker.FieldPrice))
	if err != nil {
		return nil, fmt.Sprintf("row %d: bad price %q", rowNum, cell(broker.FieldPrice))
	}

	date, err := ParseDate(p.profile.DateConv, cell(broker.FieldDate))
	if err != nil {
		return nil, fmt.Sprintf("row %d: %v", rowNum, err)
	}

	sym, warnMsg := p.resolveTicker(cell, rowNum)
	if warnMsg != "" {
		return nil, warnMsg
	}

	fees := 0.0
	if raw := cell(broker.FieldFee); raw != "" {
		if f, err := money.ParseAmount(raw); err == nil {
			fees = f.Abs().InexactFloat64()
		}
	}

	return &Trade{
		Date:     date,
		Ticker:   sym,
		Type:     side,
		Qty:      qty.Abs().InexactFloat64(),
		Price:    price.Abs().InexactFloat64(),
		Currency: money.ResolveCurrency(cell(broker.FieldCurrency), p.profile.DefaultCurrency),
		Fees:     fees,
		Source:   p.profile.ID,
		RawHash:  rowHash(record),
	}, ""
}

func (p *tableParser) resolveTicker(cell func(broker.Field) string, rowNum int) (string, string) {
	switch p.profile.Ticker {
	case broker.TickerPairBase:
		pair := cell(broker.FieldPair)
		if pair == "" {
			return "", fmt.Sprintf("row %d: missing pair", rowNum)
		}
		return pairBase(pair), ""
	case broker.TickerDetailSuffix:
		detail := cell(broker.FieldInstrument)
		if detail == "" {
			return "", fmt.Sprintf("row %d: missing instrument", rowNum)
		}
		if idx := strings.LastIndex(detail, "/"); idx >= 0 && idx < len(detail)-1 {
			return strings.ToUpper(strings.TrimSpace(detail[idx+1:])), ""
		}
		sym, _ := p.resolver.Resolve(detail)
		return sym, ""
	case broker.TickerNameLookup:
		name := cell(broker.FieldInstrument)
		if name == "" {
			return "", fmt.Sprintf("row %d: missing product name", rowNum)
		}
		sym, _ := p.resolver.Resolve(name)
		return sym, ""
	default:
		sym := strings.ToUpper(cell(broker.FieldTicker))
		if sym == "" {
			return "", fmt.Sprintf("row %d: missing ticker", rowNum)
		}
		return sym, ""
	}
}

// pairBase extracts the base asset from an exchange pair: "BTC/USDT" → BTC,
// "ETH-EUR" → ETH, "ADAEUR" → ADA.
func pairBase(pair string) string {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	for _, sep := range []string{"/", "-", "_"} {
		if idx := strings.Index(pair, sep); idx > 0 {
			return pair[:idx]
		}
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "ZUSD", "ZEUR", "USD", "EUR", "GBP", "BTC", "ETH"} {
		if strings.HasSuffix(pair, quote) && len(pair) > len(quote) {
			return strings.TrimSuffix(pair, quote)
		}
	}
	return pair
}

func isSkipAction(action string) bool {
	if action == "" {
		return false
	}
	lower := strings.ToLower(action)
	if isSellAction(action) {
		// "Sell" rows are never skippable even when decorated ("Stop sell").
		return false
	}
	for _, marker := range skipMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isSellAction(action string) bool {
	lower := strings.ToLower(action)
	for _, marker := range sellMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// splitRows splits content into a header record and data records. It is the
// source of the two fatal conditions: fewer than two non-empty lines, or a
// header that does not split into at least two columns.
func splitRows(content string) ([]string, [][]string, error) {
	content = strings.TrimPrefix(content, "\uFEFF")

	nonEmpty := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
		if nonEmpty >= 2 {
			break
		}
	}
	if nonEmpty < 2 {
		return nil, nil, fmt.Errorf("need a header and at least one data row")
	}

	headerLine := firstNonEmptyLine(content)
	delimiter := detectDelimiter(headerLine)
	if delimiter == 0 {
		return nil, nil, fmt.Errorf("header cannot be split into columns")
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil || len(all) < 2 {
		return nil, nil, fmt.Errorf("content is not parseable as delimited text")
	}
	return all[0], all[1:], nil
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func detectDelimiter(line string) rune {
	best, bestCount := rune(0), 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// mapHeader builds the logical-field → column-index lookup. Aliases are
// matched case-insensitively against trimmed header cells, first alias wins.
func mapHeader(header []string, aliases map[broker.Field][]string) map[broker.Field]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	cols := make(map[broker.Field]int, len(aliases))
	for field, names := range aliases {
		for _, name := range names {
			want := strings.ToLower(strings.TrimSpace(name))
			for i, h := range normalized {
				if h == want {
					cols[field] = i
					break
				}
			}
			if _, ok := cols[field]; ok {
				break
			}
		}
	}
	return cols
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowHash fingerprints the originating record so downstream imports can
// dedupe idempotently.
func rowHash(record []string) string {
	sum := sha256.Sum256([]byte(strings.Join(record, "|")))
	return hex.EncodeToString(sum[:])
}
