package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/fallback"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
)

const revolutCSV = `Date,Ticker,Type,Quantity,Price per share,Currency,Fee
2024-01-02T14:04:05Z,AAPL,BUY,1,185.30,USD,0.50
2024-01-04T10:00:00Z,TSLA,SELL,2,220.10,USD,`

const degiroCSV = `Date,Product,Action,Quantity,Price,Currency,Transaction costs
01-03-2024,Apple Inc,Buy,10,180.25,EUR,2.00
02-03-2024,Tesla Inc,Sell,2,221.00,EUR,`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func input(name, content string) RawInput {
	return RawInput{Name: name, Size: int64(len(content)), Content: []byte(content)}
}

func TestImportHealthyFile(t *testing.T) {
	svc := New(testLogger())

	res, err := svc.Import(context.Background(), input("trades.csv", revolutCSV))
	require.NoError(t, err)

	assert.Equal(t, broker.Revolut, res.Broker)
	require.Len(t, res.Trades, 2)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, parser.Version, res.Meta.ParserVersion)
	assert.NotEqual(t, uuid.Nil, res.Meta.JobID)
	assert.Equal(t, 2, res.Meta.RowCount)
}

func TestImportUnknownFormat(t *testing.T) {
	svc := New(testLogger())

	res, err := svc.Import(context.Background(), input("export.csv", "foo,bar,baz\n1,2,3"))
	require.NoError(t, err, "an unrecognized format is a user problem, not a failure")

	assert.Equal(t, broker.Unknown, res.Broker)
	assert.Empty(t, res.Trades)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, unknownBrokerWarning, res.Warnings[0])
}

func TestImportFatalInput(t *testing.T) {
	svc := New(testLogger())

	res, err := svc.Import(context.Background(),
		input("trades.csv", "Date,Ticker,Type,Quantity,Price per share\n"))
	require.ErrorIs(t, err, parser.ErrFatalInput)
	require.NotNil(t, res, "fatal parses still carry their diagnostics")
	assert.Empty(t, res.Trades)
	assert.Len(t, res.Warnings, 1)
}

func TestImportSizeCeiling(t *testing.T) {
	svc := New(testLogger(), WithMaxBytes(8))

	_, err := svc.Import(context.Background(), input("big.csv", revolutCSV))
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestImportCanceledContext(t *testing.T) {
	svc := New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, input("trades.csv", revolutCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

// A registry missing a parser must not surface as an error when an embedded
// twin covers the broker; the caller sees an ordinary result whose version
// tag is the only evidence of the detour.
func TestImportFallsBackWhenParserMissing(t *testing.T) {
	registry := parser.NewRegistry(nil)
	registry.Deregister(broker.Revolut)
	svc := New(testLogger(), WithRegistry(registry))

	res, err := svc.Import(context.Background(), input("trades.csv", revolutCSV))
	require.NoError(t, err)

	assert.Equal(t, broker.Revolut, res.Broker)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, fallback.Version, res.Meta.ParserVersion)
}

func TestImportNoParserAndNoTwin(t *testing.T) {
	registry := parser.NewRegistry(nil)
	registry.Deregister(broker.Binance)
	svc := New(testLogger(), WithRegistry(registry))

	content := "Date,Type,Market,Amount,Price\n2024-01-01,BUY,BTC/USDT,0.5,42000"
	res, err := svc.Import(context.Background(), input("trades.csv", content))
	require.NoError(t, err)

	assert.Equal(t, broker.Binance, res.Broker)
	assert.Empty(t, res.Trades)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no parser available")
}

// stubParser stands in for a registry engine that technically succeeds but
// produces a suspicious result.
type stubParser struct {
	res *parser.Result
}

func (p *stubParser) Parse(string) (*parser.Result, error) { return p.res, nil }
func (p *stubParser) Version() string                      { return parser.Version }

func TestImportLowConfidenceEscalation(t *testing.T) {
	weak := &parser.Result{
		Broker: broker.Degiro,
		Trades: []parser.Trade{{
			Date: "2024-03-01T00:00:00Z", Ticker: "AAPL", Type: parser.TypeBuy,
			Qty: 10, Price: 180.25, Currency: "EUR", Source: broker.Degiro,
		}},
		Warnings: []string{
			"row 2: unknown product", "row 3: unknown product",
			"row 4: unknown product", "row 5: unknown product",
			"row 6: unknown product",
		},
		Meta: parser.Meta{RowCount: 6, InvalidCount: 5, ParserVersion: parser.Version},
	}

	registry := parser.NewRegistry(nil)
	registry.Register(broker.Degiro, &stubParser{res: weak})
	svc := New(testLogger(), WithRegistry(registry))

	res, err := svc.Import(context.Background(), input("trades.csv", degiroCSV))
	require.NoError(t, err)

	// The twin parses the same bytes cleanly and yields more trades, so its
	// result replaces the weak primary one.
	assert.Equal(t, fallback.Version, res.Meta.ParserVersion)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, "AAPL", res.Trades[0].Ticker)
	assert.Equal(t, "TSLA", res.Trades[1].Ticker)
	assert.Empty(t, res.Warnings)
}

// A primary result with a healthy trade count stays even though the broker
// has a twin; escalation needs a trigger, not just availability.
func TestImportDoesNotEscalateHealthyPrimary(t *testing.T) {
	svc := New(testLogger())

	res, err := svc.Import(context.Background(), input("trades.csv", degiroCSV))
	require.NoError(t, err)

	assert.Equal(t, parser.Version, res.Meta.ParserVersion)
	assert.Len(t, res.Trades, 2)
}

// The fallback result is discarded when it is no better than the primary;
// the primary's warnings must survive.
func TestImportKeepsPrimaryOnFallbackTie(t *testing.T) {
	empty := &parser.Result{
		Broker:   broker.Revolut,
		Trades:   []parser.Trade{},
		Warnings: []string{"row 2: unreadable"},
		Meta:     parser.Meta{RowCount: 1, InvalidCount: 1, ParserVersion: parser.Version},
	}

	registry := parser.NewRegistry(nil)
	registry.Register(broker.Revolut, &stubParser{res: empty})
	svc := New(testLogger(), WithRegistry(registry))

	// The twin cannot do better with an all-skip file.
	content := "Date,Ticker,Type,Quantity,Price per share,Currency,Fee\n" +
		"2024-01-03T10:00:00Z,AAPL,CASH TOP-UP,,,USD,"
	res, err := svc.Import(context.Background(), input("trades.csv", content))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, []string{"row 2: unreadable"}, res.Warnings)
	assert.Equal(t, parser.Version, res.Meta.ParserVersion)
}

func TestImportWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Date", "Type", "Market", "Amount", "Price"},
		{"2024-01-01", "BUY", "BTC/USDT", "0.5", "42000"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	svc := New(testLogger())
	res, err := svc.Import(context.Background(), RawInput{
		Name:    "trades.xlsx",
		Size:    int64(buf.Len()),
		Content: buf.Bytes(),
	})
	require.NoError(t, err)

	assert.Equal(t, broker.Binance, res.Broker)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "BTC", res.Trades[0].Ticker)
}

func TestImportCorruptWorkbook(t *testing.T) {
	svc := New(testLogger())

	res, err := svc.Import(context.Background(), RawInput{
		Name:    "trades.xlsx",
		Size:    10,
		Content: []byte("not a zip!"),
	})
	require.ErrorIs(t, err, parser.ErrFatalInput)
	require.NotNil(t, res)
	assert.Len(t, res.Warnings, 1)
}
