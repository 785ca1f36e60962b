package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/broker"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestFlattenWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Type", "Market", "Amount", "Price"},
		{"2024-01-01", "BUY", "BTC/USDT", "0.5", "42000"},
	})

	flat, err := FlattenWorkbook(data)
	require.NoError(t, err)

	// Flattened workbooks go through the same pipeline as CSV uploads.
	reg := NewRegistry(nil)
	res, err := reg.Parse(broker.Binance, flat)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "BTC", res.Trades[0].Ticker)
}

func TestFlattenWorkbookRejectsGarbage(t *testing.T) {
	_, err := FlattenWorkbook([]byte("not a zip archive"))
	assert.Error(t, err)
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("trades.xlsx", ""))
	assert.True(t, IsWorkbook("trades.bin", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.False(t, IsWorkbook("trades.csv", "text/csv"))
}
