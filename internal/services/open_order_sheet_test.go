package services

import (
	"bytes"
	"testing"

	apperrors "warehouse-system/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseOpenOrderSheet_CSV(t *testing.T) {
	content := []byte("\xef\xbb\xbfOpen Orders Report\n" +
		"SO #;Customer Code;Item Code;Qty Ordered;Ship By\n" +
		"SO-1;C1;IT-1;5;2026-01-10\n" +
		";;;;\n" +
		"SO-2;C2;IT-2;3;\n" +
		"Total;;;8;\n")

	sheet, err := ParseOpenOrderSheet("orders.csv", content)
	require.NoError(t, err)

	assert.Equal(t, 2, sheet.HeaderRow)
	assert.Equal(t, 0, sheet.Header[ColSONo])
	assert.Equal(t, 4, sheet.Header[ColShipBy])
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, 3, sheet.Rows[0].Number)
	assert.Equal(t, "SO-2", sheet.Rows[1].Cells[0])
	assert.Equal(t, DecimalComma, sheet.NumberFormat)
}

func TestParseOpenOrderSheet_SemicolonCSVUsesDecimalComma(t *testing.T) {
	content := []byte("SO No;Customer Code;Item Code;Qty Ordered;Qty Shipped;Unit Price\n" +
		"SO-1;C1;IT-1;12,5;0;1.234,50\n")

	sheet, err := ParseOpenOrderSheet("orders.csv", content)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)

	row, err := NormalizeRow(sheet.Rows[0].Number, sheet.Rows[0].Cells, sheet.Header, sheet.NumberFormat)
	require.NoError(t, err)
	assert.Equal(t, "12.5", row.QtyOrdered.String())
	assert.Equal(t, "12.5", row.QtyRemaining.String())
	assert.Equal(t, "1234.5", row.UnitPrice.String())
}

func TestParseOpenOrderSheet_CommaCSVUsesDecimalPoint(t *testing.T) {
	sheet, err := ParseOpenOrderSheet("orders.csv", csvFile(`SO-1,C1,IT-1,"1,234",10,`))
	require.NoError(t, err)
	assert.Equal(t, DecimalPoint, sheet.NumberFormat)

	row, err := NormalizeRow(sheet.Rows[0].Number, sheet.Rows[0].Cells, sheet.Header, sheet.NumberFormat)
	require.NoError(t, err)
	assert.Equal(t, "1234", row.QtyOrdered.String())
}

func TestParseOpenOrderSheet_XLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Sales Order", "Customer", "Item", "Part No", "Qty", "Shipped"},
		{"SO-10", "ACME", "W-1", "P-1", 10, 2},
		{"SO-11", "ACME", "W-2", "", 4, 0},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	sheet, err := ParseOpenOrderSheet("export.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sheet.Sheet)
	require.Len(t, sheet.Rows, 2)

	row, err := NormalizeRow(sheet.Rows[0].Number, sheet.Rows[0].Cells, sheet.Header, sheet.NumberFormat)
	require.NoError(t, err)
	assert.Equal(t, "SO-10", row.SONo)
	assert.Equal(t, "8", row.QtyRemaining.String())
}

func TestParseOpenOrderSheet_MissingColumns(t *testing.T) {
	_, err := ParseOpenOrderSheet("orders.csv", []byte("SO No,Customer Code\nSO-1,C1\n"))

	var missing *apperrors.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"item_code", "qty_ordered"}, missing.Columns)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestParseOpenOrderSheet_Rejects(t *testing.T) {
	_, err := ParseOpenOrderSheet("orders.csv", []byte("  \n"))
	assert.ErrorIs(t, err, apperrors.ErrEmptyUpload)

	_, err = ParseOpenOrderSheet("orders.pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFile)

	_, err = ParseOpenOrderSheet("orders.csv", []byte("a,b,c\n1,2,3\n"))
	assert.ErrorIs(t, err, apperrors.ErrHeaderNotFound)
}
