package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	apperrors "warehouse-system/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// RawRow - строка файла как есть. Number - номер строки в файле, с 1.
type RawRow struct {
	Number int
	Cells  []string
}

type ParsedSheet struct {
	Sheet     string
	HeaderRow int
	Header    HeaderIndex
	Rows      []RawRow
	// CSV с ';' выгружается в локали с десятичной запятой
	NumberFormat NumberFormat
}

// Синонимы заголовков после normalizeHeaderName.
var openOrderHeaderAliases = map[OpenOrderColumn][]string{
	ColSONo:            {"sono", "sonumber", "salesorder", "salesorderno", "salesordernumber", "ordernumber", "orderno", "so"},
	ColSOState:         {"sostate", "state", "orderstate", "status", "sostatus"},
	ColOrderDate:       {"orderdate", "sodate", "date"},
	ColShipBy:          {"shipby", "shipbydate", "shipdate", "duedate", "requireddate", "promisedate"},
	ColCustomerCode:    {"customercode", "customerid", "customerno", "custcode", "custid", "customer"},
	ColCustomerName:    {"customername", "custname", "name"},
	ColItemCode:        {"itemcode", "itemno", "itemid", "item", "sku"},
	ColItemDescription: {"itemdescription", "description", "itemdesc", "desc"},
	ColPartNo:          {"partno", "partnumber", "part", "custpartno", "customerpartno"},
	ColQtyOrdered:      {"qtyordered", "orderedqty", "quantityordered", "qty", "quantity", "orderqty"},
	ColQtyShipped:      {"qtyshipped", "shippedqty", "quantityshipped", "shipped"},
	ColQtyRemaining:    {"qtyremaining", "remainingqty", "openqty", "qtyopen", "balance", "backorder", "remaining"},
	ColUnitPrice:       {"unitprice", "price", "priceeach", "unitcost"},
}

var requiredOpenOrderColumns = []OpenOrderColumn{ColSONo, ColCustomerCode, ColItemCode, ColQtyOrdered}

// ParseOpenOrderSheet читает .xlsx или .csv и находит строку заголовков.
func ParseOpenOrderSheet(filename string, content []byte) (*ParsedSheet, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(content)
	case ".csv", ".txt":
		return parseCSV(content)
	}
	// xlsx - это zip-архив
	if bytes.HasPrefix(content, []byte("PK")) {
		return parseXLSX(content)
	}
	return nil, apperrors.ErrUnsupportedFile
}

func parseXLSX(content []byte) (*ParsedSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "не удалось открыть файл Excel", fmt.Errorf("%w: %v", apperrors.ErrUnsupportedFile, err), nil)
	}
	defer f.Close()

	var lastMissing error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения листа %q: %w", sheet, err)
		}
		parsed, err := locateHeader(rows)
		if err == nil {
			parsed.Sheet = sheet
			return parsed, nil
		}
		var missing *apperrors.MissingColumnsError
		if errors.As(err, &missing) {
			lastMissing = err
		}
	}
	if lastMissing != nil {
		return nil, lastMissing
	}
	return nil, apperrors.ErrHeaderNotFound
}

func parseCSV(content []byte) (*ParsedSheet, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	format := DecimalPoint
	if delim := sniffCSVDelimiter(content); delim != ',' {
		r.Comma = delim
		if delim == ';' {
			format = DecimalComma
		}
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewHttpError(http.StatusBadRequest, "не удалось прочитать CSV", err, nil)
		}
		rows = append(rows, rec)
	}
	parsed, err := locateHeader(rows)
	if err != nil {
		return nil, err
	}
	parsed.Sheet = "csv"
	parsed.NumberFormat = format
	return parsed, nil
}

// sniffCSVDelimiter смотрит на первые строки: над заголовком часто стоит название отчёта.
func sniffCSVDelimiter(content []byte) rune {
	head := content
	for i, n := 0, 0; i < len(content); i++ {
		if content[i] == '\n' {
			if n++; n == 10 {
				head = content[:i]
				break
			}
		}
	}
	best, bestCount := ',', bytes.Count(head, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if c := bytes.Count(head, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// locateHeader ищет первую строку, похожую на заголовок, и собирает строки данных под ней.
func locateHeader(rows [][]string) (*ParsedSheet, error) {
	for rIdx, row := range rows {
		idx := matchHeader(row)
		if _, ok := idx[ColSONo]; !ok {
			continue
		}

		var missing []string
		for _, col := range requiredOpenOrderColumns {
			if _, ok := idx[col]; !ok {
				missing = append(missing, string(col))
			}
		}
		if len(missing) > 0 {
			return nil, apperrors.NewMissingColumnsError("файл", missing, apperrors.ErrBadRequest)
		}

		parsed := &ParsedSheet{HeaderRow: rIdx + 1, Header: idx}
		for i := rIdx + 1; i < len(rows); i++ {
			if isBlankOrTotalRow(rows[i]) {
				continue
			}
			parsed.Rows = append(parsed.Rows, RawRow{Number: i + 1, Cells: rows[i]})
		}
		return parsed, nil
	}
	return nil, apperrors.ErrHeaderNotFound
}

func matchHeader(row []string) HeaderIndex {
	lookup := make(map[string]OpenOrderColumn)
	for col, aliases := range openOrderHeaderAliases {
		for _, a := range aliases {
			lookup[a] = col
		}
	}

	idx := make(HeaderIndex)
	for cIdx, cell := range row {
		col, ok := lookup[normalizeHeaderName(cell)]
		if !ok {
			continue
		}
		// при повторе колонки берём первую
		if _, seen := idx[col]; !seen {
			idx[col] = cIdx
		}
	}
	return idx
}

func normalizeHeaderName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("#", "no", "№", "no").Replace(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBlankOrTotalRow(row []string) bool {
	first := ""
	for _, c := range row {
		if v := strings.TrimSpace(c); v != "" {
			first = strings.ToLower(v)
			break
		}
	}
	if first == "" {
		return true
	}
	return strings.HasPrefix(first, "total") || strings.HasPrefix(first, "grand total") || strings.HasPrefix(first, "итого")
}
