package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warehouse-system/internal/entities"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// OpenOrderColumn - каноническое имя колонки выгрузки открытых заказов.
type OpenOrderColumn string

const (
	ColSONo            OpenOrderColumn = "so_no"
	ColSOState         OpenOrderColumn = "so_state"
	ColOrderDate       OpenOrderColumn = "order_date"
	ColShipBy          OpenOrderColumn = "ship_by"
	ColCustomerCode    OpenOrderColumn = "customer_code"
	ColCustomerName    OpenOrderColumn = "customer_name"
	ColItemCode        OpenOrderColumn = "item_code"
	ColItemDescription OpenOrderColumn = "item_description"
	ColPartNo          OpenOrderColumn = "part_no"
	ColQtyOrdered      OpenOrderColumn = "qty_ordered"
	ColQtyShipped      OpenOrderColumn = "qty_shipped"
	ColQtyRemaining    OpenOrderColumn = "qty_remaining"
	ColUnitPrice       OpenOrderColumn = "unit_price"
)

// HeaderIndex - номер ячейки для каждой найденной колонки.
type HeaderIndex map[OpenOrderColumn]int

// NumberFormat - какой знак в файле считается десятичным, если запись неоднозначна ("1,234").
type NumberFormat int

const (
	DecimalPoint NumberFormat = iota
	DecimalComma
)

// RowParseError - строку нельзя привести к записи. Импорт её пропускает.
type RowParseError struct {
	Row    int
	Column OpenOrderColumn
	Value  string
	Reason string
}

func (e *RowParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("строка %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("строка %d, колонка %s (%q): %s", e.Row, e.Column, e.Value, e.Reason)
}

// NormalizedRow - строка файла после нормализации.
type NormalizedRow struct {
	Row int
	Key string
	entities.OrderLineFields
}

var openOrderDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"02.01.2006",
	"2.1.2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
}

// NaturalKey считает ключ строки заказа по идентифицирующим полям.
func NaturalKey(soNo, customerCode, itemCode, partNo string) string {
	parts := []string{soNo, customerCode, itemCode, partNo}
	for i, p := range parts {
		parts[i] = strings.ToUpper(collapseSpaces(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// NormalizeRow приводит сырую строку к типизированной записи и считает её ключ.
// Числа округляются до entities.DecimalScale, как их хранит база.
func NormalizeRow(rowNum int, cells []string, idx HeaderIndex, format NumberFormat) (*NormalizedRow, error) {
	get := func(col OpenOrderColumn) string {
		i, ok := idx[col]
		if !ok || i < 0 || i >= len(cells) {
			return ""
		}
		return collapseSpaces(cells[i])
	}

	out := &NormalizedRow{Row: rowNum}
	f := &out.OrderLineFields

	f.SONo = get(ColSONo)
	if f.SONo == "" {
		return nil, &RowParseError{Row: rowNum, Column: ColSONo, Reason: "не указан номер заказа"}
	}
	f.SOState = get(ColSOState)
	f.CustomerCode = get(ColCustomerCode)
	f.CustomerName = get(ColCustomerName)
	f.ItemCode = get(ColItemCode)
	f.ItemDescription = get(ColItemDescription)
	f.PartNo = get(ColPartNo)

	var err error
	if f.OrderDate, err = parseOpenOrderDate(rowNum, ColOrderDate, get(ColOrderDate)); err != nil {
		return nil, err
	}
	if f.ShipBy, err = parseOpenOrderDate(rowNum, ColShipBy, get(ColShipBy)); err != nil {
		return nil, err
	}
	if f.QtyOrdered, err = parseOpenOrderDecimal(rowNum, ColQtyOrdered, get(ColQtyOrdered), format); err != nil {
		return nil, err
	}
	if f.QtyShipped, err = parseOpenOrderDecimal(rowNum, ColQtyShipped, get(ColQtyShipped), format); err != nil {
		return nil, err
	}
	if f.UnitPrice, err = parseOpenOrderDecimal(rowNum, ColUnitPrice, get(ColUnitPrice), format); err != nil {
		return nil, err
	}

	if _, ok := idx[ColQtyRemaining]; ok {
		if f.QtyRemaining, err = parseOpenOrderDecimal(rowNum, ColQtyRemaining, get(ColQtyRemaining), format); err != nil {
			return nil, err
		}
	} else {
		f.QtyRemaining = decimal.Max(f.QtyOrdered.Sub(f.QtyShipped), decimal.Zero)
	}

	out.Key = NaturalKey(f.SONo, f.CustomerCode, f.ItemCode, f.PartNo)
	return out, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseOpenOrderDecimal(rowNum int, col OpenOrderColumn, raw string, format NumberFormat) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "-" {
		return decimal.Zero, nil
	}
	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	v = strings.NewReplacer(" ", "", "\u00a0", "", "$", "").Replace(v)

	canonical, ok := canonicalDecimal(v, format)
	if !ok {
		return decimal.Zero, &RowParseError{Row: rowNum, Column: col, Value: raw, Reason: "неоднозначный разделитель разрядов"}
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, &RowParseError{Row: rowNum, Column: col, Value: raw, Reason: "не число"}
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(entities.DecimalScale), nil
}

// canonicalDecimal переводит число к виду с точкой и без разделителей разрядов.
// Если есть и точка, и запятая, десятичный знак - последний из них.
func canonicalDecimal(v string, format NumberFormat) (string, bool) {
	dot, comma := strings.LastIndexByte(v, '.'), strings.LastIndexByte(v, ',')
	switch {
	case dot >= 0 && comma >= 0:
		dec, group := byte('.'), ","
		if comma > dot {
			dec, group = ',', "."
		}
		i := strings.LastIndexByte(v, dec)
		intPart, frac := v[:i], v[i+1:]
		if strings.IndexByte(intPart, dec) >= 0 || !isDigitGrouping(intPart, group) {
			return "", false
		}
		return strings.ReplaceAll(intPart, group, "") + "." + frac, true
	case comma >= 0:
		return resolveSeparator(v, ",", format == DecimalComma)
	case dot >= 0:
		return resolveSeparator(v, ".", format == DecimalPoint)
	}
	return v, true
}

// resolveSeparator решает, чем является единственный вид разделителя в числе.
// "12,5" не может быть группировкой разрядов, "1,234" - может, тогда решает формат файла.
func resolveSeparator(v, sep string, preferDecimal bool) (string, bool) {
	n := strings.Count(v, sep)
	if isDigitGrouping(v, sep) && (n > 1 || !preferDecimal) {
		return strings.ReplaceAll(v, sep, ""), true
	}
	if n == 1 {
		return strings.Replace(v, sep, ".", 1), true
	}
	return "", false
}

// isDigitGrouping: первая группа 1-3 цифры, остальные ровно по 3.
func isDigitGrouping(v, sep string) bool {
	groups := strings.Split(strings.TrimLeft(v, "+-"), sep)
	for i, g := range groups {
		if (i == 0 && (len(g) < 1 || len(g) > 3)) || (i > 0 && len(g) != 3) {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func parseOpenOrderDate(rowNum int, col OpenOrderColumn, raw string) (*time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	// Excel хранит даты как число дней
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < 1 || serial > 2958465 {
			return nil, &RowParseError{Row: rowNum, Column: col, Value: raw, Reason: "дата вне допустимого диапазона"}
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, &RowParseError{Row: rowNum, Column: col, Value: raw, Reason: "не дата"}
		}
		d := dateOnly(t)
		return &d, nil
	}

	for _, layout := range openOrderDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			d := dateOnly(t)
			return &d, nil
		}
	}
	return nil, &RowParseError{Row: rowNum, Column: col, Value: raw, Reason: "не дата"}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
