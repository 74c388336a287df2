package services

import (
	"sort"
	"time"

	"warehouse-system/internal/entities"
)

type FieldChange struct {
	Field  string
	Before string
	After  string
}

type ChangedRow struct {
	Key     string
	Changes []FieldChange
}

// OpenOrderDiff - классификация ключей текущей выгрузки относительно открытых строк.
// NewKeys, StillOpenKeys и CompletedKeys не пересекаются. ReopenedKeys входит в NewKeys,
// ChangedRows - в StillOpenKeys. Все срезы отсортированы.
type OpenOrderDiff struct {
	NewKeys       []string
	StillOpenKeys []string
	CompletedKeys []string
	ReopenedKeys  []string
	ChangedRows   []ChangedRow
}

func (d OpenOrderDiff) changedByKey() map[string]ChangedRow {
	out := make(map[string]ChangedRow, len(d.ChangedRows))
	for _, c := range d.ChangedRows {
		out[c.Key] = c
	}
	return out
}

type keySet map[string]struct{}

func (s keySet) has(k string) bool {
	_, ok := s[k]
	return ok
}

// DiffOpenOrders сравнивает ключи выгрузки с открытыми строками.
// completed - ключи строк, которые уже были закрыты; по ним определяются переоткрытые.
// Функция чистая: порядок обхода map на результат не влияет.
func DiffOpenOrders(current, open map[string]entities.OrderLineFields, completed map[string]struct{}) OpenOrderDiff {
	var d OpenOrderDiff

	for key, now := range current {
		before, wasOpen := open[key]
		if !wasOpen {
			d.NewKeys = append(d.NewKeys, key)
			if keySet(completed).has(key) {
				d.ReopenedKeys = append(d.ReopenedKeys, key)
			}
			continue
		}
		d.StillOpenKeys = append(d.StillOpenKeys, key)
		if changes := CompareLineFields(before, now); len(changes) > 0 {
			d.ChangedRows = append(d.ChangedRows, ChangedRow{Key: key, Changes: changes})
		}
	}

	for key := range open {
		if _, present := current[key]; !present {
			d.CompletedKeys = append(d.CompletedKeys, key)
		}
	}

	sort.Strings(d.NewKeys)
	sort.Strings(d.StillOpenKeys)
	sort.Strings(d.CompletedKeys)
	sort.Strings(d.ReopenedKeys)
	sort.Slice(d.ChangedRows, func(i, j int) bool { return d.ChangedRows[i].Key < d.ChangedRows[j].Key })
	return d
}

// CompareLineFields возвращает отличия в сравниваемых полях, в фиксированном порядке.
func CompareLineFields(before, after entities.OrderLineFields) []FieldChange {
	var changes []FieldChange
	add := func(field, b, a string) {
		if b != a {
			changes = append(changes, FieldChange{Field: field, Before: b, After: a})
		}
	}

	add("so_state", before.SOState, after.SOState)
	add("ship_by", formatDate(before.ShipBy), formatDate(after.ShipBy))
	if !before.QtyOrdered.Equal(after.QtyOrdered) {
		add("qty_ordered", before.QtyOrdered.String(), after.QtyOrdered.String())
	}
	if !before.QtyShipped.Equal(after.QtyShipped) {
		add("qty_shipped", before.QtyShipped.String(), after.QtyShipped.String())
	}
	if !before.QtyRemaining.Equal(after.QtyRemaining) {
		add("qty_remaining", before.QtyRemaining.String(), after.QtyRemaining.String())
	}
	if !before.UnitPrice.Equal(after.UnitPrice) {
		add("unit_price", before.UnitPrice.String(), after.UnitPrice.String())
	}
	return changes
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
