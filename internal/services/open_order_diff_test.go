package services

import (
	"testing"

	"warehouse-system/internal/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineFields(so string, remaining int64) entities.OrderLineFields {
	return entities.OrderLineFields{
		SONo:         so,
		CustomerCode: "C1",
		ItemCode:     "IT",
		QtyOrdered:   decimal.NewFromInt(10),
		QtyRemaining: decimal.NewFromInt(remaining),
	}
}

func TestDiffOpenOrders_Partition(t *testing.T) {
	open := map[string]entities.OrderLineFields{"X": lineFields("X", 5), "Y": lineFields("Y", 5)}
	current := map[string]entities.OrderLineFields{"X": lineFields("X", 5), "Z": lineFields("Z", 5)}

	d := DiffOpenOrders(current, open, nil)

	assert.Equal(t, []string{"Z"}, d.NewKeys)
	assert.Equal(t, []string{"X"}, d.StillOpenKeys)
	assert.Equal(t, []string{"Y"}, d.CompletedKeys)
	assert.Empty(t, d.ReopenedKeys)
	assert.Empty(t, d.ChangedRows)
}

func TestDiffOpenOrders_Reopened(t *testing.T) {
	current := map[string]entities.OrderLineFields{"X": lineFields("X", 5), "W": lineFields("W", 1)}
	completed := map[string]struct{}{"X": {}}

	d := DiffOpenOrders(current, nil, completed)

	assert.Equal(t, []string{"W", "X"}, d.NewKeys)
	assert.Equal(t, []string{"X"}, d.ReopenedKeys)
	assert.Empty(t, d.CompletedKeys)
}

func TestDiffOpenOrders_Changed(t *testing.T) {
	open := map[string]entities.OrderLineFields{"X": lineFields("X", 5)}
	current := map[string]entities.OrderLineFields{"X": lineFields("X", 3)}

	d := DiffOpenOrders(current, open, nil)

	require.Len(t, d.ChangedRows, 1)
	assert.Equal(t, "X", d.ChangedRows[0].Key)
	assert.Equal(t, []FieldChange{{Field: "qty_remaining", Before: "5", After: "3"}}, d.ChangedRows[0].Changes)
}

func TestDiffOpenOrders_DecimalScaleIsNotAChange(t *testing.T) {
	before := lineFields("X", 5)
	after := lineFields("X", 5)
	after.QtyRemaining = decimal.RequireFromString("5.000")

	assert.Empty(t, CompareLineFields(before, after))
}

func TestDiffOpenOrders_Deterministic(t *testing.T) {
	open := map[string]entities.OrderLineFields{}
	current := map[string]entities.OrderLineFields{}
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"} {
		open[k] = lineFields(k, 5)
		current[k] = lineFields(k, 4)
	}
	first := DiffOpenOrders(current, open, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, DiffOpenOrders(current, open, nil))
	}
}

func TestDiffOpenOrders_Empty(t *testing.T) {
	open := map[string]entities.OrderLineFields{"X": lineFields("X", 5)}

	d := DiffOpenOrders(nil, open, nil)
	assert.Equal(t, []string{"X"}, d.CompletedKeys)
	assert.Empty(t, d.NewKeys)
}
