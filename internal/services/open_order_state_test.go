package services

import (
	"context"
	"testing"
	"time"

	"warehouse-system/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStateUpdater_Apply(t *testing.T) {
	store := newMemStore()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	active := &entities.OpenOrderLine{NaturalKey: "A", OrderLineFields: lineFields("A", 5), Status: entities.LineStatusOpen}
	gone := &entities.OpenOrderLine{NaturalKey: "B", OrderLineFields: lineFields("B", 7), Status: entities.LineStatusOpen}
	closed := &entities.OpenOrderLine{NaturalKey: "C", OrderLineFields: lineFields("C", 1), Status: entities.LineStatusCompleted}
	for _, l := range []*entities.OpenOrderLine{active, gone, closed} {
		id, err := store.CreateLine(context.Background(), nil, l)
		require.NoError(t, err)
		l.ID = id
	}

	prior := PriorLines{
		Active:    map[string]*entities.OpenOrderLine{"A": active, "B": gone},
		Completed: map[string]*entities.OpenOrderLine{"C": closed},
	}
	current := map[string]*NormalizedRow{
		"A": {Key: "A", OrderLineFields: lineFields("A", 2)},
		"C": {Key: "C", OrderLineFields: lineFields("C", 4)},
		"D": {Key: "D", OrderLineFields: lineFields("D", 9)},
	}
	currentFields := map[string]entities.OrderLineFields{}
	for k, r := range current {
		currentFields[k] = r.OrderLineFields
	}
	diff := DiffOpenOrders(currentFields, prior.activeFields(), prior.completedKeys())

	upload := &entities.OpenOrderUpload{ID: 100, UploadedAt: at}
	res, err := NewOpenOrderStateUpdater(store, store, zap.NewNop()).Apply(context.Background(), nil, upload, current, prior, diff)
	require.NoError(t, err)

	assert.Equal(t, StateResult{Created: 1, Touched: 0, Changed: 1, Completed: 1, Reopened: 1, Snapshots: 4}, res)

	assert.Equal(t, "2", store.lines[active.ID].QtyRemaining.String())
	assert.Equal(t, entities.LineStatusCompleted, store.lines[gone.ID].Status)
	assert.Equal(t, entities.LineStatusReopened, store.lines[closed.ID].Status)
	assert.Equal(t, "4", store.lines[closed.ID].QtyRemaining.String())

	d := store.lineBySO("D")
	require.NotNil(t, d)
	assert.Equal(t, uint64(100), d.FirstSeenUploadID)
	assert.Equal(t, at, d.FirstSeenAt)

	// снимок закрытия хранит последние известные значения
	snaps, err := store.GetByLine(context.Background(), gone.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, entities.SnapshotCompleted, snaps[0].Event)
	assert.Equal(t, "7", snaps[0].Fields.QtyRemaining.String())
	assert.Equal(t, uint64(100), snaps[0].UploadID)
}

func TestStateUpdater_MissingPriorLine(t *testing.T) {
	store := newMemStore()
	diff := OpenOrderDiff{CompletedKeys: []string{"ghost"}}

	_, err := NewOpenOrderStateUpdater(store, store, zap.NewNop()).Apply(
		context.Background(), nil, &entities.OpenOrderUpload{ID: 1}, nil, PriorLines{}, diff)

	assert.Error(t, err)
	assert.Empty(t, store.snapshots)
}
