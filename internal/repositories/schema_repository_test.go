package repositories

import (
	"testing"

	apperrors "warehouse-system/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingColumns(t *testing.T) {
	required := map[string][]string{
		"open_order_lines":   {"id", "status", "reopen_count"},
		"open_order_uploads": {"id"},
	}
	present := map[string]struct{}{
		"open_order_lines.id":     {},
		"open_order_lines.status": {},
	}

	err := MissingColumns(required, present)

	var missing *apperrors.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"open_order_lines.reopen_count", "open_order_uploads.id"}, missing.Columns)
	assert.ErrorIs(t, err, apperrors.ErrSchemaOutOfDate)
}

func TestMissingColumns_AllPresent(t *testing.T) {
	present := make(map[string]struct{})
	for table, cols := range RequiredOpenOrderSchema {
		for _, c := range cols {
			present[table+"."+c] = struct{}{}
		}
	}
	assert.NoError(t, MissingColumns(RequiredOpenOrderSchema, present))
}
