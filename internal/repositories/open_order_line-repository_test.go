package repositories

import (
	"testing"

	"warehouse-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineQuery(t *testing.T, status StatusFilter, filter types.Filter) (string, []interface{}) {
	t.Helper()
	b := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Select("COUNT(*)").From(openOrderLineTable + " l")
	query, args, err := applyLineFilter(b, status, filter).ToSql()
	require.NoError(t, err)
	return query, args
}

func TestApplyLineFilter_Status(t *testing.T) {
	query, args := lineQuery(t, StatusFilterOpen, types.Filter{})
	assert.Contains(t, query, "l.status IN ($1,$2)")
	assert.Equal(t, []interface{}{"open", "reopened"}, args)

	query, args = lineQuery(t, StatusFilterCompleted, types.Filter{})
	assert.Contains(t, query, "l.status = $1")
	assert.Equal(t, []interface{}{"completed"}, args)

	query, args = lineQuery(t, StatusFilterAll, types.Filter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestApplyLineFilter_SearchAndFilters(t *testing.T) {
	query, args := lineQuery(t, StatusFilterAll, types.Filter{
		Search: "acme",
		Filter: map[string]interface{}{
			"customer_code": "C1,C2",
			"password":      "x",
		},
	})

	assert.Contains(t, query, "l.so_no ILIKE $1")
	assert.Contains(t, query, "l.customer_code IN ($6,$7)")
	assert.NotContains(t, query, "password")
	assert.Equal(t, "%acme%", args[0])
	assert.Equal(t, []interface{}{"C1", "C2"}, args[5:])
}
