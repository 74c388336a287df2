package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	apperrors "warehouse-system/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func respond(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, ErrorResponse(c, err, zap.NewNop()))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorResponse(t *testing.T) {
	code, body := respond(t, apperrors.NewHttpError(http.StatusBadRequest, "Файл не был передан", apperrors.ErrBadRequest, nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Файл не был передан", body["message"])

	code, _ = respond(t, fmt.Errorf("find: %w", apperrors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, code)

	code, body = respond(t, apperrors.NewMissingColumnsError("файл", []string{"item_code"}, apperrors.ErrBadRequest))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []interface{}{"item_code"}, body["body"].(map[string]interface{})["missing_columns"])

	// внутренние подробности наружу не уходят
	code, body = respond(t, fmt.Errorf("%w: %w", apperrors.ErrImportFailed, fmt.Errorf("pq: deadlock")))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, apperrors.ErrImportFailed.Error(), body["message"])
}

func TestParseFilterFromQuery(t *testing.T) {
	values := url.Values{
		"limit":                 {"1000"},
		"page":                  {"3"},
		"search":                {"  SO-1 "},
		"sort[ship_by]":         {"DESC"},
		"sort[so_no]":           {"sideways"},
		"filter[customer_code]": {"C1"},
	}

	f := ParseFilterFromQuery(values)

	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 2*MaxLimit, f.Offset)
	assert.Equal(t, "SO-1", f.Search)
	assert.Equal(t, map[string]string{"ship_by": "desc"}, f.Sort)
	assert.Equal(t, "C1", f.Filter["customer_code"])
	assert.True(t, f.WithPagination)
}
