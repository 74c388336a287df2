package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"warehouse-system/internal/authz"
	"warehouse-system/internal/dto"
	"warehouse-system/internal/entities"
	"warehouse-system/internal/services"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/types"
	"warehouse-system/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeImportService struct {
	got services.ImportRequest
	err error
}

func (f *fakeImportService) Import(_ context.Context, req services.ImportRequest) (*dto.ImportSummaryDTO, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ImportSummaryDTO{UploadID: 7, TotalRows: 1, NewCount: 1}, nil
}

type fakeOrderService struct {
	services.OpenOrderServiceInterface
	status string
}

func (f *fakeOrderService) GetLines(_ context.Context, status string, _ types.Filter) ([]dto.OpenOrderLineDTO, uint64, error) {
	f.status = status
	return []dto.OpenOrderLineDTO{{ID: 1, SONo: "SO-1"}}, 1, nil
}

func (f *fakeOrderService) FindLine(_ context.Context, id uint64) (*dto.OpenOrderLineDTO, error) {
	if id != 1 {
		return nil, apperrors.ErrNotFound
	}
	return &dto.OpenOrderLineDTO{ID: 1}, nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = utils.NewValidator(validator.New())
	return e
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/open-orders/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestOpenOrderController_Upload(t *testing.T) {
	e := newTestEcho()
	imp := &fakeImportService{}
	ctrl := NewOpenOrderController(imp, &fakeOrderService{}, 5, zap.NewNop())

	req := uploadRequest(t, "orders.csv", []byte("SO No,Customer Code,Item Code,Qty\nSO-1,C1,IT,1\n"))
	user := &entities.User{ID: 3, Username: "ivan"}
	req = req.WithContext(authz.WithContext(req.Context(), authz.NewNormalContext(user, nil)))
	rec := httptest.NewRecorder()

	require.NoError(t, ctrl.Upload(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ivan", imp.got.UploadedBy)
	assert.Equal(t, "orders.csv", imp.got.Filename)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(7), body["body"].(map[string]interface{})["upload_id"])
}

func TestOpenOrderController_UploadRejectsWrongExtension(t *testing.T) {
	e := newTestEcho()
	imp := &fakeImportService{}
	ctrl := NewOpenOrderController(imp, &fakeOrderService{}, 5, zap.NewNop())

	req := uploadRequest(t, "orders.pdf", []byte("%PDF-1.4"))
	req = req.WithContext(authz.WithContext(req.Context(), authz.NewEmergencyContext()))
	rec := httptest.NewRecorder()

	require.NoError(t, ctrl.Upload(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, imp.got.Filename)
}

func TestOpenOrderController_UploadSchemaOutOfDate(t *testing.T) {
	e := newTestEcho()
	imp := &fakeImportService{err: apperrors.NewMissingColumnsError("база данных", []string{"open_order_lines.status"}, apperrors.ErrSchemaOutOfDate)}
	ctrl := NewOpenOrderController(imp, &fakeOrderService{}, 5, zap.NewNop())

	req := uploadRequest(t, "orders.csv", []byte("SO No\nSO-1\n"))
	req = req.WithContext(authz.WithContext(req.Context(), authz.NewEmergencyContext()))
	rec := httptest.NewRecorder()

	require.NoError(t, ctrl.Upload(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"open_order_lines.status"}, body["body"].(map[string]interface{})["missing_columns"])
}

func TestOpenOrderController_GetLines(t *testing.T) {
	e := newTestEcho()
	svc := &fakeOrderService{}
	ctrl := NewOpenOrderController(&fakeImportService{}, svc, 5, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/open-orders?status=completed&limit=10", nil)
	require.NoError(t, ctrl.GetLines(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", svc.status)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/open-orders?status=closed", nil)
	require.NoError(t, ctrl.GetLines(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenOrderController_FindLine(t *testing.T) {
	e := newTestEcho()
	ctrl := NewOpenOrderController(&fakeImportService{}, &fakeOrderService{}, 5, zap.NewNop())

	cases := map[string]int{"1": http.StatusOK, "2": http.StatusNotFound, "abc": http.StatusBadRequest}
	for id, code := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, ctrl.FindLine(c))
		assert.Equal(t, code, rec.Code, id)
	}
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestHealthController(t *testing.T) {
	e := newTestEcho()

	rec := httptest.NewRecorder()
	require.NoError(t, NewHealthController(pingStub{}, pingStub{}, zap.NewNop()).Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, NewHealthController(pingStub{err: apperrors.ErrInternalServer}, pingStub{}, zap.NewNop()).Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
