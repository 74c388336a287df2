package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"warehouse-system/internal/authz"
	"warehouse-system/internal/dto"
	"warehouse-system/internal/services"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/utils"
	"warehouse-system/pkg/validation"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OpenOrderController struct {
	importService services.OpenOrderImportServiceInterface
	orderService  services.OpenOrderServiceInterface
	uploadRules   validation.SpreadsheetRules
	importTimeout time.Duration
	logger        *zap.Logger
}

func NewOpenOrderController(
	importService services.OpenOrderImportServiceInterface,
	orderService services.OpenOrderServiceInterface,
	maxUploadMB int64,
	logger *zap.Logger,
) *OpenOrderController {
	return &OpenOrderController{
		importService: importService,
		orderService:  orderService,
		uploadRules:   validation.DefaultSpreadsheetRules(maxUploadMB),
		importTimeout: 2 * time.Minute,
		logger:        logger,
	}
}

func (ctrl *OpenOrderController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

// Upload принимает файл из поля "file" и запускает импорт.
func (ctrl *OpenOrderController) Upload(c echo.Context) error {
	ac, ok := authz.FromContext(c.Request().Context())
	if !ok {
		return ctrl.errorResponse(c, apperrors.ErrUnauthorized)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusBadRequest, "Файл не был передан", apperrors.ErrBadRequest, nil))
	}
	src, err := fileHeader.Open()
	if err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusInternalServerError, "Ошибка обработки файла", err, nil))
	}
	defer src.Close()

	if err := validation.ValidateSpreadsheet(fileHeader, src, ctrl.uploadRules); err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusBadRequest, err.Error(), apperrors.ErrUnsupportedFile, nil))
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusInternalServerError, "Ошибка чтения файла", err, nil))
	}

	ctx, cancel := utils.ContextWithTimeout(c, ctrl.importTimeout)
	defer cancel()

	summary, err := ctrl.importService.Import(ctx, services.ImportRequest{
		Filename:   fileHeader.Filename,
		Content:    content,
		UploadedBy: ac.Username(),
	})
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, summary, "Выгрузка открытых заказов обработана", http.StatusCreated)
}

func (ctrl *OpenOrderController) GetLines(c echo.Context) error {
	var query dto.OpenOrderListQueryDTO
	if err := c.Bind(&query); err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusBadRequest, "Неверные параметры запроса", err, nil))
	}
	if err := c.Validate(&query); err != nil {
		return ctrl.errorResponse(c, err)
	}

	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())
	lines, total, err := ctrl.orderService.GetLines(c.Request().Context(), query.Status, filter)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessListResponse(c, lines, total, filter, "Список строк открытых заказов")
}

func (ctrl *OpenOrderController) FindLine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	line, err := ctrl.orderService.FindLine(c.Request().Context(), id)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, line, "Строка заказа", http.StatusOK)
}

func (ctrl *OpenOrderController) GetLineHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	history, err := ctrl.orderService.GetLineHistory(c.Request().Context(), id)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, history, "История строки заказа", http.StatusOK)
}

func (ctrl *OpenOrderController) GetUploads(c echo.Context) error {
	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())
	uploads, total, err := ctrl.orderService.GetUploads(c.Request().Context(), filter)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessListResponse(c, uploads, total, filter, "Список загрузок")
}

func (ctrl *OpenOrderController) GetUpload(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	upload, err := ctrl.orderService.GetUpload(c.Request().Context(), id)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, upload, "Загрузка", http.StatusOK)
}

func (ctrl *OpenOrderController) GetStats(c echo.Context) error {
	stats, err := ctrl.orderService.GetStats(c.Request().Context())
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, stats, "Счётчики открытых заказов", http.StatusOK)
}

func (ctrl *OpenOrderController) Export(c echo.Context) error {
	var query dto.OpenOrderListQueryDTO
	if err := c.Bind(&query); err != nil {
		return ctrl.errorResponse(c, apperrors.NewHttpError(http.StatusBadRequest, "Неверные параметры запроса", err, nil))
	}
	if err := c.Validate(&query); err != nil {
		return ctrl.errorResponse(c, err)
	}

	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())
	data, err := ctrl.orderService.ExportLines(c.Request().Context(), query.Status, filter)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	status := query.Status
	if status == "" {
		status = "open"
	}
	fileName := fmt.Sprintf("open-orders-%s-%s.xlsx", status, time.Now().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID", apperrors.ErrBadRequest, nil)
	}
	return id, nil
}
