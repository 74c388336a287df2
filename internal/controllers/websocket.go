package controllers

import (
	"net/http"
	"strconv"

	"warehouse-system/internal/authz"
	"warehouse-system/internal/services"
	"warehouse-system/pkg/service"
	appwebsocket "warehouse-system/pkg/websocket"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketController подписывает клиента на уведомления о загрузках.
type WebSocketController struct {
	hub         *appwebsocket.Hub
	jwtService  service.JWTService
	authService services.AuthServiceInterface
	logger      *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, authService services.AuthServiceInterface, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{hub: hub, jwtService: jwtService, authService: authService, logger: logger}
}

func (ctrl *WebSocketController) ServeWs(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.String(http.StatusUnauthorized, "Missing token")
	}
	claims, err := ctrl.jwtService.ValidateToken(token)
	if err != nil || claims.IsRefreshToken {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}

	ac, err := ctrl.authService.BuildAuthContext(c.Request().Context(), claims.UserID)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}
	if !ac.Can(authz.AdminOr(authz.OpenOrdersView)) {
		return c.String(http.StatusForbidden, "Forbidden")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		ctrl.logger.Error("WebSocket: не удалось установить соединение", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(ctrl.hub, conn, strconv.FormatUint(claims.UserID, 10))
	ctrl.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	ctrl.logger.Info("WebSocket: клиент подключён", zap.Uint64("userID", claims.UserID))
	return nil
}
