package routes

import (
	"warehouse-system/internal/authz"
	"warehouse-system/internal/controllers"
	"warehouse-system/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runOpenOrderRouter(api *echo.Group, ctrl *controllers.OpenOrderController, authMW *middleware.AuthMiddleware) {
	secure := api.Group("/open-orders", authMW.Auth)

	view := authMW.Require(authz.AdminOr(authz.OpenOrdersView))
	secure.GET("", ctrl.GetLines, view)
	secure.GET("/stats", ctrl.GetStats, view)
	secure.GET("/uploads", ctrl.GetUploads, view)
	secure.GET("/uploads/:id", ctrl.GetUpload, view)
	secure.GET("/:id", ctrl.FindLine, view)
	secure.GET("/:id/history", ctrl.GetLineHistory, view)

	secure.GET("/export", ctrl.Export, authMW.Require(authz.AdminOr(authz.OpenOrdersExport)))
	secure.POST("/uploads", ctrl.Upload, authMW.Require(authz.AdminOr(authz.OpenOrdersImport)))
}
