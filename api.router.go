package main

import (
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// SetupRoutes enforces the api routes. Console endpoints sit behind the
// admin gate, ops endpoints behind the internal ops stack.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))

	router.GET("/v1/console", m.admin(api.GetConsole))
	router.POST("/v1/console/reload", m.admin(api.ReloadConsole))
	router.POST("/v1/books", m.admin(api.CreateBook))
	router.PUT("/v1/books/:id", m.admin(api.UpdateBook))
	router.DELETE("/v1/books/:id", m.admin(api.DeleteOneBook))
	router.POST("/v1/borrowings/:id/return", m.admin(api.ForceReturnBorrowing))

	if api.config.OpsEndpointsEnable {
		router.GET("/ops/configs", m.ops(api.GetConfigs))
		router.GET("/ops/stats", m.ops(api.GetStatistics))
		router.GET("/ops/maintenance", m.ops(api.Maintenance))
		router.GET("/ops/debug/vars", m.ops(GetMemStats))
		router.GET("/swagger/", m.ops(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	}
	return router
}
