package v1

import (
	"github.com/gin-gonic/gin"
)

// DataDeletionRouteHandler defines the endpoints of the data deletion group.
type DataDeletionRouteHandler interface {
	Counts(c *gin.Context)
	Validate(c *gin.Context)
	Delete(c *gin.Context)
	History(c *gin.Context)
}

// RegisterDataDeletionRoutes wires the data deletion endpoints into rg.
func RegisterDataDeletionRoutes(rg *gin.RouterGroup, h DataDeletionRouteHandler) {
	rg.GET("/counts", h.Counts)
	rg.POST("/validate", h.Validate)
	rg.POST("/delete", h.Delete)
	rg.GET("/history", h.History)
}
