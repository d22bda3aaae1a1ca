// Package router mounts handler route groups under the versioned API prefix.
package router

import (
	"github.com/gin-gonic/gin"
)

// Registrar attaches a handler's routes to a router group
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount attaches every registrar under /api/<version>
func Mount(engine *gin.Engine, version string, registrars ...Registrar) {
	api := engine.Group("/api/" + version)
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}
}
