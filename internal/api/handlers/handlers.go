// Package handlers contains the HTTP-facing handlers: the TAXII transport
// endpoint and operational health checks.
package handlers

import (
	"taxiihub/internal/infrastructure/cache"
	"taxiihub/internal/infrastructure/database"
	"taxiihub/internal/taxii/dispatch"
	taxiihandlers "taxiihub/internal/taxii/handlers"
	"taxiihub/pkg/logger"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	TAXII  *TAXIIHandler
	Health *HealthHandler
}

// New creates all HTTP handlers
func New(services taxiihandlers.ServiceDirectory, d *dispatch.Dispatcher, db *database.PostgresDB, c *cache.RedisCache, log *logger.Logger) *Handlers {
	return &Handlers{
		TAXII:  NewTAXIIHandler(services, d, log),
		Health: NewHealthHandler(db, c, log),
	}
}
