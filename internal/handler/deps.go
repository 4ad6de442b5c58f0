package handler

import (
	"collabhub/internal/app/collab"
	"collabhub/internal/configs"
	"collabhub/internal/pkg/metrics"
)

// AppDeps is everything the HTTP layer needs. Metrics may be nil.
type AppDeps struct {
	Manager *collab.Manager
	Config  *configs.AppConfig
	Metrics *metrics.Metrics
}
