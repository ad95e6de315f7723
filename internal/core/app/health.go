package app

import (
	"context"
	"fmt"
	"time"

	"pyanalyzer/internal/engine/parser"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if ctx.Err() != nil {
		status.Status = "degraded"
		status.Components["context"] = ctx.Err().Error()
		return status
	}

	if parser.PythonLanguage() == nil {
		status.Status = "down"
		status.Components["parser"] = "python grammar unavailable"
	} else {
		status.Components["parser"] = fmt.Sprintf("ok (%d leased)", parser.Pool().Stats())
	}

	if s.app.cache != nil {
		status.Components["cache"] = fmt.Sprintf("ok (%d entries, hit ratio %.2f)", s.app.cache.Size(), s.app.cache.HitRatio())
	} else {
		status.Components["cache"] = "disabled"
	}

	if s.app.history != nil {
		status.Components["history"] = "ok"
	} else if s.app.Config.History.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	} else {
		status.Components["history"] = "disabled"
	}

	return status
}
