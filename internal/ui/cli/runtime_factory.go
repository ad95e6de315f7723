package cli

import (
	"context"
	"fmt"
	"log/slog"

	coreapp "pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/config"
)

type analysisFactory interface {
	New(cfg *config.Config, logger *slog.Logger) (*coreapp.App, error)
}

type coreAnalysisFactory struct{}

func (coreAnalysisFactory) New(cfg *config.Config, logger *slog.Logger) (*coreapp.App, error) {
	return coreapp.New(cfg, coreapp.WithLogger(logger))
}

// openApp builds the app for one command invocation. The returned func
// closes it.
func (rt *runtime) openApp() (*coreapp.App, func(), error) {
	if rt.factory == nil {
		return nil, nil, fmt.Errorf("analysis factory is required")
	}
	a, err := rt.factory.New(rt.cfg, rt.logger)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(context.Background()); err != nil {
			rt.logger.Warn("close app", "error", err)
		}
	}, nil
}
