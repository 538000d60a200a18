// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/ashbyfield/ward/internal/config"
	"github.com/ashbyfield/ward/internal/infrastructure"
	"github.com/ashbyfield/ward/pkg/middleware"
	"github.com/ashbyfield/ward/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}
	if err := domain.Start(runtime); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
