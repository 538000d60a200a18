package api

import (
	"net/http"

	"github.com/ashbyfield/ward/internal/requests"
	"github.com/ashbyfield/ward/internal/resources"
	"github.com/ashbyfield/ward/internal/runs"
	"github.com/ashbyfield/ward/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		resources.NewHandler(domain.Resources, runtime.Logger, runtime.Pagination).Routes(),
		requests.NewHandler(domain.Requests, domain.Agents, runtime.Logger, runtime.Pagination).Routes(),
		runs.NewHandler(domain.Runs, runtime.Logger, runtime.Pagination).Routes(),
		newCoordinationHandler(domain.Coordinator, runtime.Logger).routes(),
	)
}
