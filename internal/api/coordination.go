package api

import (
	"log/slog"
	"net/http"

	"github.com/ashbyfield/ward/internal/coordinator"
	"github.com/ashbyfield/ward/pkg/handlers"
	"github.com/ashbyfield/ward/pkg/routes"
)

// coordinationHandler exposes the coordinator's unhandled request queue
// for operational visibility.
type coordinationHandler struct {
	coord  *coordinator.Coordinator
	logger *slog.Logger
}

func newCoordinationHandler(coord *coordinator.Coordinator, logger *slog.Logger) *coordinationHandler {
	return &coordinationHandler{
		coord:  coord,
		logger: logger.With("handler", "coordination"),
	}
}

func (h *coordinationHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/coordination",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/pending", Handler: h.pending},
		},
	}
}

func (h *coordinationHandler) pending(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"outstanding": h.coord.Outstanding(),
		"pending":     h.coord.Pending(),
	})
}
