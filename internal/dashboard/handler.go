package dashboard

import (
	"context"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
)

type ServiceAPI interface {
	Get(ctx context.Context, actor *auth.Principal) (*Dashboard, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
	}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	d, err := h.Service.Get(r.Context(), principal)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}
