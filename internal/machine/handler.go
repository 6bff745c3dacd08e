package machine

import (
	"context"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Machine, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*Machine, error)
	Create(ctx context.Context, actor *auth.Principal, dto CreateMachineDTO) (*Machine, error)
	Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateMachineDTO) (*Machine, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error
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

func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	machines, err := h.Service.List(r.Context(), principal, ListFilter{
		Search:   q.Get("search"),
		Status:   Status(q.Get("status")),
		Location: q.Get("location"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MachinesResponse{Machines: machines, Limit: limit, Offset: offset})
}

func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	m, err := h.Service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) CreateMachine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto CreateMachineDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	m, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMachine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto UpdateMachineDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	m, err := h.Service.Update(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
