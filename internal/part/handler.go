package part

import (
	"context"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Part, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*Part, error)
	Create(ctx context.Context, actor *auth.Principal, dto CreatePartDTO) (*Part, error)
	Update(ctx context.Context, actor *auth.Principal, id string, dto UpdatePartDTO) (*Part, error)
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

func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	filter := ListFilter{
		Search:    q.Get("search"),
		MachineID: q.Get("machine_id"),
		LowStock:  q.Get("low_stock") == "true",
		Limit:     limit,
		Offset:    offset,
	}

	parts, err := h.Service.List(r.Context(), principal, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PartsResponse{Parts: parts, Limit: limit, Offset: offset})
}

func (h *Handler) GetPart(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	p, err := h.Service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePart(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	var dto CreatePartDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	p, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	var dto UpdatePartDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	p, err := h.Service.Update(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePart(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	if err := h.Service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
