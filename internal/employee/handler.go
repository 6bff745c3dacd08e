package employee

import (
	"context"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Employee, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*Employee, error)
	Create(ctx context.Context, actor *auth.Principal, dto CreateEmployeeDTO) (*Employee, error)
	Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateEmployeeDTO) (*Employee, error)
	UpdateSelf(ctx context.Context, actor *auth.Principal, dto SelfUpdateDTO) (*Employee, error)
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

// ListEmployees handles GET /employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	employees, err := h.Service.List(r.Context(), principal, ListFilter{
		Search:     q.Get("search"),
		Role:       auth.Role(q.Get("role")),
		Status:     Status(q.Get("status")),
		Department: q.Get("department"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, EmployeesResponse{Employees: employees, Limit: limit, Offset: offset})
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	e, err := h.Service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto CreateEmployeeDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	e, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto UpdateEmployeeDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	e, err := h.Service.Update(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// UpdateMe handles PATCH /employees/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	var dto SelfUpdateDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	e, err := h.Service.UpdateSelf(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// DeleteEmployee handles DELETE /employees/{id}; the record is kept with status Terminated.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
