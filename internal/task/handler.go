package task

import (
	"context"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Task, error)
	Stats(ctx context.Context, actor *auth.Principal) (Stats, error)
	History(ctx context.Context, actor *auth.Principal, filter HistoryFilter) ([]*Task, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*Task, error)
	Create(ctx context.Context, actor *auth.Principal, dto CreateTaskDTO) (*Task, error)
	Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateTaskDTO) (*Task, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error
	Options(ctx context.Context, actor *auth.Principal, id string) (*TransitionOptions, error)
	Transition(ctx context.Context, actor *auth.Principal, id string, dto TransitionDTO) (*TransitionResult, error)
	Rate(ctx context.Context, actor *auth.Principal, id string, dto RatingDTO) (*Task, error)
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

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	tasks, err := h.Service.List(r.Context(), principal, ListFilter{
		Status:        Status(q.Get("status")),
		PlantCategory: PlantCategory(q.Get("plant_category")),
		Priority:      Priority(q.Get("priority")),
		MachineID:     q.Get("machine_id"),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, TasksResponse{Tasks: tasks, Limit: limit, Offset: offset})
}

func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	stats, err := h.Service.Stats(r.Context(), principal)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) TaskHistory(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	q := r.URL.Query()
	tasks, err := h.Service.History(r.Context(), principal, HistoryFilter{
		Status:        Status(q.Get("status")),
		PlantCategory: PlantCategory(q.Get("plant_category")),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, TasksResponse{Tasks: tasks})
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	t, err := h.Service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto CreateTaskDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto UpdateTaskDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.Update(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	opts, err := h.Service.Options(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, opts)
}

func (h *Handler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto TransitionDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result, err := h.Service.Transition(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var dto RatingDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.Rate(r.Context(), principal, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}
