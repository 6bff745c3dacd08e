package notification

import (
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/go-chi/chi"
)

type InboxAPI interface {
	List(p *auth.Principal) []Notification
	Unread(p *auth.Principal) int
	MarkRead(p *auth.Principal, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Inbox InboxAPI
}

func NewHandler(inbox InboxAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Inbox:       inbox,
	}
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, auth.ErrProfileNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, NotificationsResponse{
		Notifications: h.Inbox.List(principal),
		Unread:        h.Inbox.Unread(principal),
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := h.Inbox.MarkRead(principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
