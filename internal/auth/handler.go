package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
	"github.com/frahmantamala/plant-maintenance/internal/transport"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
)

type ServiceAPI interface {
	SignIn(ctx context.Context, dto LoginDTO) (*SignInResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	SignOut(ctx context.Context, accessToken string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetProfile(ctx context.Context, userID string) (*Principal, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

// ProfileResponse is the body of GET /users/me.
type ProfileResponse struct {
	*Principal
	Capabilities map[string]bool `json:"capabilities"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result, err := h.Service.SignIn(r.Context(), dto)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(string(KindOf(err))).Inc()
		h.HandleServiceError(w, err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.HandleError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
		return
	}

	if err := h.Service.SignOut(r.Context(), token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.HandleError(w, ErrProfileNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProfileResponse{
		Principal:    principal,
		Capabilities: Capabilities(principal),
	})
}

// AuthMiddleware resolves the bearer token to a principal. A token whose user has no
// profile, or whose profile is disabled, is rejected.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			// websocket clients cannot set headers from the browser
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			h.HandleError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		principal, err := h.Service.GetProfile(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				h.HandleError(w, ErrProfileNotFound)
				return
			}
			h.HandleError(w, internal.NewStoreError("profile", err))
			return
		}
		if isDisabledStatus(principal.Status) {
			h.HandleError(w, ErrUserDisabled)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		ctx = internal.ContextWithActorID(ctx, principal.ID)
		ctx = logger.With(ctx, "user_id", principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
