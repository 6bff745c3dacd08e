package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/plant-maintenance/internal"
)

type RBACAuthorization struct {
	checker PermissionChecker
	logger  *slog.Logger
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	if checker == nil {
		checker = NewPermissionChecker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACAuthorization{
		checker: checker,
		logger:  logger,
	}
}

func (ra *RBACAuthorization) guard(name string, allow func(*Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: no principal in context", "check", name)
				writeAppError(w, ErrProfileNotFound)
				return
			}

			if !allow(principal) {
				ra.logger.WarnContext(r.Context(), "access denied",
					"user_id", principal.ID,
					"role", principal.Role,
					"check", name)
				writeAppError(w, internal.ErrAuthorizationDenied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits principals whose role is at or above required.
func (ra *RBACAuthorization) RequireRole(required Role) func(http.Handler) http.Handler {
	return ra.guard("role:"+string(required), func(p *Principal) bool {
		return ra.checker.MeetsRole(p, required)
	})
}

// RequireCapability admits principals that can manage the resource.
func (ra *RBACAuthorization) RequireCapability(resource Resource) func(http.Handler) http.Handler {
	return ra.guard("manage:"+string(resource), func(p *Principal) bool {
		return ra.checker.CanManage(p, resource)
	})
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RequirePartsView admits principals holding view_parts or ranked Manager and above.
func (ra *RBACAuthorization) RequirePartsView() func(http.Handler) http.Handler {
	return ra.guard("view:parts", CanViewParts)
}
