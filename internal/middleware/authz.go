package middleware

import (
	"net/http"

	"go-cookieconsent/internal/logger"

	"github.com/casbin/casbin/v2"
)

// Authorizer creates a new middleware for authorization.
// A request passes when any of the caller's roles is allowed the path and method.
func Authorizer(e casbin.IEnforcer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := GetUserInfo(r.Context())

			for _, role := range userInfo.Roles {
				allowed, err := e.Enforce(role, r.URL.Path, r.Method)
				if err != nil {
					log.Error(err, "Authorization check failed")
					WriteJSONError(w, http.StatusInternalServerError, "Internal server error", nil)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			WriteJSONError(w, http.StatusForbidden, "Forbidden", nil)
		})
	}
}
