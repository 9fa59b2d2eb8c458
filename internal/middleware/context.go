package middleware

import (
	"context"
	"net/http"
	"strings"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

const (
	// UserIDHeader carries the host CMS user id of the caller.
	UserIDHeader = "X-User-ID"
	// RoleHeader carries the caller's comma separated consent roles.
	RoleHeader = "X-Consent-Role"

	anonymous = "anonymous"
)

// UserInfo represents the caller identity forwarded by the host and stored in the request context.
type UserInfo struct {
	Subject string
	Roles   []string
}

// UserID returns the caller's user id, or nil for anonymous callers.
func (u *UserInfo) UserID() *string {
	if u.Subject == "" || u.Subject == anonymous {
		return nil
	}
	id := u.Subject
	return &id
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{Subject: anonymous, Roles: []string{anonymous}}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}

// Identity reads the identity headers set by the host's reverse proxy. The
// host authenticates callers; these headers must not be reachable from outside.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &UserInfo{Subject: strings.TrimSpace(r.Header.Get(UserIDHeader))}
		if info.Subject == "" {
			info.Subject = anonymous
		}
		for _, role := range strings.Split(r.Header.Get(RoleHeader), ",") {
			if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
				info.Roles = append(info.Roles, role)
			}
		}
		if len(info.Roles) == 0 {
			info.Roles = []string{anonymous}
		}
		next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), info)))
	})
}
