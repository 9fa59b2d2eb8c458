package session

import (
	"context"
	"net/http"
	"time"

	"go-cookieconsent/internal/config"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

// PreviewKey is the session key of the admin preview flag.
const PreviewKey = "preview"

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetBool(ctx context.Context, key string) bool
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates an scs session manager. Sessions are kept in the SQL database
// when the document store runs on one, in memory otherwise.
func New(cfg config.SessionConfig, driver string, db *sqlx.DB, secure bool) *scs.SessionManager {
	sm := scs.New()
	if db != nil {
		switch driver {
		case "mysql":
			sm.Store = mysqlstore.New(db.DB)
		case "sqlite3":
			sm.Store = sqlite3store.New(db.DB)
		}
	}
	sm.Lifetime = time.Duration(cfg.Lifetime) * time.Hour
	sm.Cookie.Name = "cookieconsent_session"
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}
