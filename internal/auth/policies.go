package auth

import (
	"fmt"

	"go-cookieconsent/internal/logger"

	"github.com/casbin/casbin/v2"
)

// Roles understood by the admin API.
const (
	RoleEditor  = "editor"
	RoleAuditor = "auditor"
	RoleAdmin   = "admin"
)

// DefaultPolicies grant editors the category, settings and preview routes
// and auditors read access to consent records.
var DefaultPolicies = [][]string{
	{RoleEditor, "/admin/categories", "GET"},
	{RoleEditor, "/admin/categories", "POST"},
	{RoleEditor, "/admin/categories/:id", "PUT"},
	{RoleEditor, "/admin/settings", "GET"},
	{RoleEditor, "/admin/settings", "PUT"},
	{RoleEditor, "/admin/settings/republish", "POST"},
	{RoleEditor, "/admin/preview", "POST"},

	{RoleAuditor, "/admin/consent-records", "GET"},
	{RoleAuditor, "/admin/consent-records/:consentId", "GET"},
	// Reaches the handler, which refuses it.
	{RoleAuditor, "/admin/consent-records/:consentId", "DELETE"},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Admins inherit everything editors and auditors may do.
	for _, inherited := range []string{RoleEditor, RoleAuditor} {
		if has, _ := e.HasRoleForUser(RoleAdmin, inherited); !has {
			if _, err := e.AddRoleForUser(RoleAdmin, inherited); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", RoleAdmin, inherited))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
