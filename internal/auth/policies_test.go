//go:build unit

package auth

import (
	"testing"

	"go-cookieconsent/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicies(t *testing.T) {
	e, err := NewEnforcer("", nil)
	require.NoError(t, err)
	SeedDefaultPolicies(e, logger.Nop())
	// Seeding twice must not fail or duplicate.
	SeedDefaultPolicies(e, logger.Nop())

	tests := []struct {
		role, path, method string
		want               bool
	}{
		{RoleEditor, "/admin/categories", "GET", true},
		{RoleEditor, "/admin/categories/abc", "PUT", true},
		{RoleEditor, "/admin/consent-records", "GET", false},
		{RoleAuditor, "/admin/consent-records/abc", "GET", true},
		{RoleAuditor, "/admin/settings", "PUT", false},
		{RoleAdmin, "/admin/settings", "PUT", true},
		{RoleAdmin, "/admin/consent-records", "GET", true},
		{"anonymous", "/admin/categories", "GET", false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.method+" "+tt.path, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.path, tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	policies, err := e.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, len(DefaultPolicies))
}
