package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	"github.com/jmoiron/sqlx"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// modelText is a role-based model whose objects are request paths matched with keyMatch2.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

// NewEnforcer creates and configures a new Casbin enforcer.
// With a SQL connection the policies live in its casbin_rule table; without
// one (MongoDB or memory stores) they are kept in memory and re-seeded at startup.
func NewEnforcer(driverName string, db *sqlx.DB) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if db != nil {
		adapter := sqlxadapter.NewAdapterFromOptions(&sqlxadapter.AdapterOptions{
			DriverName: driverName,
			TableName:  "casbin_rule",
			DB:         db,
		})
		enforcer, err = casbin.NewEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if db != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	return enforcer, nil
}
