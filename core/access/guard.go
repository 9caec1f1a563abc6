// Package access decides whether an identity may reach an area of the application.
package access

import (
	"context"

	"github.com/trezcool/academia/core/account"
)

// Area is the section of the application a route belongs to.
type Area uint8

const (
	AreaShared Area = iota
	AreaAdmin
	AreaStaff
	AreaStudent
)

func (a Area) String() string {
	switch a {
	case AreaAdmin:
		return "admin"
	case AreaStaff:
		return "staff"
	case AreaStudent:
		return "student"
	default:
		return "shared"
	}
}

// Named endpoints, resolved to paths by the router.
const (
	EndpointLoginPage   = "login-page"
	EndpointLogin       = "user-login"
	EndpointAdminHome   = "admin-home"
	EndpointStaffHome   = "staff-home"
	EndpointStudentHome = "student-home"
)

// Identity is who is making a request. The zero value is the anonymous identity.
type Identity struct {
	AccountID int
	Role      account.Role
}

func (id Identity) Authenticated() bool {
	return id.AccountID != 0
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the Identity carried by ctx, anonymous if none.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Decision is the outcome of the Guard. When Allow is false, RedirectTo names the endpoint to redirect to.
type Decision struct {
	Allow      bool
	RedirectTo string
}

var allow = Decision{Allow: true}

func redirect(endpoint string) Decision {
	return Decision{RedirectTo: endpoint}
}

// Home returns the named home endpoint of role.
func Home(role account.Role) (string, bool) {
	switch role {
	case account.RoleAdmin:
		return EndpointAdminHome, true
	case account.RoleStaff:
		return EndpointStaffHome, true
	case account.RoleStudent:
		return EndpointStudentHome, true
	default:
		return "", false
	}
}

// Guard holds the paths reachable without authentication. It keeps no other state.
type Guard struct {
	public map[string]struct{}
}

func NewGuard(publicPaths ...string) *Guard {
	g := &Guard{public: make(map[string]struct{}, len(publicPaths))}
	for _, p := range publicPaths {
		g.public[p] = struct{}{}
	}
	return g
}

// IsPublic tells whether path is reachable without authentication.
func (g *Guard) IsPublic(path string) bool {
	_, ok := g.public[path]
	return ok
}

// Decide tells whether id may reach path, which belongs to area.
func (g *Guard) Decide(id Identity, area Area, path string) Decision {
	if !id.Authenticated() {
		if g.IsPublic(path) {
			return allow
		}
		return redirect(EndpointLoginPage)
	}

	switch id.Role {
	case account.RoleAdmin:
		if area == AreaStudent {
			return redirect(EndpointAdminHome)
		}
	case account.RoleStaff:
		if area == AreaStudent || area == AreaAdmin {
			return redirect(EndpointStaffHome)
		}
	case account.RoleStudent:
		if area == AreaAdmin || area == AreaStaff {
			return redirect(EndpointStudentHome)
		}
	default:
		// treated as anonymous
		if g.IsPublic(path) {
			return allow
		}
		return redirect(EndpointLoginPage)
	}
	return allow
}
