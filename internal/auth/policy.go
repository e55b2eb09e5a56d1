package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Registration
// and login stay open; account removal is an administrative action;
// everything else under /api/ is resident-level.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/accounts" && method == http.MethodPost:
		return "", false
	case path == "/api/v1/login":
		return "", false
	case path == "/api/v1/accounts" && method == http.MethodDelete:
		return RoleAdmin, true
	case path == "/api/v1/readings":
		return RoleResident, true
	case path == "/api/v1/payments":
		return RoleResident, true
	case path == "/api/v1/debt":
		return RoleResident, true
	case strings.HasPrefix(path, "/api/v1/statements/export"):
		return RoleResident, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleResident, true
		}
		return RoleAdmin, true
	}
	return "", false
}
