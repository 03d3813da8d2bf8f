package auth

import "github.com/spec-kit/employee-service/internal/domain"

// RoleSet is the set of roles a protected operation admits.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from the allowed roles.
func NewRoleSet(allowed ...domain.Role) RoleSet {
	set := make(RoleSet, len(allowed))
	for _, role := range allowed {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports whether role is admitted.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// EmployeeManagers may read and mutate employee records.
var EmployeeManagers = NewRoleSet(domain.RoleAdmin, domain.RoleManager)
