package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type StaffRole string

const (
	RoleOwner  StaffRole = "owner"
	RoleAdmin  StaffRole = "admin"
	RoleMember StaffRole = "member"
)

func ValidStaffRole(s string) bool {
	switch StaffRole(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type StaffMember struct {
	UserID uuid.UUID `json:"user_id"`
	Role   StaffRole `json:"role"`
}

// Tenant is a company account owning a slug, a staff set and
// documentation records. Tenants are never hard-deleted.
type Tenant struct {
	ID             uuid.UUID     `json:"id"`
	Slug           string        `json:"slug"`
	Name           string        `json:"name"`
	CustomDomainID *uuid.UUID    `json:"custom_domain_id,omitempty"`
	Staff          []StaffMember `json:"staff"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase URL-safe slug.
func ValidSlug(s string) bool {
	return len(s) > 0 && len(s) <= 63 && slugPattern.MatchString(s)
}

// Role returns the role of userID within the tenant's staff, or "" if the
// user is not a staff member.
func (t *Tenant) Role(userID uuid.UUID) StaffRole {
	for _, m := range t.Staff {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// OwnerCount returns the number of staff members holding the owner role.
// A well-formed tenant has exactly one.
func (t *Tenant) OwnerCount() int {
	n := 0
	for _, m := range t.Staff {
		if m.Role == RoleOwner {
			n++
		}
	}
	return n
}
