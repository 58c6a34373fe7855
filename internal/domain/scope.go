package domain

import "fitgrove/internal/models"

// Principal is the authenticated caller supplied by the transport layer.
type Principal struct {
	UserID int
	Role   models.UserRole
}

// Scope is a single-column equality predicate restricting a query to rows
// the principal may see. Handlers splice Column into the WHERE clause and
// bind Value; a miss is reported as NotFound, never Forbidden, so foreign
// rows are indistinguishable from absent ones.
type Scope struct {
	Column string
	Value  int
}

// OwnerScope scopes self-owned collections (check-ins, sessions, meals):
// every caller sees only rows whose owner column equals their id.
func OwnerScope(p Principal, ownerColumn string) Scope {
	return Scope{Column: ownerColumn, Value: p.UserID}
}

// PlanScope scopes coach-authored plans: coaches see plans they authored,
// normal users see plans assigned to them. No role sees both.
func PlanScope(p Principal, coachColumn, assigneeColumn string) Scope {
	if p.Role == models.RoleCoach {
		return Scope{Column: coachColumn, Value: p.UserID}
	}
	return Scope{Column: assigneeColumn, Value: p.UserID}
}
