package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxEmployeeID contextKey = "employee_id"
	ctxBranchID   contextKey = "branch_id"
	ctxRole       contextKey = "actor_role"
)

func EmployeeIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxEmployeeID)
}

func BranchIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxBranchID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

// EmployeeUUID parses the authenticated employee id.
func EmployeeUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(EmployeeIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// BranchUUID parses the branch carried by the token. Admin tokens have none.
func BranchUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(BranchIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithEmployee injects the actor into the context. An empty branchID leaves
// the branch unset.
func WithEmployee(ctx context.Context, employeeID, branchID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxEmployeeID, employeeID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if branchID != "" {
		ctx = context.WithValue(ctx, ctxBranchID, branchID)
	}
	return ctx
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
