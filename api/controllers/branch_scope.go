package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/api/middleware"
	"github.com/pizzalemon/pos-backend/api/validators"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
)

// branchScope reads ?branch_id and falls back to the token's branch. Admin
// tokens carry no branch, so a nil result means every branch.
func branchScope(r *http.Request) (*uuid.UUID, error) {
	branchID, err := validators.ParseQueryUUID(r, "branch_id")
	if err != nil || branchID != nil {
		return branchID, err
	}
	if id, ok := middleware.BranchUUID(r.Context()); ok {
		return &id, nil
	}
	return nil, nil
}

// writeBranch resolves the branch a write lands on. A branch-bound token
// always writes to its own branch; naming another one is forbidden. Only
// tokens without a branch (admins) may choose one in the body.
func writeBranch(r *http.Request, explicit *uuid.UUID) (uuid.UUID, error) {
	own, bound := middleware.BranchUUID(r.Context())
	switch {
	case bound && explicit != nil && *explicit != own:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "token is not scoped to that branch")
	case bound:
		return own, nil
	case explicit != nil:
		return *explicit, nil
	default:
		return uuid.Nil, nil
	}
}

// writeEmployee returns the token's employee. A body that names someone
// else is rejected rather than silently overridden.
func writeEmployee(r *http.Request, explicit *uuid.UUID) (uuid.UUID, error) {
	own, ok := middleware.EmployeeUUID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing employee context")
	}
	if explicit != nil && *explicit != own {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "sales are recorded for the signed-in employee only")
	}
	return own, nil
}
