package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	EmployeeID uuid.UUID
	BranchID   *uuid.UUID
	Role       enums.EmployeeRole
	JTI        string
}

// AccessTokenClaims is the typed JWT carried by POS terminals. BranchID is
// absent for admins that work across branches.
type AccessTokenClaims struct {
	EmployeeID uuid.UUID          `json:"employee_id"`
	BranchID   *uuid.UUID         `json:"branch_id,omitempty"`
	Role       enums.EmployeeRole `json:"role"`
	jwt.RegisteredClaims
}

func (c AccessTokenClaims) check() error {
	if c.EmployeeID == uuid.Nil {
		return errNoEmployee
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid employee role %q", c.Role)
	}
	return nil
}
