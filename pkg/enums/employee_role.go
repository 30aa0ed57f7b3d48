package enums

import "slices"

// EmployeeRole is the role carried in an employee's access token.
type EmployeeRole string

const (
	EmployeeRoleAdmin   EmployeeRole = "admin"
	EmployeeRoleManager EmployeeRole = "manager"
	EmployeeRoleCashier EmployeeRole = "cashier"
)

var validEmployeeRoles = []EmployeeRole{
	EmployeeRoleAdmin,
	EmployeeRoleManager,
	EmployeeRoleCashier,
}

// String implements fmt.Stringer.
func (r EmployeeRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known EmployeeRole.
func (r EmployeeRole) IsValid() bool {
	return slices.Contains(validEmployeeRoles, r)
}

// ParseEmployeeRole converts raw input into an EmployeeRole.
func ParseEmployeeRole(value string) (EmployeeRole, error) {
	return parse(validEmployeeRoles, value, "employee role")
}
