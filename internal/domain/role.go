package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMember      Role = "MEMBER"
	RoleTreasurer   Role = "TREASURER"
	RoleChairperson Role = "CHAIRPERSON"
	RoleAdmin       Role = "ADMIN"
	RoleSuperadmin  Role = "SUPERADMIN"
)

type Action string

const (
	ActionRequestLoan  Action = "request_loan"
	ActionApproveLoan  Action = "approve_loan"
	ActionRejectLoan   Action = "reject_loan"
	ActionDisburseLoan Action = "disburse_loan"
	ActionRepayLoan    Action = "repay_loan"
	ActionExtendGrace  Action = "extend_grace"
)

// Static role-permission table. Approval-class actions belong to the
// chairperson, money-movement actions to the treasurer; admins hold both.
var actionRoles = map[Action][]Role{
	ActionRequestLoan:  {RoleMember, RoleTreasurer, RoleChairperson, RoleAdmin, RoleSuperadmin},
	ActionApproveLoan:  {RoleChairperson, RoleAdmin, RoleSuperadmin},
	ActionRejectLoan:   {RoleChairperson, RoleAdmin, RoleSuperadmin},
	ActionDisburseLoan: {RoleTreasurer, RoleAdmin, RoleSuperadmin},
	ActionRepayLoan:    {RoleTreasurer, RoleAdmin, RoleSuperadmin},
	ActionExtendGrace:  {RoleChairperson, RoleAdmin, RoleSuperadmin},
}

// Can reports whether the role is allowed to perform the action.
func (r Role) Can(action Action) bool {
	for _, allowed := range actionRoles[action] {
		if r == allowed {
			return true
		}
	}
	return false
}

// RolesAllowed returns the role class permitted to perform the action,
// for use in authorization error messages.
func RolesAllowed(action Action) string {
	roles := actionRoles[action]
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

// ParseRole converts a raw role string into a known Role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleMember:
		return RoleMember, nil
	case RoleTreasurer:
		return RoleTreasurer, nil
	case RoleChairperson:
		return RoleChairperson, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperadmin:
		return RoleSuperadmin, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Actor is the authenticated principal performing a transition.
type Actor struct {
	MemberID uuid.UUID
	Role     Role
}
