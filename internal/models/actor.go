package models

import "strings"

type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleOperator   Role = "operator"
	RoleDispatcher Role = "dispatcher"
)

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleCitizen, RoleOperator, RoleDispatcher:
		return role, nil
	default:
		return "", &UnknownStateError{Kind: "role", Value: value}
	}
}

// Actor is the caller of an operation as asserted by the upstream gateway.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsOperator reports the operator capability: municipal staff may move signals
// through their lifecycle and maintain container states.
func (a Actor) IsOperator() bool {
	return a.Role == RoleOperator || a.Role == RoleDispatcher
}

func (a Actor) IsDispatcher() bool {
	return a.Role == RoleDispatcher
}
