package models

import "aeternum/role"

// Actor is the caller resolved for a single request. A nil *Actor is anonymous.
type Actor struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func (a *Actor) IsStaff() bool {
	return a != nil && role.IsStaff(a.Role)
}

func (a *Actor) Is(r string) bool {
	return a != nil && a.Role == r
}
