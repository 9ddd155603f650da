package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// User usuario del dashboard. Se persiste en la colección "users".
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"` // bcrypt hash, nunca plano
	Name         string    `json:"name"`
	Role         string    `json:"role"` // admin, editor, viewer
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GetID implementa collection.Identifiable.
func (u User) GetID() string { return u.ID }

// ValidRole informa si el rol pertenece a la enumeración.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleViewer
}
