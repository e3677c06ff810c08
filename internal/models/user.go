package models

import "time"

// User roles recognised by the API.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// UserProfile represents an account that can sign in to the platform.
type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile carries administrative privileges.
func (u UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}
