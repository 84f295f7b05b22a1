package domain

import "time"

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID          uint       `gorm:"primaryKey" json:"user_id"`
	Username    string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PassHash    string     `gorm:"size:255;not null" json:"-"`
	Role        string     `gorm:"size:16;not null;default:staff" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// KnownRole reports whether role is one of the fixed role set, compared
// against the lower-cased canonical names.
func KnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleStaff:
		return true
	}
	return false
}
