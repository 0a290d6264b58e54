package models

import "time"

const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// User represents a user in the system.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:buyer"`
	Name         string
	Phone        string
	City         string
	Verified     bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// IsSeller reports whether the user may create listings.
func (u *User) IsSeller() bool {
	return u != nil && u.Role == RoleSeller
}

// DisplayName is the name shown next to listings and messages.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleSeller || role == RoleBuyer
}
