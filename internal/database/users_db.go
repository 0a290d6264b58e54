package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tounfite-souk/app/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the work factor for new password hashes. Tests lower it.
var BcryptCost = bcrypt.DefaultCost

// Registration carries the fields of the registration form.
type Registration struct {
	Email    string
	Password string
	Role     string
	Name     string
	Phone    string
	City     string
}

// ProfileUpdate carries the editable profile fields. Empty strings are stored as-is.
type ProfileUpdate struct {
	Name  string
	Phone string
	City  string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser hashes the password and inserts a new, unverified user.
// Unknown roles fall back to buyer.
func CreateUser(ctx context.Context, db *gorm.DB, reg Registration) (*models.User, error) {
	email := NormalizeEmail(reg.Email)
	if email == "" || reg.Password == "" {
		return nil, ErrInvalidInput
	}

	_, err := GetUserByEmail(ctx, db, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), BcryptCost)
	if err != nil {
		return nil, err
	}

	role := reg.Role
	if !models.ValidRole(role) {
		role = models.RoleBuyer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		Name:         strings.TrimSpace(reg.Name),
		Phone:        strings.TrimSpace(reg.Phone),
		City:         strings.TrimSpace(reg.City),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return GetUserByID(ctx, db, user.ID)
}

// GetUserByEmail retrieves a user by their (normalized) email address.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	user := &models.User{}
	err := db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func GetUserByID(ctx context.Context, db *gorm.DB, id int64) (*models.User, error) {
	user := &models.User{}
	if err := db.WithContext(ctx).First(user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// GetUsersByIDs resolves ids to users ordered by id. Unknown ids are skipped.
func GetUsersByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*models.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Authenticate resolves an email/password pair to a user. Unknown email and
// wrong password both yield ErrInvalidCredentials.
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	user, err := GetUserByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			_ = VerifyPassword(dummyHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// VerifyPassword compares a stored hashed password with a plaintext password.
func VerifyPassword(hashedPassword string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// UpdateProfile overwrites name, phone and city of user and mirrors the new
// values onto the passed struct.
func UpdateProfile(ctx context.Context, db *gorm.DB, user *models.User, p ProfileUpdate) error {
	err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"name":  p.Name,
		"phone": p.Phone,
		"city":  p.City,
	}).Error
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	user.Name, user.Phone, user.City = p.Name, p.Phone, p.City
	return nil
}

// MarkVerified sets the verified flag of the user owning email. Calling it
// for an already verified user is a no-op.
func MarkVerified(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	user, err := GetUserByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return user, nil
	}
	err = db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND verified = ?", user.ID, false).
		Update("verified", true).Error
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	user.Verified = true
	return user, nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), BcryptCost)
		dummy = string(h)
	})
	return dummy
}
