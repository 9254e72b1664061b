package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"lager-backend/internal/apperr"
	"lager-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// FieldErrors maps form field names to a message. It satisfies error and
// unwraps to apperr.ErrInvalidInput.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return apperr.ErrInvalidInput }

type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	fields := FieldErrors{}
	switch {
	case in.Username == "":
		fields["username"] = "this field is required"
	case len(in.Username) > 150:
		fields["username"] = "at most 150 characters"
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		fields["email"] = "enter a valid email address"
	}
	if len(in.Password1) < minPasswordLength {
		fields["password1"] = fmt.Sprintf("at least %d characters", minPasswordLength)
	}
	if in.Password1 != in.Password2 {
		fields["password2"] = "the two password fields didn't match"
	}
	if len(fields) > 0 {
		return models.User{}, fields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takenError(tx, in.Username, in.Email); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrUsernameTaken) || errors.Is(err, apperr.ErrEmailTaken) {
			return models.User{}, err
		}
		// a concurrent register won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, a.duplicateError(ctx, in.Username, in.Email)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// takenError returns ErrUsernameTaken or ErrEmailTaken when a user already
// holds the name or address, username first.
func takenError(tx *gorm.DB, username, email string) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return apperr.ErrUsernameTaken
	}
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return apperr.ErrEmailTaken
	}
	return nil
}

// duplicateError names the column a failed insert collided on. When the
// colliding row is gone again the answer stays neutral.
func (a *Accounts) duplicateError(ctx context.Context, username, email string) error {
	err := takenError(a.db.WithContext(ctx), username, email)
	if errors.Is(err, apperr.ErrUsernameTaken) || errors.Is(err, apperr.ErrEmailTaken) {
		return err
	}
	return FieldErrors{"username": "username or email is already registered"}
}

func (a *Accounts) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apperr.ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	return user, nil
}
