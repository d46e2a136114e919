package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/uuid"
	"spendify/internal/validator"
)

// Lockout policy.
const (
	MaxLoginAttempts = 5
	LockDuration     = 15 * time.Minute
)

// userService handles registration and password login with lockout.
type userService struct {
	db   *gorm.DB
	now  func() time.Time
	cost int
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db, now: time.Now, cost: bcrypt.DefaultCost}
}

// Register creates an account after checking the required fields, the email
// shape and the password strength rules. Taken emails are reported.
func (s *userService) Register(name, email, password string) (*models.User, error) {
	if errs := validator.Registration(name, email, password); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.emailTaken(email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.db.Create(user).Error; err != nil {
		// lost a race on the unique index
		if taken, lookupErr := s.emailTaken(email); lookupErr == nil && taken {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

func (s *userService) emailTaken(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// AttemptLogin checks a password against the lockout state machine. A locked
// account is refused even when the password is correct.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.Validation("Please provide email and password")
	}

	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if user.IsLocked(now) {
		msg := fmt.Sprintf("Account locked due to too many failed attempts. Try again in %s.", minutesLeft(user.LockUntil.Sub(now)))
		return nil, apperrors.Locked(msg, *user.LockUntil)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, s.failedAttempt(user, now)
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"failed_login_attempts": 0,
		"lock_until":            nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now
	return user, nil
}

// failedAttempt records a bad password and builds the response error. Each
// counter change is a single UPDATE so parallel guesses all count.
func (s *userService) failedAttempt(user *models.User, now time.Time) error {
	if user.LockUntil != nil {
		// the previous lock ran out; start a fresh count
		if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"failed_login_attempts": 1,
			"lock_until":            nil,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
			Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Model(&models.User{}).
			Where("id = ? AND failed_login_attempts >= ? AND lock_until IS NULL", user.ID, MaxLoginAttempts).
			Update("lock_until", now.Add(LockDuration)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	var updated models.User
	if err := s.db.Select("id", "failed_login_attempts", "lock_until").Where("id = ?", user.ID).First(&updated).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if updated.IsLocked(now) {
		msg := fmt.Sprintf("Too many failed attempts. Account locked for %s.", minutesLeft(updated.LockUntil.Sub(now)))
		return apperrors.Locked(msg, *updated.LockUntil)
	}

	attemptsLeft := max(0, MaxLoginAttempts-updated.FailedLoginAttempts)
	msg := "Invalid email or password."
	if attemptsLeft > 0 {
		msg = fmt.Sprintf("Invalid email or password. %d %s remaining before account lock.", attemptsLeft, plural(attemptsLeft, "attempt"))
	}
	return apperrors.WithFields(apperrors.WithMessage(apperrors.ErrInvalidCredentials, msg), map[string]any{
		"attemptsLeft": attemptsLeft,
	})
}

// minutesLeft renders a duration rounded up to whole minutes, e.g. "15 minutes".
func minutesLeft(d time.Duration) string {
	mins := int(math.Ceil(float64(d.Milliseconds()) / 60000))
	return fmt.Sprintf("%d %s", mins, plural(mins, "minute"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// GetUserByEmail retrieves a user by exact, case-folded email.
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id string) (*models.User, error) {
	if !uuid.IsValid(id) {
		return nil, apperrors.ErrUserNotFound
	}
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}
