package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/uuid"
)

const (
	tokenIssuer       = "spendify-api"
	refreshTokenBytes = 40
)

// AccessClaims are the claims carried by an access token. Fingerprint binds
// the token to the user agent and IP it was issued to.
type AccessClaims struct {
	UserID      string `json:"id"`
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// tokenService issues and verifies access tokens and rotating refresh tokens.
type tokenService struct {
	db         *gorm.DB
	users      UserServicer
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB, users UserServicer, secret string, accessTTL, refreshTTL time.Duration) TokenServicer {
	return &tokenService{
		db:         db,
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// HashToken returns the SHA-256 hex digest of a token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Fingerprint derives the device fingerprint from the user agent and IP.
func (s *tokenService) Fingerprint(userAgent, ip string) string {
	if userAgent == "" {
		userAgent = "unknown"
	}
	if ip == "" {
		ip = "unknown"
	}
	return HashToken(userAgent + "-" + ip)
}

// IssuePair signs an access token and stores a new refresh token for userID.
func (s *tokenService) IssuePair(userID, fingerprint string) (*TokenPair, error) {
	access, err := s.signAccessToken(userID, fingerprint)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	refresh, err := s.storeRefreshToken(s.db, userID, fingerprint)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *tokenService) signAccessToken(userID, fingerprint string) (string, error) {
	now := s.now()
	claims := &AccessClaims{
		UserID:      userID,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
			ID:        uuid.New(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) storeRefreshToken(tx *gorm.DB, userID, fingerprint string) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	token := hex.EncodeToString(buf)

	record := &models.RefreshToken{
		UserID:      userID,
		TokenHash:   HashToken(token),
		Fingerprint: fingerprint,
		ExpiresAt:   s.now().Add(s.refreshTTL).UTC(),
	}
	if err := tx.Create(record).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return token, nil
}

func (s *tokenService) parseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies an access token: signature and expiry, then the
// logout blacklist, then the fingerprint, then that the user still exists.
func (s *tokenService) Authenticate(accessToken, fingerprint string) (*models.User, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.BlacklistedToken{}).
		Where("token_hash = ?", HashToken(accessToken)).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrTokenRevoked
	}

	if claims.Fingerprint != "" && subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(fingerprint)) != 1 {
		return nil, apperrors.ErrFingerprintMismatch
	}

	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidToken, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// Refresh redeems a refresh token and returns a new pair. The presented token
// is revoked with a guarded UPDATE, so of two concurrent redemptions only one
// can succeed.
func (s *tokenService) Refresh(refreshToken, fingerprint string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	var pair TokenPair
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", HashToken(refreshToken)).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInvalidRefreshToken
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		now := s.now()
		if record.RevokedAt != nil || !record.ExpiresAt.After(now) {
			return apperrors.ErrInvalidRefreshToken
		}
		if subtle.ConstantTimeCompare([]byte(record.Fingerprint), []byte(fingerprint)) != 1 {
			return apperrors.ErrFingerprintMismatch
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", record.ID).
			Update("revoked_at", now.UTC())
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.ErrInvalidRefreshToken
		}

		access, err := s.signAccessToken(record.UserID, fingerprint)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		refresh, err := s.storeRefreshToken(tx, record.UserID, fingerprint)
		if err != nil {
			return err
		}
		pair = TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout blacklists the access token until its own expiry and revokes the
// caller's refresh token, if one is given.
func (s *tokenService) Logout(userID, accessToken, refreshToken string) error {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		entry := &models.BlacklistedToken{
			TokenHash: HashToken(accessToken),
			ExpiresAt: claims.ExpiresAt.Time.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if refreshToken == "" {
			return nil
		}
		if err := tx.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND user_id = ? AND revoked_at IS NULL", HashToken(refreshToken), userID).
			Update("revoked_at", s.now().UTC()).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// PurgeExpired deletes blacklist entries and refresh tokens past their expiry.
func (s *tokenService) PurgeExpired() (int64, error) {
	now := s.now().UTC()

	blacklisted := s.db.Where("expires_at < ?", now).Delete(&models.BlacklistedToken{})
	if blacklisted.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, blacklisted.Error)
	}
	refresh := s.db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	if refresh.Error != nil {
		return blacklisted.RowsAffected, apperrors.Wrap(apperrors.ErrInternalServer, refresh.Error)
	}
	return blacklisted.RowsAffected + refresh.RowsAffected, nil
}
