package auth

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Settings configures token signing and the API client allowed to log in
type Settings struct {
	Secret           string
	Issuer           string
	Audience         string
	TTL              time.Duration
	ClientID         string
	ClientSecretHash string
}

var (
	mu       sync.RWMutex
	settings = Settings{
		Secret:   "development-insecure-secret-change-me",
		Issuer:   "cache-store-api",
		Audience: "cache-store-clients",
		TTL:      24 * time.Hour,
	}
)

// ErrInvalidCredentials is returned by CheckClient for an unknown client or a
// wrong secret.
var ErrInvalidCredentials = errors.New("invalid client credentials")

// Configure replaces the signing settings. Empty fields keep their current value.
func Configure(s Settings) {
	mu.Lock()
	defer mu.Unlock()
	if s.Secret != "" {
		settings.Secret = s.Secret
	}
	if s.Issuer != "" {
		settings.Issuer = s.Issuer
	}
	if s.Audience != "" {
		settings.Audience = s.Audience
	}
	if s.TTL > 0 {
		settings.TTL = s.TTL
	}
	settings.ClientID = s.ClientID
	settings.ClientSecretHash = s.ClientSecretHash
}

func current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// Claims represents the JWT claims
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// HashSecret returns the bcrypt hash of a client secret
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash client secret")
	}
	return string(hash), nil
}

// CheckClient verifies the client credentials against the configured client
func CheckClient(clientID, secret string) error {
	s := current()
	if s.ClientID == "" || s.ClientSecretHash == "" || clientID != s.ClientID {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.ClientSecretHash), []byte(secret)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken generates a JWT token for the given client
func GenerateToken(clientID string) (string, time.Time, error) {
	s := current()
	now := time.Now()
	expiresAt := now.Add(s.TTL)
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	s := current()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.Secret), nil
	},
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(s.Audience),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
