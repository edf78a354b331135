package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/edujoy/auth-service/internal/core/domain"
)

var (
	// ErrInvalidToken indicates the token is malformed, carries a bad
	// signature, or was signed for the other token kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token verified but its lifetime elapsed.
	ErrExpiredToken = errors.New("token expired")
)

// AccessTokenClaims carries the identity attached to authenticated requests.
type AccessTokenClaims struct {
	UserID   string      `json:"uid"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Verified bool        `json:"verified"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the subject; everything else about a
// refresh token lives in the ledger.
type RefreshTokenClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the two token kinds. Each kind has its own
// secret and is verified only against that secret: an access token must never
// redeem as a refresh token, nor the reverse.
type TokenIssuer struct {
	issuer          string
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. Both secrets are required and must
// be distinct.
func NewTokenIssuer(issuer, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, fmt.Errorf("both token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must be distinct")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenIssuer{
		issuer:          issuer,
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
	}, nil
}

// WithClock overrides the internal clock for deterministic tests.
func (t *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		t.now = clock
	}
	return t
}

// AccessTokenTTL returns the configured access token lifetime.
func (t *TokenIssuer) AccessTokenTTL() time.Duration { return t.accessTokenTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (t *TokenIssuer) RefreshTokenTTL() time.Duration { return t.refreshTokenTTL }

func (t *TokenIssuer) clock() time.Time {
	if t.now != nil {
		return t.now().UTC()
	}
	return time.Now().UTC()
}

// IssueAccessToken signs a short-lived access token for the user.
func (t *TokenIssuer) IssueAccessToken(user domain.User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := t.clock()
	claims := AccessTokenClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.IsVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// IssueRefreshToken signs a long-lived refresh token carrying only the user id.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := t.clock()
	claims := RefreshTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken validates the access token signature and lifetime.
func (t *TokenIssuer) VerifyAccessToken(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken validates the refresh token signature and lifetime. The
// ledger membership check is the caller's responsibility.
func (t *TokenIssuer) VerifyRefreshToken(token string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.clock))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return ErrInvalidToken
	}

	return nil
}
