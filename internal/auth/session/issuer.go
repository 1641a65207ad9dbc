package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// Claims are the JWT claims carried by marketplace session tokens. The
// role claim is what makes session refresh necessary after a role
// change: clients keep presenting the stale role until a new token is
// issued.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Device    string `json:"device,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates and validates session tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewIssuer(signingKey, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Issue mints a fresh session token for the user with their current
// role. userAgent may be empty; when present it is condensed into a
// human-readable device label.
func (i *Issuer) Issue(userID domain.UserID, sessionID domain.SessionID, role domain.Role, userAgent string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		Role:      role.String(),
		Device:    DeviceLabel(userAgent),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a session token.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Subject extracts the typed user and session IDs from a token.
func (i *Issuer) Subject(tokenString string) (domain.UserID, domain.SessionID, error) {
	claims, err := i.Validate(tokenString)
	if err != nil {
		return domain.UserID{}, domain.SessionID{}, err
	}
	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return domain.UserID{}, domain.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sessionID, err := domain.ParseSessionID(claims.SessionID)
	if err != nil {
		return domain.UserID{}, domain.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return userID, sessionID, nil
}

// DeviceLabel condenses a raw User-Agent header into "Browser on OS".
func DeviceLabel(rawUserAgent string) string {
	if rawUserAgent == "" {
		return ""
	}
	ua := useragent.New(rawUserAgent)
	name, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case name != "" && os != "":
		return name + " on " + os
	case name != "":
		return name
	case os != "":
		return os
	default:
		return "unknown device"
	}
}
