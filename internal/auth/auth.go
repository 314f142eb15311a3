// Package auth resolves the calling actor from a bearer token and enforces
// ownership rules for bookings. Both engines consult it, so the admin/owner
// checks live here and nowhere else.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ChrisaMendoza/pilates-core/internal/model"
)

// RoleAdmin marks an actor as administrator in the token's roles claim.
const RoleAdmin = "ROLE_ADMIN"

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Admin  bool
}

// Claims is the JWT payload carried by actor tokens.
type Claims struct {
	UserID int64    `json:"uid"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier parses and validates actor tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the given HS256 secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ResolveActor validates a token string and returns the actor it identifies.
// Any parse or validation failure surfaces as ErrUnauthorized.
func (v *Verifier) ResolveActor(tokenStr string) (Actor, error) {
	if tokenStr == "" {
		return Actor{}, fmt.Errorf("%w: missing token", model.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}
	if claims.UserID == 0 {
		return Actor{}, fmt.Errorf("%w: token carries no user id", model.ErrUnauthorized)
	}

	actor := Actor{UserID: claims.UserID}
	for _, r := range claims.Roles {
		if r == RoleAdmin {
			actor.Admin = true
		}
	}
	return actor, nil
}

// SignToken issues a token for the given user. Used by tests and ops tooling.
func SignToken(secret string, userID int64, roles []string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Guard enforces who may act on which booking.
type Guard struct{}

// AssertCanActOnBooking passes admins unconditionally and owners for their
// own bookings; everyone else gets ErrForbidden.
func (Guard) AssertCanActOnBooking(actor Actor, booking *model.Booking) error {
	if actor.Admin {
		return nil
	}
	if booking.UserID == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: booking belongs to another user", model.ErrForbidden)
}

// EffectiveCreateUser resolves the user a new booking is created for.
// Admins may name any user (or none, defaulting to themselves); non-admins
// may only omit the field or name themselves.
func (Guard) EffectiveCreateUser(actor Actor, requested *int64) (int64, error) {
	if requested == nil {
		return actor.UserID, nil
	}
	if actor.Admin || *requested == actor.UserID {
		return *requested, nil
	}
	return 0, fmt.Errorf("%w: cannot create booking for another user", model.ErrForbidden)
}

// AssertAdmin passes only administrators.
func (Guard) AssertAdmin(actor Actor) error {
	if actor.Admin {
		return nil
	}
	return fmt.Errorf("%w: admin role required", model.ErrForbidden)
}
