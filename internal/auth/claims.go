package auth

import "github.com/golang-jwt/jwt/v5"

// Claims represents the standard JWT claims we care about
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}
