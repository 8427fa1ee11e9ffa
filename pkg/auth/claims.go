package auth

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin grants access to the order administration routes.
const RoleAdmin = "admin"

// AccessTokenClaims is the typed JWT carried by back-office callers.
type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
