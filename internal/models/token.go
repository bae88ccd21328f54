package models

import "github.com/golang-jwt/jwt/v5"

// TokenKind distinguishes access tokens from refresh tokens in claims.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims are the signed claims embedded in both token kinds.
// Subject carries the username.
type TokenClaims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}
