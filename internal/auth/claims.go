package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeCallStream TokenType = "call_stream"

// CallClaims bind a browser tab to one call stream. The subject is the call
// id; a ticket for one call never opens another.
type CallClaims struct {
	jwt.RegisteredClaims

	CallID    string    `json:"call_id"`
	Mock      bool      `json:"mock"`
	TokenType TokenType `json:"token_type"`
}
