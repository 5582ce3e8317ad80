package auth

import (
	"errors"
	"time"

	"healthmate/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTicketCallMismatch = errors.New("ticket issued for another call")
	ErrTicketType         = errors.New("token_type mismatch")
)

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewManager(cfg config.TicketConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("CALL_TICKET_SECRET is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// IssueCallTicket signs a short-lived ticket for the call stream of callID.
func (m *Manager) IssueCallTicket(now time.Time, callID string, mock bool) (string, error) {
	if callID == "" {
		return "", errors.New("call_id is required")
	}
	claims := CallClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   callID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		CallID:    callID,
		Mock:      mock,
		TokenType: TokenTypeCallStream,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// VerifyCallTicket checks signature, lifetime, issuer and the call binding.
func (m *Manager) VerifyCallTicket(tokenString, callID string, now time.Time) (CallClaims, error) {
	var claims CallClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return CallClaims{}, err
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if err := jwt.NewValidator(opts...).Validate(claims.RegisteredClaims); err != nil {
		return CallClaims{}, err
	}

	if claims.TokenType != TokenTypeCallStream {
		return CallClaims{}, ErrTicketType
	}
	if claims.CallID == "" || claims.CallID != callID || claims.Subject != callID {
		return CallClaims{}, ErrTicketCallMismatch
	}
	return claims, nil
}
