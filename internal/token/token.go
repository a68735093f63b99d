// Package token mints and verifies the signed bearer credentials that
// carry a tenant principal between requests.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leadgrid/crawl-gateway/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload: registered claims plus the principal
// fields embedded at login time.
type Claims struct {
	jwt.RegisteredClaims
	Email     string               `json:"email"`
	Name      string               `json:"name"`
	Role      string               `json:"role"`
	AccountID int64                `json:"account_id"`
	Status    string               `json:"status"`
	Account   model.AccountSummary `json:"account"`
}

// Principal rebuilds the request principal from verified claims.
func (c *Claims) Principal() (model.Principal, error) {
	id, err := c.RegisteredClaims.GetSubject()
	if err != nil {
		return model.Principal{}, err
	}
	uid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{
		ID:        uid,
		Email:     c.Email,
		Name:      c.Name,
		Role:      c.Role,
		AccountID: c.AccountID,
		Status:    c.Status,
		Account:   c.Account,
	}, nil
}

type Config struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration // default 24h
	RefreshTTL time.Duration // default 7d
}

// Manager signs and verifies tokens with a single pinned symmetric
// algorithm (HS256).
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg Config) *Manager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

func (m *Manager) mint(p model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     p.Email,
		Name:      p.Name,
		Role:      p.Role,
		AccountID: p.AccountID,
		Status:    p.Status,
		Account:   p.Account,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(m.secret)
}

// MintAccess returns a short-lived access token for the principal.
func (m *Manager) MintAccess(p model.Principal) (string, error) {
	return m.mint(p, m.accessTTL)
}

// MintRefresh returns the longer-lived refresh token.
func (m *Manager) MintRefresh(p model.Principal) (string, error) {
	return m.mint(p, m.refreshTTL)
}

// AccessTTLSeconds is the expires_in value reported to clients.
func (m *Manager) AccessTTLSeconds() int64 {
	return int64(m.accessTTL / time.Second)
}

// Verify checks signature, algorithm, issuer, audience and expiry, and
// returns the decoded claims.
func (m *Manager) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{},
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}
