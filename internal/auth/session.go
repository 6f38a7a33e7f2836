package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/taipay/cashme/internal/wallet"
)

var (
	ErrMissingToken  = errors.New("no authorization token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrNoSession     = errors.New("not authenticated")
	ErrNoWalletClaim = errors.New("token carries no wallet address")
)

const sessionKey = "cashme.session"

// Session is the authenticated caller, passed explicitly to the services
// that act on a user's behalf.
type Session struct {
	Address   string
	Subject   string
	ExpiresAt time.Time
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Address != ""
}

func (s *Session) ActiveAddress() string {
	if s == nil {
		return ""
	}
	return s.Address
}

type Config struct {
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

type Verifier struct {
	secret []byte
	issuer string
	skew   time.Duration
}

func NewVerifier(cfg Config) *Verifier {
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	return &Verifier{
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		issuer: cfg.Issuer,
		skew:   skew,
	}
}

type claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Verify parses an HMAC-signed bearer token. The wallet address is taken
// from the "address" claim, falling back to "sub".
func (v *Verifier) Verify(tokenString string) (*Session, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(v.skew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	raw := c.Address
	if raw == "" {
		raw = c.Subject
	}
	if raw == "" {
		return nil, ErrNoWalletClaim
	}
	addr, err := wallet.NormalizeAddress(raw)
	if err != nil {
		return nil, err
	}

	s := &Session{Address: addr, Subject: c.Subject}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// session for FromContext.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := extractBearer(header)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
			return
		}
		session, err := v.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// FromContext returns the session stored by Middleware.
func FromContext(c *gin.Context) (*Session, error) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, ErrNoSession
	}
	s, ok := v.(*Session)
	if !ok || !s.IsAuthenticated() {
		return nil, ErrNoSession
	}
	return s, nil
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
