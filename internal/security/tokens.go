package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is the parent of every token verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken is returned when a token cannot be parsed or its signature does not verify.
	ErrMalformedToken = fmt.Errorf("malformed token: %w", ErrInvalidToken)
	// ErrExpiredToken is returned when a token verifies but its exp is in the past.
	ErrExpiredToken = fmt.Errorf("expired token: %w", ErrInvalidToken)
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
}

// UserID returns the subject of the access token.
func (c *AccessClaims) UserID() string { return c.Subject }

// RefreshClaims holds JWT claims for the refresh token. The device id binds the token to one session row.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
	DeviceID string `json:"deviceId"`
}

// UserID returns the subject of the refresh token.
func (c *RefreshClaims) UserID() string { return c.Subject }

// IssuedToken is a freshly signed token with the timestamps embedded in it.
type IssuedToken struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenKey struct {
	method jwt.SigningMethod
	sign   any
	verify any
}

// TokenProvider issues and validates access and refresh JWTs. Each token kind has its own key,
// so a refresh token never verifies as an access token and vice versa.
type TokenProvider struct {
	access     tokenKey
	refresh    tokenKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHMACTokenProvider returns a TokenProvider that signs with HS256. accessSecret and refreshSecret may differ.
func NewHMACTokenProvider(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		access:     tokenKey{method: jwt.SigningMethodHS256, sign: accessSecret, verify: accessSecret},
		refresh:    tokenKey{method: jwt.SigningMethodHS256, sign: refreshSecret, verify: refreshSecret},
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// NewKeyPairTokenProvider returns a TokenProvider that signs both token kinds with the given
// private key (RS256 for RSA, ES256 for ECDSA P-256). Token kinds are told apart by the token_use claim.
func NewKeyPairTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if KeyAlg(publicKey) != method.Alg() {
		return nil, ErrInvalidKey
	}
	key := tokenKey{method: method, sign: privateKey, verify: publicKey}
	return &TokenProvider{
		access:     key,
		refresh:    key,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for userID, stamped at now.
func (p *TokenProvider) IssueAccess(userID string, now time.Time) (IssuedToken, error) {
	jti, err := generateJTI()
	if err != nil {
		return IssuedToken{}, err
	}
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TokenUse: useAccess,
	}
	token, err := jwt.NewWithClaims(p.access.method, claims).SignedString(p.access.sign)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: token, ID: jti, IssuedAt: iat, ExpiresAt: exp}, nil
}

// IssueRefresh issues a long-lived refresh JWT bound to deviceID, stamped at now.
// The returned IssuedAt and ExpiresAt are the values the session row should carry.
func (p *TokenProvider) IssueRefresh(userID, deviceID string, now time.Time) (IssuedToken, error) {
	jti, err := generateJTI()
	if err != nil {
		return IssuedToken{}, err
	}
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TokenUse: useRefresh,
		DeviceID: deviceID,
	}
	token, err := jwt.NewWithClaims(p.refresh.method, claims).SignedString(p.refresh.sign)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: token, ID: jti, IssuedAt: iat, ExpiresAt: exp}, nil
}

// ValidateAccess verifies signature, issuer and expiry of an access token as of now.
// Returns ErrExpiredToken or ErrMalformedToken on failure.
func (p *TokenProvider) ValidateAccess(tokenString string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims, p.access, now); err != nil {
		return nil, err
	}
	if claims.TokenUse != useAccess || claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// ValidateRefresh verifies signature, issuer and expiry of a refresh token as of now.
// Returns ErrExpiredToken or ErrMalformedToken on failure.
func (p *TokenProvider) ValidateRefresh(tokenString string, now time.Time) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims, p.refresh, now); err != nil {
		return nil, err
	}
	if claims.TokenUse != useRefresh || claims.Subject == "" || claims.DeviceID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims, key tokenKey, now time.Time) error {
	if tokenString == "" {
		return ErrMalformedToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{key.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key.verify, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrMalformedToken
	}
	if !token.Valid {
		return ErrMalformedToken
	}
	return nil
}

// PeekRefreshClaims decodes a refresh token WITHOUT verifying its signature or expiry.
// Only for diagnostics such as attributing a rejected token in logs; never for authentication.
func PeekRefreshClaims(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
