// Package keys holds the key material used to sign and verify tokens: the RSA signing key
// for access tokens, its public JWKS form, and the HMAC secret for refresh tokens.
package keys

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Algorithm is the JWS algorithm used for access tokens.
const Algorithm = "RS256"

// devRefreshSecret is used only outside production when no secret is configured.
const devRefreshSecret = "my-secret"

// Options configures a Provider.
type Options struct {
	// PrivateKeyPEM is the PEM-encoded RSA key. Literal `\n` sequences are accepted.
	PrivateKeyPEM string
	// PrivateKeyFile is read when PrivateKeyPEM is empty.
	PrivateKeyFile string
	RefreshSecret  string
	JWKSURI        string
	Production     bool
}

// Provider implements ports.KeyProvider.
type Provider struct {
	key     *rsa.PrivateKey
	kid     string
	keyErr  error
	secret  []byte
	jwksURI string
}

// NewProvider loads key material from opts. A missing or malformed private key does not
// fail construction; it is reported by SigningKey so the failure surfaces per request.
// A missing refresh secret fails construction in production.
func NewProvider(opts Options) (*Provider, error) {
	p := &Provider{jwksURI: opts.JWKSURI}

	secret := opts.RefreshSecret
	if secret == "" {
		if opts.Production {
			return nil, fmt.Errorf("%w: REFRESH_TOKEN_SECRET is not set", domain.ErrConfiguration)
		}
		secret = devRefreshSecret
	}
	p.secret = []byte(secret)

	raw := opts.PrivateKeyPEM
	if raw == "" && opts.PrivateKeyFile != "" {
		b, err := os.ReadFile(opts.PrivateKeyFile)
		if err != nil {
			p.keyErr = fmt.Errorf("%w: read private key file: %v", domain.ErrConfiguration, err)
			return p, nil
		}
		raw = string(b)
	}

	p.key, p.kid, p.keyErr = loadSigningKey(raw)
	return p, nil
}

// NewProviderFromKey builds a Provider around an in-memory key.
func NewProviderFromKey(key *rsa.PrivateKey, refreshSecret string) (*Provider, error) {
	kid, err := Thumbprint(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Provider{key: key, kid: kid, secret: []byte(refreshSecret)}, nil
}

func loadSigningKey(raw string) (*rsa.PrivateKey, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", fmt.Errorf("%w: PRIVATE_KEY is not set", domain.ErrConfiguration)
	}
	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, "", err
	}
	kid, err := Thumbprint(&key.PublicKey)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return key, kid, nil
}

// ParsePrivateKey parses a PKCS#1 or PKCS#8 PEM RSA key, unescaping `\n` sequences first.
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	unescaped := strings.ReplaceAll(raw, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(unescaped))
	if err != nil {
		return nil, fmt.Errorf("%w: error while reading private key: %v", domain.ErrConfiguration, err)
	}
	return key, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of pub, base64url encoded.
func Thumbprint(pub *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	sum, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

func (p *Provider) SigningKey() (*rsa.PrivateKey, string, error) {
	if p.keyErr != nil {
		return nil, "", p.keyErr
	}
	return p.key, p.kid, nil
}

func (p *Provider) RefreshSecret() []byte {
	return p.secret
}

// JWKSURI is where verifiers fetch the public keys from.
func (p *Provider) JWKSURI() string {
	return p.jwksURI
}

// JWKS returns the public half of the signing key as a key set.
func (p *Provider) JWKS() (jose.JSONWebKeySet, error) {
	key, kid, err := p.SigningKey()
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     kid,
		Algorithm: Algorithm,
		Use:       "sig",
	}}}, nil
}

// Keyfunc verifies tokens against the provider's own public key. It is used when no
// JWKS URI is configured and the service verifies the tokens it issued itself.
func (p *Provider) Keyfunc(t *jwt.Token) (any, error) {
	key, kid, err := p.SigningKey()
	if err != nil {
		return nil, err
	}
	if h, _ := t.Header["kid"].(string); h != "" && h != kid {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, h)
	}
	return &key.PublicKey, nil
}
