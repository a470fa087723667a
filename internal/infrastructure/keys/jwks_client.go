package keys

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultMinRefresh   = 30 * time.Second
	defaultFetchTimeout = 5 * time.Second
)

var (
	ErrKeyNotFound = errors.New("signing key not found")
	ErrRateLimited = errors.New("jwks refetch rate limited")
	errEmptyKeySet = errors.New("jwks contains no usable RSA signing keys")
)

// ClientOptions configures a JWKSClient.
type ClientOptions struct {
	HTTPClient *http.Client
	// CacheTTL is how long fetched keys are trusted before a refetch is attempted.
	CacheTTL time.Duration
	// MinRefresh is the minimum interval between remote fetches.
	MinRefresh time.Duration
	// OnFetch is called after every remote fetch attempt.
	OnFetch func(err error)
	Logger  zerolog.Logger
}

// JWKSClient resolves access token verification keys from a remote JWKS document.
// Keys are cached process-wide; remote fetches are bounded by a token-bucket limiter so
// tokens carrying unknown kids cannot drive unbounded outbound calls.
type JWKSClient struct {
	uri     string
	client  *http.Client
	ttl     time.Duration
	limiter *rate.Limiter
	onFetch func(error)
	log     zerolog.Logger

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSClient(uri string, opts ClientOptions) *JWKSClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.MinRefresh <= 0 {
		opts.MinRefresh = defaultMinRefresh
	}
	return &JWKSClient{
		uri:     uri,
		client:  opts.HTTPClient,
		ttl:     opts.CacheTTL,
		limiter: rate.NewLimiter(rate.Every(opts.MinRefresh), 1),
		onFetch: opts.OnFetch,
		log:     opts.Logger,
	}
}

// Keyfunc satisfies jwt.Keyfunc for callers without a request context.
func (c *JWKSClient) Keyfunc(t *jwt.Token) (any, error) {
	return c.KeyfuncContext(context.Background())(t)
}

// KeyfuncContext returns a jwt.Keyfunc whose remote fetches are bound to ctx.
func (c *JWKSClient) KeyfuncContext(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		fetchCtx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
		defer cancel()
		return c.Key(fetchCtx, kid)
	}
}

// Key returns the public key for kid, fetching the key set when it is missing or stale
// and the limiter allows it. A stale key is still served when a refetch is not possible.
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fresh := c.lookup(kid)
	if key != nil && fresh {
		return key, nil
	}

	if !c.limiter.Allow() {
		if key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("%w: kid %q", ErrRateLimited, kid)
	}

	if err := c.refresh(ctx); err != nil {
		if key != nil {
			c.log.Warn().Err(err).Str("kid", kid).Msg("jwks refresh failed, serving cached key")
			return key, nil
		}
		return nil, err
	}

	if key, _ = c.lookup(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// lookup finds kid in the cache. An empty kid matches when the set holds exactly one key.
func (c *JWKSClient) lookup(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.keys == nil {
		return nil, false
	}
	fresh := time.Since(c.fetchedAt) <= c.ttl

	if kid == "" && len(c.keys) == 1 {
		for _, k := range c.keys {
			return k, fresh
		}
	}
	k, ok := c.keys[kid]
	if !ok {
		return nil, false
	}
	return k, fresh
}

func (c *JWKSClient) refresh(ctx context.Context) (err error) {
	defer func() {
		if c.onFetch != nil {
			c.onFetch(err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("jwks returned %d: %s", resp.StatusCode, string(body))
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if k.Algorithm != "" && k.Algorithm != Algorithm {
			continue
		}
		pub, ok := k.Key.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[k.KeyID] = pub
	}
	if len(keys) == 0 {
		return errEmptyKeySet
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.log.Debug().Int("keys", len(keys)).Str("uri", c.uri).Msg("jwks refreshed")
	return nil
}
