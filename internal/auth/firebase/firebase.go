package firebase

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultCertsURL    = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	issuerPrefix = "https://securetoken.google.com/"
	codeBadToken = "INVALID_ID_TOKEN"
)

// Identity is the verified content of a Firebase ID token
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
}

// SignInResult is returned by the password endpoints
type SignInResult struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	ExpiresIn    string `json:"expiresIn"`
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// Client verifies Firebase ID tokens and calls the Identity Toolkit REST API
type Client struct {
	logger      *zap.Logger
	projectID   string
	apiKey      string
	identityURL string
	certsURL    string
	http        *http.Client
	now         func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	keysUntil time.Time
	fetch     singleflight.Group
}

func NewClient(cfg *config.FirebaseConfig, logger *zap.Logger) *Client {
	identityURL := cfg.IdentityURL
	if identityURL == "" {
		identityURL = DefaultIdentityURL
	}
	certsURL := cfg.CertsURL
	if certsURL == "" {
		certsURL = DefaultCertsURL
	}
	return &Client{
		logger:      logger.Named("auth.firebase"),
		projectID:   cfg.ProjectID,
		apiKey:      cfg.APIKey,
		identityURL: strings.TrimRight(identityURL, "/"),
		certsURL:    certsURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

// VerifyIDToken checks signature, audience, issuer and expiry of an ID token
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	var claims idTokenClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return c.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(c.projectID),
		jwt.WithIssuer(issuerPrefix+c.projectID),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		c.logger.Debug("id token rejected", zap.Error(err))
		return nil, &errorx.ProviderError{
			Provider:   errorx.ProviderFirebase,
			Code:       codeBadToken,
			HTTPStatus: http.StatusUnauthorized,
			Message:    err.Error(),
			Kind:       errorx.ErrUnauthorized,
		}
	}
	if claims.Subject == "" {
		return nil, &errorx.ProviderError{
			Provider: errorx.ProviderFirebase, Code: codeBadToken, HTTPStatus: http.StatusUnauthorized,
			Message: "token has no subject", Kind: errorx.ErrUnauthorized,
		}
	}
	return &Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// publicKey serves kid from the cached certificates. Only an expired cache is
// refetched, so unknown kids cannot force a download per request.
func (c *Client) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fresh := c.cachedKey(kid)
	if !fresh {
		// concurrent callers share one download that outlives a cancelled caller
		_, err, _ := c.fetch.Do("certs", func() (any, error) {
			return nil, c.refreshKeys(context.WithoutCancel(ctx))
		})
		if err != nil {
			return nil, err
		}
		key, _ = c.cachedKey(kid)
	}
	if key == nil {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (c *Client) cachedKey(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid], c.keys != nil && c.now().Before(c.keysUntil)
}

// refreshKeys downloads the x509 certificates and swaps the cache
func (c *Client) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certificates: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certificates: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return fmt.Errorf("parse certificate %s: %w", kid, err)
		}
		keys[kid] = key
	}

	until := c.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	c.mu.Lock()
	c.keys = keys
	c.keysUntil = until
	c.mu.Unlock()
	c.logger.Debug("refreshed signing certificates", zap.Int("count", len(keys)), zap.Time("until", until))
	return nil
}

// maxAge reads max-age from a Cache-Control header, defaulting to one hour
func maxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Hour
}

// SignInWithPassword signs a user in with email and password
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	return c.identityCall(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignUp creates a user with email and password
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*SignInResult, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	if displayName != "" {
		body["displayName"] = displayName
	}
	return c.identityCall(ctx, "accounts:signUp", body)
}

func (c *Client) identityCall(ctx context.Context, method string, body map[string]any) (*SignInResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s?key=%s", c.identityURL, method, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errorx.ProviderError{Provider: errorx.ProviderFirebase, Code: "UNAVAILABLE", Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read firebase response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, providerError(resp.StatusCode, raw)
	}
	var out SignInResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode firebase response: %w", err)
	}
	return &out, nil
}

// providerError turns {"error":{"message":"CODE : detail"}} into a ProviderError
func providerError(status int, raw []byte) *errorx.ProviderError {
	msg := gjson.GetBytes(raw, "error.message").String()
	code, detail, _ := strings.Cut(msg, " : ")
	code = strings.TrimSpace(code)
	if code == "" {
		code = "UNKNOWN"
	}
	if detail == "" {
		detail = msg
	}
	return &errorx.ProviderError{
		Provider:   errorx.ProviderFirebase,
		Code:       code,
		HTTPStatus: status,
		Message:    detail,
		Kind:       kindFor(code),
	}
}

func kindFor(code string) *errorx.APIError {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", codeBadToken:
		return errorx.ErrUnauthorized
	case "USER_DISABLED":
		return errorx.ErrForbidden
	case "EMAIL_EXISTS":
		return errorx.ErrConflict
	case "WEAK_PASSWORD", "INVALID_EMAIL", "MISSING_PASSWORD", "MISSING_EMAIL":
		return errorx.ErrInvalidInput
	default:
		return errorx.ErrUpstream
	}
}
