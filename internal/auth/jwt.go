// AngelaMos | 2026
// jwt.go

package auth

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/sheetsense/internal/config"
	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

const (
	claimIsAdmin    = "is_admin"
	claimIsVerified = "is_verified"
	claimType       = "type"
	tokenTypeAccess = "access"

	clockSkew = 30 * time.Second
)

// JWTManager signs and verifies ES256 access tokens. The key id is the
// RFC 7638 thumbprint of the public key, so it is stable across restarts.
type JWTManager struct {
	signingKey jwk.Key
	verifyKey  jwk.Key
	jwks       jwk.Set
	keyID      string
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	signingKey, err := readKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	verifyKey, err := signingKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	keyID, err := thumbprint(verifyKey)
	if err != nil {
		return nil, err
	}

	if err := checkPublicKey(cfg.PublicKeyPath, keyID); err != nil {
		return nil, err
	}

	for _, k := range []jwk.Key{signingKey, verifyKey} {
		if err := k.Set(jwk.KeyIDKey, keyID); err != nil {
			return nil, fmt.Errorf("set key id: %w", err)
		}
		if err := k.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
			return nil, fmt.Errorf("set algorithm: %w", err)
		}
	}
	if err := verifyKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(verifyKey); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}

	return &JWTManager{
		signingKey: signingKey,
		verifyKey:  verifyKey,
		jwks:       jwks,
		keyID:      keyID,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.AccessTokenExpire,
	}, nil
}

func readKey(path string) (jwk.Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", path, err)
	}

	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse key %s: %w", path, err)
	}
	return key, nil
}

func thumbprint(key jwk.Key) (string, error) {
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

// checkPublicKey catches a public key file left over from another pair. A
// missing file is fine since the public half is derived from the private one.
func checkPublicKey(path, wantID string) error {
	if path == "" {
		return nil
	}

	key, err := readKey(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	gotID, err := thumbprint(key)
	if err != nil {
		return err
	}
	if gotID != wantID {
		return fmt.Errorf("public key %s does not match the signing key", path)
	}
	return nil
}

// EnsureKeyPair writes a fresh P-256 pair when the private key is missing and
// reports whether it did.
func EnsureKeyPair(privateKeyPath, publicKeyPath string) (bool, error) {
	_, err := os.Stat(privateKeyPath)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("stat private key: %w", err)
	}

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return false, fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(ecKey)
	if err != nil {
		return false, fmt.Errorf("import key: %w", err)
	}
	public, err := private.PublicKey()
	if err != nil {
		return false, fmt.Errorf("derive public key: %w", err)
	}

	if err := writePEM(privateKeyPath, private, 0o600); err != nil {
		return false, err
	}
	if err := writePEM(publicKeyPath, public, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func writePEM(path string, key jwk.Key, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	encoded, err := jwk.Pem(key)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, encoded, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CreateAccessToken signs a token for c. The admin and verified flags ride
// in the token so the admin gate never needs a database lookup.
func (m *JWTManager) CreateAccessToken(
	c middleware.AccessTokenClaims,
) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(c.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.ttl)).
		Claim(claimType, tokenTypeAccess).
		Claim(claimIsAdmin, c.IsAdmin).
		Claim(claimIsVerified, c.IsVerified).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signingKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// VerifyAccessToken checks the signature first and the time and audience
// claims second, so a well-signed but stale token reports ErrTokenExpired.
func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verifyKey),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", core.ErrTokenInvalid)
	}

	if err := jwt.Validate(
		token,
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithAcceptableSkew(clockSkew),
	); err != nil {
		if expired(err) {
			return nil, fmt.Errorf("validate token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate token: %w", core.ErrTokenInvalid)
	}

	var kind string
	if err := token.Get(claimType, &kind); err != nil || kind != tokenTypeAccess {
		return nil, fmt.Errorf("token type %q: %w", kind, core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("token subject: %w", core.ErrTokenInvalid)
	}

	claims := &middleware.AccessTokenClaims{UserID: subject}
	//nolint:errcheck // an absent flag reads as false
	_ = token.Get(claimIsAdmin, &claims.IsAdmin)
	//nolint:errcheck // an absent flag reads as false
	_ = token.Get(claimIsVerified, &claims.IsVerified)

	return claims, nil
}

func expired(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, `"exp"`) && strings.Contains(msg, "not satisfied")
}

// GetJWKSHandler publishes the verification key. The body never changes
// while the process runs, so it is encoded once.
func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	var buf bytes.Buffer
	encodeErr := json.NewEncoder(&buf).Encode(m.jwks)

	return func(w http.ResponseWriter, _ *http.Request) {
		if encodeErr != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		//nolint:errcheck // best-effort response write
		_, _ = w.Write(buf.Bytes())
	}
}

func (m *JWTManager) GetKeyID() string {
	return m.keyID
}

func (m *JWTManager) ExpiresIn() time.Duration {
	return m.ttl
}
