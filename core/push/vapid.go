package push

import (
	"crypto/ecdsa"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var (
	nowFunc       = time.Now      // mockable
	deriveKeyFunc = LoadSigningKey // mockable

	errEmptyAudience   = errors.New("audience is empty")
	errInvalidAudience = errors.New("audience must be an origin (scheme://host)")
)

// Signer produces the Web Push Authorization header for a push service origin.
type Signer interface {
	// Ready reports whether the signing key can be derived.
	Ready() error
	Sign(audience string) (string, error)
	PublicKey() string
}

// SigningContext holds the VAPID key material of the process.
// The signing key is derived once, on first use, and never rotated.
type SigningContext struct {
	publicKey  string
	privateKey string
	subject    string
	expiry     time.Duration

	once sync.Once
	key  *ecdsa.PrivateKey
	err  error
}

var _ Signer = (*SigningContext)(nil)

func NewSigningContext(conf core.VapidConfig) *SigningContext {
	expiry := conf.TokenExpiry
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &SigningContext{
		publicKey:  strings.TrimRight(strings.TrimSpace(conf.PublicKey), "="),
		privateKey: strings.TrimSpace(conf.PrivateKey),
		subject:    conf.Subject,
		expiry:     expiry,
	}
}

func (sc *SigningContext) PublicKey() string {
	return sc.publicKey
}

func (sc *SigningContext) signingKey() (*ecdsa.PrivateKey, error) {
	sc.once.Do(func() {
		sc.key, sc.err = deriveKeyFunc(sc.publicKey, sc.privateKey)
	})
	return sc.key, sc.err
}

func (sc *SigningContext) Ready() error {
	_, err := sc.signingKey()
	return err
}

// Sign returns `vapid t=<jwt>, k=<public key>` for the given origin.
// Every call signs a fresh token with a fresh expiry.
func (sc *SigningContext) Sign(audience string) (string, error) {
	if err := checkAudience(audience); err != nil {
		return "", &SigningError{Audience: audience, Err: err}
	}
	key, err := sc.signingKey()
	if err != nil {
		return "", &SigningError{Audience: audience, Err: err}
	}

	claims := jwt.StandardClaims{
		Audience:  audience,
		ExpiresAt: nowFunc().Add(sc.expiry).Unix(),
		Subject:   sc.subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		return "", &SigningError{Audience: audience, Err: err}
	}
	return fmt.Sprintf("vapid t=%s, k=%s", token, sc.publicKey), nil
}

func checkAudience(audience string) error {
	if audience == "" {
		return errEmptyAudience
	}
	u, err := url.Parse(audience)
	if err != nil {
		return errors.Wrap(err, "parsing audience")
	}
	if u.Scheme == "" || u.Host == "" || u.Path != "" || u.RawQuery != "" {
		return errInvalidAudience
	}
	return nil
}

// Audience returns the origin (scheme://host[:port]) of a push endpoint.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parsing endpoint")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("endpoint %q is not an absolute URL", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}
