package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	publicKeyLen  = 65 // 0x04 || X(32) || Y(32)
	privateKeyLen = 32
)

var b64 = base64.RawURLEncoding

// KeyDescriptor is the JWK form of the VAPID signing key.
type KeyDescriptor struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d"`
}

// decodeB64 accepts base64url with or without padding; standard alphabet is tolerated too.
func decodeB64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return b64.DecodeString(s)
}

// DecodeKeyMaterial splits an uncompressed P-256 public point and joins it with the private scalar.
func DecodeKeyMaterial(publicKey, privateKey string) (KeyDescriptor, error) {
	pub, err := decodeB64(publicKey)
	if err != nil {
		return KeyDescriptor{}, &KeyFormatError{Reason: "public key is not base64url", Err: err}
	}
	if len(pub) != publicKeyLen || pub[0] != 0x04 {
		return KeyDescriptor{}, &KeyFormatError{
			Reason: fmt.Sprintf("public key must be a %d byte uncompressed point, got %d bytes", publicKeyLen, len(pub)),
		}
	}

	if privateKey == "" {
		return KeyDescriptor{}, &KeyFormatError{Reason: "private key is not configured"}
	}
	priv, err := decodeB64(privateKey)
	if err != nil {
		return KeyDescriptor{}, &KeyFormatError{Reason: "private key is not base64url", Err: err}
	}
	if len(priv) != privateKeyLen {
		return KeyDescriptor{}, &KeyFormatError{
			Reason: fmt.Sprintf("private key must be %d bytes, got %d", privateKeyLen, len(priv)),
		}
	}

	return KeyDescriptor{
		Kty: "EC",
		Crv: "P-256",
		X:   b64.EncodeToString(pub[1:33]),
		Y:   b64.EncodeToString(pub[33:]),
		D:   b64.EncodeToString(priv),
	}, nil
}

// LoadSigningKey imports the key material as an ES256 signing key.
// The public point must lie on the curve and match the private scalar.
func LoadSigningKey(publicKey, privateKey string) (*ecdsa.PrivateKey, error) {
	desc, err := DecodeKeyMaterial(publicKey, privateKey)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, &KeyFormatError{Reason: "encoding jwk", Err: err}
	}
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, &KeyFormatError{Reason: "importing jwk", Err: err}
	}

	var priv ecdsa.PrivateKey
	if err = key.Raw(&priv); err != nil {
		return nil, &KeyFormatError{Reason: "importing jwk", Err: err}
	}
	if !priv.Curve.IsOnCurve(priv.X, priv.Y) {
		return nil, &KeyFormatError{Reason: "public key is not on P-256"}
	}
	x, y := priv.Curve.ScalarBaseMult(priv.D.Bytes())
	if x.Cmp(priv.X) != 0 || y.Cmp(priv.Y) != 0 {
		return nil, &KeyFormatError{Reason: "private key does not match public key"}
	}
	return &priv, nil
}

// GenerateKeyPair creates a fresh VAPID key pair, both base64url encoded.
func GenerateKeyPair() (publicKey, privateKey string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}
	d := priv.D.FillBytes(make([]byte, privateKeyLen))
	return EncodePublicKey(&priv.PublicKey), b64.EncodeToString(d), nil
}

// PublicKeyFromPrivate derives the base64url application server key from a private scalar.
func PublicKeyFromPrivate(privateKey string) (string, error) {
	d, err := decodeB64(privateKey)
	if err != nil {
		return "", &KeyFormatError{Reason: "private key is not base64url", Err: err}
	}
	if len(d) != privateKeyLen {
		return "", &KeyFormatError{Reason: fmt.Sprintf("private key must be %d bytes, got %d", privateKeyLen, len(d))}
	}
	curve := elliptic.P256()
	if k := new(big.Int).SetBytes(d); k.Sign() == 0 || k.Cmp(curve.Params().N) >= 0 {
		return "", &KeyFormatError{Reason: "private key is out of range"}
	}
	x, y := curve.ScalarBaseMult(d)
	return EncodePublicKey(&ecdsa.PublicKey{Curve: curve, X: x, Y: y}), nil
}

// EncodePublicKey returns the uncompressed point, base64url encoded without padding.
func EncodePublicKey(pub *ecdsa.PublicKey) string {
	buf := make([]byte, publicKeyLen)
	buf[0] = 0x04
	pub.X.FillBytes(buf[1:33])
	pub.Y.FillBytes(buf[33:])
	return b64.EncodeToString(buf)
}
