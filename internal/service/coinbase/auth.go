package coinbase

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials holds an Advanced Trade API key pair: the key name and its EC
// private key in PEM form.
type Credentials struct {
	KeyName    string
	PrivateKey *ecdsa.PrivateKey
}

// NewCredentials parses the PEM private key for signing.
func NewCredentials(keyName, privateKeyPEM string) (*Credentials, error) {
	if keyName == "" {
		return nil, fmt.Errorf("coinbase key name is required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse coinbase private key: %w", err)
	}
	return &Credentials{KeyName: keyName, PrivateKey: key}, nil
}

// BuildJWT signs a short-lived ES256 token. REST requests carry a uri claim
// of the form "GET host/path"; the WebSocket subscribe omits it.
func (c *Credentials) BuildJWT(uri string) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"sub": c.KeyName,
		"iss": "cdp",
		"nbf": now,
		"exp": now + 120,
	}
	if uri != "" {
		claims["uri"] = uri
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.KeyName
	token.Header["nonce"] = newNonce()

	signed, err := token.SignedString(c.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func newNonce() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
