// Package cipher protects identity-document values at rest.
//
// Values are sealed with an AEAD keyed from a configured secret. A previously
// active secret may be retained as a legacy key: reads attempt the primary
// key first, then the legacy key, and finally fall back to treating the value
// as pre-encryption plaintext. The legacy flag on Decrypt lets callers
// re-encrypt such values under the primary key on the way out, so the stored
// population migrates opportunistically without a stop-the-world rewrite.
package cipher

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

// prefix marks values produced by this package. Anything without it is
// pre-encryption plaintext and passes through Decrypt unchanged.
const prefix = "v1:"

// Cipher seals and opens document payloads. Construct with New; the zero
// value is unusable.
type Cipher struct {
	primary [32]byte
	legacy  *[32]byte
}

// New derives key material from the configured secrets. The primary secret is
// mandatory: a process without it must not start, because every worker row
// would be unreadable. The legacy secret is optional and only ever used to
// open values written before a key rotation.
func New(primarySecret, legacySecret string) (*Cipher, error) {
	if primarySecret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "primary document secret is not configured")
	}
	c := &Cipher{primary: sha256.Sum256([]byte(primarySecret))}
	if legacySecret != "" {
		key := sha256.Sum256([]byte(legacySecret))
		c.legacy = &key
	}
	return c, nil
}

// Encrypt seals plaintext under the primary key. Empty input stays empty so
// optional fields round-trip without a stored token. The random nonce makes
// ciphertext non-deterministic: equal passports never produce equal rows.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.New(c.primary[:])
	if err != nil {
		return "", fmt.Errorf("construct aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(strings.TrimSpace(plaintext)), nil)
	return prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored value. The second return reports that the legacy key
// was needed, signalling the caller to re-encrypt and persist under the
// primary key.
//
// Decrypt never fails on the read path: values that neither key opens are
// returned unchanged as pre-encryption plaintext.
func (c *Cipher) Decrypt(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	raw, ok := strings.CutPrefix(value, prefix)
	if !ok {
		// Stored before encryption was introduced.
		return value, false
	}
	sealed, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return value, false
	}

	if plain, ok := open(c.primary[:], sealed); ok {
		return plain, false
	}
	if c.legacy != nil {
		if plain, ok := open(c.legacy[:], sealed); ok {
			return plain, true
		}
	}
	return value, false
}

func open(key, sealed []byte) (string, bool) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", false
	}
	if len(sealed) < aead.NonceSize() {
		return "", false
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}
