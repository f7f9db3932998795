package export

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and envelope parameters. The salt and nonce are random
// per export; the iteration count matches what existing backups were
// written with and cannot change without a version bump.
const (
	kdfIterations = 250_000
	saltLen       = 16
	nonceLen      = 12
	keyLen        = 32
)

// Envelope is an encrypted backup document: AES-256-GCM over the bundle
// JSON, key derived from the password with PBKDF2-SHA256. Salt and IV are
// hex; the ciphertext is base64.
type Envelope struct {
	Encrypted bool   `json:"encrypted"`
	Salt      string `json:"salt"`
	IV        string `json:"iv"`
	Data      string `json:"data"`
}

// Encrypt seals a bundle under a password.
func Encrypt(bundle Bundle, password string) (*Envelope, error) {
	plaintext, err := bundle.Marshal()
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("export: failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("export: failed to generate nonce: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Envelope{
		Encrypted: true,
		Salt:      hex.EncodeToString(salt),
		IV:        hex.EncodeToString(nonce),
		Data:      base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens an envelope with a password and validates the recovered
// bundle. A wrong password fails authentication and returns an error.
func Decrypt(env Envelope, password string) (*Bundle, error) {
	salt, err := hex.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("export: invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("export: invalid iv: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("export: invalid ciphertext: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("export: decryption failed (wrong password or corrupt backup): %w", err)
	}
	return Parse(plaintext)
}

// ParseEnvelope reads a raw document as an encryption envelope.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("export: not a valid backup document: %w", err)
	}
	if !env.Encrypted {
		return nil, fmt.Errorf("export: document is not encrypted")
	}
	return &env, nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("export: failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("export: failed to init aead: %w", err)
	}
	return aead, nil
}
