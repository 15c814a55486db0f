// Package aead encrypts certificate documents with AES-256-GCM.
//
// A stored artifact is the 12-byte nonce followed by the GCM ciphertext,
// which carries its 16-byte tag at the end. Keys are generated per document
// and travel only as hex inside a shareable link.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/Kizaaaa/certichain/core"
)

const (
	// KeySize is the AES-256 key width in bytes
	KeySize = 32
	// NonceSize is the GCM standard nonce width in bytes
	NonceSize = 12
	// TagSize is the GCM authentication tag width in bytes
	TagSize = 16
)

// Key is a 256-bit document key
type Key [KeySize]byte

// Nonce is a 96-bit per-encryption value
type Nonce [NonceSize]byte

// Material is the key and nonce used to produce one artifact
type Material struct {
	Key   Key
	Nonce Nonce
}

// Cipher is a stateless AES-256-GCM implementation. The zero value reads
// randomness from crypto/rand.
type Cipher struct {
	rand io.Reader
}

// New returns a Cipher backed by crypto/rand
func New() *Cipher {
	return &Cipher{rand: rand.Reader}
}

func (c *Cipher) random() io.Reader {
	if c == nil || c.rand == nil {
		return rand.Reader
	}
	return c.rand
}

// GenerateKey returns a fresh random key
func (c *Cipher) GenerateKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(c.random(), k[:]); err != nil {
		return Key{}, fmt.Errorf("%w: generate key: %v", core.ErrCrypto, err)
	}
	return k, nil
}

// Encrypt seals plaintext under key with a fresh random nonce
func (c *Cipher) Encrypt(key Key, plaintext []byte) (Nonce, []byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Nonce{}, nil, err
	}
	var nonce Nonce
	if _, err := io.ReadFull(c.random(), nonce[:]); err != nil {
		return Nonce{}, nil, fmt.Errorf("%w: generate nonce: %v", core.ErrCrypto, err)
	}
	return nonce, gcm.Seal(nil, nonce[:], plaintext, nil), nil
}

// Decrypt opens ciphertext. Any mismatch of key, nonce or ciphertext yields
// core.ErrDecrypt and no plaintext.
func (c *Cipher) Decrypt(key Key, nonce Nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, core.ErrDecrypt
	}
	return plaintext, nil
}

// Seal generates a key, encrypts plaintext and serializes the artifact
func (c *Cipher) Seal(plaintext []byte) (Material, []byte, error) {
	key, err := c.GenerateKey()
	if err != nil {
		return Material{}, nil, err
	}
	nonce, ciphertext, err := c.Encrypt(key, plaintext)
	if err != nil {
		return Material{}, nil, err
	}
	return Material{Key: key, Nonce: nonce}, SerializeArtifact(nonce, ciphertext), nil
}

// Open parses an artifact and decrypts it with the hex key from a link
func (c *Cipher) Open(keyHex string, artifact []byte) ([]byte, error) {
	nonce, ciphertext, err := ParseArtifact(artifact)
	if err != nil {
		return nil, err
	}
	key, err := KeyFromHex(keyHex)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(key, nonce, ciphertext)
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCrypto, err)
	}
	return gcm, nil
}

// SerializeArtifact lays out nonce || ciphertext
func SerializeArtifact(nonce Nonce, ciphertext []byte) []byte {
	out := make([]byte, 0, NonceSize+len(ciphertext))
	out = append(out, nonce[:]...)
	return append(out, ciphertext...)
}

// ParseArtifact splits an artifact at byte offset 12
func ParseArtifact(artifact []byte) (Nonce, []byte, error) {
	var nonce Nonce
	if len(artifact) < NonceSize {
		return nonce, nil, core.ErrShortArtifact
	}
	copy(nonce[:], artifact[:NonceSize])
	return nonce, artifact[NonceSize:], nil
}

// KeyToHex encodes a key as lowercase hex
func KeyToHex(k Key) string {
	return hex.EncodeToString(k[:])
}

// KeyFromHex decodes a hex key. Malformed hex is a format error, a
// well-formed value of the wrong width is a crypto error.
func KeyFromHex(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("%w: key: %v", core.ErrInvalidHex, err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", core.ErrInvalidKey, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}
