package envelope

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// SealingKey is a symmetric key used to produce and open Sealed envelopes.
// A single key can be reused across purposes because the purpose label is
// mixed into both the derived AEAD key and the authenticated data.
type SealingKey struct {
	secret []byte
}

// NewSealingKey wraps raw key material (of any length; it is run through
// HKDF before use) as a SealingKey.
func NewSealingKey(secret []byte) SealingKey {
	out := make([]byte, len(secret))
	copy(out, secret)
	return SealingKey{secret: out}
}

// Bytes returns the raw key material wrapped by k, for transport over an
// already-authenticated channel (e.g. alongside a freshly issued ticket).
// Callers must not log or persist this value.
func (k SealingKey) Bytes() []byte {
	out := make([]byte, len(k.secret))
	copy(out, k.secret)
	return out
}

// Sealed is ciphertext produced by symmetrically encrypting T under a
// SealingKey and a purpose label. The label both derives the encryption
// key and is mixed into the AEAD's associated data, so a Sealed envelope
// produced for one purpose cannot be opened as belonging to another, even
// with the same key.
type Sealed[T any] struct {
	purpose string
	nonce   []byte
	ct      []byte
}

// Seal encrypts message under key, binding it to purpose.
func Seal[T any](key SealingKey, purpose string, message T) (Sealed[T], error) {
	plaintext, err := json.Marshal(message)
	if err != nil {
		return Sealed[T]{}, fmt.Errorf("envelope: encode plaintext: %w", err)
	}

	aead, err := aeadFor(key, purpose)
	if err != nil {
		return Sealed[T]{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed[T]{}, fmt.Errorf("envelope: read nonce: %w", err)
	}

	ct := aead.Seal(nil, nonce, plaintext, []byte(purpose))
	return Sealed[T]{purpose: purpose, nonce: nonce, ct: ct}, nil
}

// Open decrypts s under key, checking that the purpose used at Seal time
// matches the purpose given here.
func (s Sealed[T]) Open(key SealingKey, purpose string) (T, error) {
	var zero T
	if s.purpose != purpose {
		return zero, fmt.Errorf("envelope: purpose mismatch: sealed for %q, opened as %q", s.purpose, purpose)
	}

	aead, err := aeadFor(key, purpose)
	if err != nil {
		return zero, err
	}

	plaintext, err := aead.Open(nil, s.nonce, s.ct, []byte(purpose))
	if err != nil {
		return zero, fmt.Errorf("envelope: decryption failed: %w", err)
	}

	var out T
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return zero, fmt.Errorf("envelope: decode plaintext: %w", err)
	}
	return out, nil
}

// Bytes returns the wire encoding of s: purpose length-prefixed, then
// nonce, then ciphertext.
func (s Sealed[T]) Bytes() []byte {
	out := make([]byte, 0, 2+len(s.purpose)+len(s.nonce)+len(s.ct))
	plen := uint16(len(s.purpose))
	out = append(out, byte(plen>>8), byte(plen))
	out = append(out, s.purpose...)
	out = append(out, s.nonce...)
	out = append(out, s.ct...)
	return out
}

// SealedFromBytes parses the wire encoding produced by Bytes.
func SealedFromBytes[T any](data []byte) (Sealed[T], error) {
	if len(data) < 2 {
		return Sealed[T]{}, fmt.Errorf("envelope: sealed payload too short")
	}
	plen := int(data[0])<<8 | int(data[1])
	data = data[2:]
	if len(data) < plen+chacha20poly1305.NonceSize {
		return Sealed[T]{}, fmt.Errorf("envelope: sealed payload too short")
	}
	purpose := string(data[:plen])
	rest := data[plen:]
	nonce := rest[:chacha20poly1305.NonceSize]
	ct := rest[chacha20poly1305.NonceSize:]

	out := make([]byte, len(nonce))
	copy(out, nonce)
	ctCopy := make([]byte, len(ct))
	copy(ctCopy, ct)

	return Sealed[T]{purpose: purpose, nonce: out, ct: ctCopy}, nil
}

func aeadFor(key SealingKey, purpose string) (cipher.AEAD, error) {
	derived := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, key.secret, nil, []byte(purpose))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("envelope: derive key: %w", err)
	}
	return chacha20poly1305.New(derived)
}
