package envelope

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningKey is an Ed25519 private key used to produce Signed envelopes.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// NewSigningKey wraps an Ed25519 private key as a SigningKey.
func NewSigningKey(priv ed25519.PrivateKey) SigningKey {
	return SigningKey{priv: priv}
}

// VerifyingKey returns the public half of sk.
func (sk SigningKey) VerifyingKey() VerifyingKey {
	pub, ok := sk.priv.Public().(ed25519.PublicKey)
	if !ok {
		panic("envelope: ed25519 private key produced a non-ed25519 public key")
	}
	return VerifyingKey{pub: pub}
}

// VerifyingKey is the Ed25519 public key counterpart used to open Signed
// envelopes.
type VerifyingKey struct {
	pub ed25519.PublicKey
}

// NewVerifyingKey wraps an Ed25519 public key as a VerifyingKey.
func NewVerifyingKey(pub ed25519.PublicKey) VerifyingKey {
	return VerifyingKey{pub: pub}
}

// ToHex returns the hex encoding of the raw Ed25519 public key, the form
// every constellation.ServerParams.JWTKey field carries on the wire.
func (vk VerifyingKey) ToHex() string {
	return hex.EncodeToString(vk.pub)
}

// VerifyingKeyFromHex decodes a hex-encoded Ed25519 public key.
func VerifyingKeyFromHex(hexstr string) (VerifyingKey, error) {
	raw, err := hex.DecodeString(hexstr)
	if err != nil {
		return VerifyingKey{}, fmt.Errorf("envelope: decode verifying key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return VerifyingKey{}, fmt.Errorf("envelope: verifying key has wrong length %d", len(raw))
	}
	return VerifyingKey{pub: ed25519.PublicKey(raw)}, nil
}

// Signed is a JWT carrying T's fields as claims, plus a message code claim
// that pins which type this signature was produced for. A Signed[T] can
// never be opened as Signed[U] for some other U, even if U and T happen to
// have the same JSON shape, because their message codes differ.
type Signed[T HavingMessageCode] struct {
	raw string
}

// NewSigned signs message with sk, valid from now until validFor has
// elapsed.
func NewSigned[T HavingMessageCode](sk SigningKey, message T, validFor time.Duration) (Signed[T], error) {
	fields, err := structToClaims(message)
	if err != nil {
		return Signed[T]{}, fmt.Errorf("envelope: encode claims: %w", err)
	}

	now := time.Now()
	fields["iat"] = jwt.NewNumericDate(now)
	fields["nbf"] = jwt.NewNumericDate(now)
	fields["exp"] = jwt.NewNumericDate(now.Add(validFor))
	fields[messageCodeClaim] = message.MessageCode()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims(fields))
	raw, err := token.SignedString(sk.priv)
	if err != nil {
		return Signed[T]{}, fmt.Errorf("envelope: sign: %w", err)
	}
	return Signed[T]{raw: raw}, nil
}

// Open verifies the signature against vk, checks standard time claims and
// the message code, and decodes the remaining claims into a T.
func (s Signed[T]) Open(vk VerifyingKey) (T, error) {
	var zero T

	token, err := jwt.Parse(s.raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return vk.pub, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return zero, fmt.Errorf("envelope: invalid signature: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return zero, fmt.Errorf("envelope: invalid signature")
	}

	return claimsToMessage[T](claims, zero.MessageCode())
}

// String returns the compact JWT encoding, suitable for transport.
func (s Signed[T]) String() string { return s.raw }

// ParseSigned wraps a raw JWT string as a Signed[T], without inspecting it.
// Call Open to verify and decode it.
func ParseSigned[T HavingMessageCode](raw string) Signed[T] {
	return Signed[T]{raw: raw}
}

func claimsToMessage[T HavingMessageCode](claims jwt.MapClaims, want MessageCode) (T, error) {
	var zero T

	gotRaw, present := claims[messageCodeClaim]
	if !present {
		return zero, fmt.Errorf("envelope: missing %s claim", messageCodeClaim)
	}
	got, err := toMessageCode(gotRaw)
	if err != nil {
		return zero, fmt.Errorf("envelope: %w", err)
	}
	if got != want {
		return zero, fmt.Errorf("envelope: expected message code %s, got %s", want, got)
	}

	delete(claims, messageCodeClaim)
	delete(claims, "iat")
	delete(claims, "nbf")
	delete(claims, "exp")

	data, err := json.Marshal(claims)
	if err != nil {
		return zero, fmt.Errorf("envelope: re-encode claims: %w", err)
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("envelope: decode into %T: %w", out, err)
	}
	return out, nil
}

func toMessageCode(v interface{}) (MessageCode, error) {
	switch t := v.(type) {
	case float64:
		return MessageCode(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s claim: %w", messageCodeClaim, err)
		}
		return MessageCode(n), nil
	default:
		return 0, fmt.Errorf("invalid %s claim type %T", messageCodeClaim, v)
	}
}

func structToClaims(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
