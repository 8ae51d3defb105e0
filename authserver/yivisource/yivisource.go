// Package yivisource implements attr.Source for Yivi (IRMA), the
// attribute-based credential scheme PubHubs identity is built on.
package yivisource

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pubhubs/pubhubs-core/attr"
)

// SourceName is the attr.Source/TypeInfo name this package registers
// under.
const SourceName = "yivi"

// Source implements attr.Source against a single Yivi server.
type Source struct {
	// ServerURL is the Yivi server's disclosure-session endpoint.
	ServerURL string
	// RequestorSigningKey signs disclosure-request JWTs for the Yivi
	// server, which authenticates requestors this way rather than via
	// mTLS.
	RequestorSigningKey ed25519.PrivateKey
	// ServerVerifyingKey verifies session-result JWTs the Yivi server
	// returns.
	ServerVerifyingKey ed25519.PublicKey

	// PubhubsCardAttrTypeID is the attr_type_id that denotes the PubHubs
	// card credential; disclosure requests for it get two extra
	// conjuncts pinning registration source and registration date.
	PubhubsCardAttrTypeID string
	// RegistrationSourceAttr and RegistrationDateAttr are the Yivi
	// credential.attribute strings the extra conjuncts disclose.
	RegistrationSourceAttr string
	RegistrationDateAttr   string
}

func (s *Source) Name() string { return SourceName }

// condisconRequest is the Yivi server's disclosure request shape: a
// conjunction of disjunctions of conjunctions of attribute identifiers.
type condisconRequest struct {
	Disclose [][][]string `json:"disclose"`
}

// BuildDisclosureRequest builds a condiscon requiring every requested
// type's source attribute, each as its own single-option disjunction (no
// attribute substitution), plus -- for the PubHubs card -- an extra
// conjunct pinning the card's registration source and date so a card from
// a no-longer-trusted registration can be told apart from a fresh one.
func (s *Source) BuildDisclosureRequest(ctx context.Context, types []attr.TypeInfo) (attr.DisclosureRequest, error) {
	conjunction := make([][][]string, 0, len(types)+2)
	for _, t := range types {
		conjunction = append(conjunction, [][]string{{t.SourceAttrID}})
		if t.AttrTypeID == s.PubhubsCardAttrTypeID {
			if s.RegistrationSourceAttr != "" {
				conjunction = append(conjunction, [][]string{{s.RegistrationSourceAttr}})
			}
			if s.RegistrationDateAttr != "" {
				conjunction = append(conjunction, [][]string{{s.RegistrationDateAttr}})
			}
		}
	}

	req := condisconRequest{Disclose: conjunction}
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(5 * time.Minute)),
		"sprequest": map[string]interface{}{
			"request": req,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.RequestorSigningKey)
	if err != nil {
		return attr.DisclosureRequest{}, fmt.Errorf("yivisource: sign disclosure request: %w", err)
	}

	return attr.DisclosureRequest{
		SignedJWT:    signed,
		RequestorURL: s.ServerURL,
	}, nil
}

// sessionResultClaims is the subset of a Yivi session-result JWT's claims
// this source reads.
type sessionResultClaims struct {
	Status    string                 `json:"status"`
	Disclosed [][]disclosedAttribute `json:"disclosed"`
}

type disclosedAttribute struct {
	ID       string `json:"id"`
	RawValue string `json:"rawvalue"`
	Status   string `json:"status"`
}

const (
	statusDone  = "DONE"
	attrPresent = "PRESENT"
)

// ValidateSessionResult verifies the Yivi session-result JWT in proof and
// extracts exactly the disclosed values matching the requested types:
// status PRESENT, matching attribute-type id per position, no
// extra disclosures beyond what was requested.
func (s *Source) ValidateSessionResult(ctx context.Context, proof []byte, types []attr.TypeInfo) (map[string]string, error) {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t.SourceAttrID] = true
		if t.AttrTypeID == s.PubhubsCardAttrTypeID {
			if s.RegistrationSourceAttr != "" {
				wanted[s.RegistrationSourceAttr] = true
			}
			if s.RegistrationDateAttr != "" {
				wanted[s.RegistrationDateAttr] = true
			}
		}
	}

	token, err := jwt.Parse(string(proof), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return s.ServerVerifyingKey, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return nil, fmt.Errorf("yivisource: invalid session result signature: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("yivisource: invalid session result claims")
	}

	var claims sessionResultClaims
	if err := remarshalClaims(mapClaims, &claims); err != nil {
		return nil, fmt.Errorf("yivisource: decode session result: %w", err)
	}
	if claims.Status != statusDone {
		return nil, fmt.Errorf("yivisource: session not done (status %q)", claims.Status)
	}

	disclosed := make(map[string]string, len(types))
	for _, conjunction := range claims.Disclosed {
		for _, a := range conjunction {
			if a.Status != attrPresent {
				return nil, fmt.Errorf("yivisource: attribute %q not present", a.ID)
			}
			if !wanted[a.ID] {
				return nil, fmt.Errorf("yivisource: unrequested attribute %q disclosed", a.ID)
			}
			if _, seen := disclosed[a.ID]; !seen {
				disclosed[a.ID] = a.RawValue
			}
		}
	}
	return disclosed, nil
}

func remarshalClaims(claims jwt.MapClaims, out interface{}) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
