// Package attr defines PubHubs attributes: small structured credentials
// issued by the authentication server from a disclosure, and PHC's
// per-attribute bookkeeping used to enforce banning and identity rules.
package attr

import (
	"encoding/hex"

	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"golang.org/x/crypto/sha3"
)

// Attr is a single disclosed attribute, as issued by the authentication
// server and presented to PHC.
type Attr struct {
	AttrTypeID  string `json:"attr_type_id"`
	Value       string `json:"value"`
	Bannable    bool   `json:"bannable"`
	Identifying bool   `json:"identifying"`
}

// MessageCode implements envelope.HavingMessageCode: AS hands out Attr
// values wrapped in Signed envelopes under this code, and PHC's
// Enter handler refuses to open a Signed payload under any other code as
// an Attr.
func (Attr) MessageCode() envelope.MessageCode { return envelope.AsAuthComplete }

// ComputeID derives the attr_id PHC uses to key its per-attribute
// bookkeeping: H(secret, attr_type_id, value), for a secret known only to
// PHC. Two identical (attr_type_id, value) pairs always yield the same
// id under the same secret, letting PHC recognize a previously-seen
// attribute without storing the raw value twice.
func (a Attr) ComputeID(phcSecret []byte) id.AttrID {
	h := sha3.New256()
	h.Write(phcSecret)
	h.Write([]byte{0})
	h.Write([]byte(a.AttrTypeID))
	h.Write([]byte{0})
	h.Write([]byte(a.Value))
	return id.AttrID(hex.EncodeToString(h.Sum(nil)))
}
