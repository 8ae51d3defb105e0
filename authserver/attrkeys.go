package authserver

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"golang.org/x/crypto/hkdf"
)

const defaultAttrKeyRotationPeriod = 24 * time.Hour
const attrKeySize = 32

// AttrKeys implements POST /.ph/auth/attr-keys: given a Signed<Attr>
// this AS itself issued, returns the current HKDF-derived per-attribute
// symmetric key, and optionally the key for an earlier rotation period so
// a client can decrypt data it previously encrypted under it.
func (s *Server) AttrKeys(ctx context.Context, req AttrKeysReq) (*AttrKeysResp, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}

	a, err := envelope.ParseSigned[attr.Attr](req.SignedAttr).Open(s.signingKey(snap).VerifyingKey())
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "invalid signed attribute")
	}
	if !a.Identifying {
		return nil, apierr.New(apierr.BadRequest, "only identifying attributes qualify for attr-keys")
	}

	attrID := a.ComputeID(s.AttrKeySecret)

	period := s.AttrKeyRotationPeriod
	if period <= 0 {
		period = defaultAttrKeyRotationPeriod
	}

	resp := &AttrKeysResp{
		Current: s.deriveAttrKey(attrID, time.Now(), period),
	}
	if req.PrevTimestamp != nil {
		resp.Prev = s.deriveAttrKey(attrID, *req.PrevTimestamp, period)
	}
	return resp, nil
}

func (s *Server) deriveAttrKey(attrID id.AttrID, ts time.Time, period time.Duration) []byte {
	epoch := ts.Truncate(period).Unix()
	info := make([]byte, 8)
	binary.BigEndian.PutUint64(info, uint64(epoch))
	info = append([]byte(string(attrID)), info...)

	kdf := hkdf.New(sha256.New, s.AttrKeySecret, nil, info)
	out := make([]byte, attrKeySize)
	if _, err := io.ReadFull(kdf, out); err != nil {
		panic("authserver: hkdf read failed: " + err.Error())
	}
	return out
}
