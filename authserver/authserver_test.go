package authserver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/server"
	"github.com/stretchr/testify/require"
)

// stubSource is a minimal attr.Source used to exercise authstart/complete
// without depending on a real Yivi server.
type stubSource struct {
	disclosed map[string]string // sourceAttrID -> value
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) BuildDisclosureRequest(ctx context.Context, types []attr.TypeInfo) (attr.DisclosureRequest, error) {
	return attr.DisclosureRequest{SignedJWT: "stub-jwt", RequestorURL: "https://yivi.example"}, nil
}

func (s *stubSource) ValidateSessionResult(ctx context.Context, proof []byte, types []attr.TypeInfo) (map[string]string, error) {
	return s.disclosed, nil
}

func newTestServer(t *testing.T) (*Server, ed25519.PrivateKey) {
	t.Helper()

	vk, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	app := server.NewApp(logger.NewDefaultLogger())
	app.EnterUpAndRunning(&server.RunningState{
		SigningKey: envelope.NewSigningKey(sk),
	})
	_ = vk

	return &Server{
		App:             app,
		Log:             logger.NewDefaultLogger(),
		AuthStateSecret: []byte("auth-state-secret"),
		AttrKeySecret:   []byte("attr-key-secret"),
		Catalogue: []attr.TypeInfo{
			{AttrTypeID: "email", Source: "stub", SourceAttrID: "irma-demo.email.email", Identifying: true},
			{AttrTypeID: "over18", Source: "stub", SourceAttrID: "irma-demo.age.over18", Bannable: true},
		},
		Sources: attr.Registry{
			"stub": &stubSource{disclosed: map[string]string{
				"irma-demo.email.email": "alice@example.com",
			}},
		},
	}, sk
}

func TestWelcomeReturnsCatalogue(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.Welcome(context.Background())
	require.Len(t, resp.Catalogue, 2)
}

func TestAuthStartRejectsUnknownSource(t *testing.T) {
	s, _ := newTestServer(t)
	_, aerr := s.AuthStart(context.Background(), AuthStartReq{Source: "nope", Handles: map[string]string{"h": "email"}})
	require.NotNil(t, aerr)
	require.Equal(t, apierr.BadRequest, aerr.Code)
}

func TestAuthStartRejectsUnknownAttrType(t *testing.T) {
	s, _ := newTestServer(t)
	_, aerr := s.AuthStart(context.Background(), AuthStartReq{Source: "stub", Handles: map[string]string{"h": "nope"}})
	require.NotNil(t, aerr)
}

func TestAuthStartAndCompleteRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	startResp, aerr := s.AuthStart(context.Background(), AuthStartReq{
		Source:  "stub",
		Handles: map[string]string{"my_email": "email"},
	})
	require.Nil(t, aerr)
	require.NotEmpty(t, startResp.State)

	completeResp, aerr := s.AuthComplete(context.Background(), AuthCompleteReq{
		Proof: []byte("proof-bytes"),
		State: startResp.State,
	})
	require.Nil(t, aerr)
	require.Contains(t, completeResp.Attrs, "my_email")

	signed := completeResp.Attrs["my_email"]
	snap := s.App.Snapshot()
	a, err := envelope.ParseSigned[attr.Attr](signed).Open(snap.SigningKey.VerifyingKey())
	require.NoError(t, err)
	require.Equal(t, "email", a.AttrTypeID)
	require.Equal(t, "alice@example.com", a.Value)
	require.True(t, a.Identifying)
}

func TestAuthCompleteRejectsExpiredState(t *testing.T) {
	s, _ := newTestServer(t)
	s.AuthStateValidity = time.Millisecond

	startResp, aerr := s.AuthStart(context.Background(), AuthStartReq{
		Source:  "stub",
		Handles: map[string]string{"my_email": "email"},
	})
	require.Nil(t, aerr)

	time.Sleep(5 * time.Millisecond)
	_, aerr = s.AuthComplete(context.Background(), AuthCompleteReq{Proof: []byte("p"), State: startResp.State})
	require.NotNil(t, aerr)
}

func TestAttrKeysOnlyAcceptsIdentifyingAttrs(t *testing.T) {
	s, _ := newTestServer(t)
	snap := s.App.Snapshot()

	nonIdentifying := attr.Attr{AttrTypeID: "over18", Value: "true", Bannable: true, Identifying: false}
	signed, err := envelope.NewSigned(snap.SigningKey, nonIdentifying, time.Hour)
	require.NoError(t, err)

	_, aerr := s.AttrKeys(context.Background(), AttrKeysReq{SignedAttr: signed.String()})
	require.NotNil(t, aerr)
}

func TestAttrKeysDerivesStableCurrentKey(t *testing.T) {
	s, _ := newTestServer(t)
	snap := s.App.Snapshot()

	a := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}
	signed, err := envelope.NewSigned(snap.SigningKey, a, time.Hour)
	require.NoError(t, err)

	resp1, aerr := s.AttrKeys(context.Background(), AttrKeysReq{SignedAttr: signed.String()})
	require.Nil(t, aerr)
	resp2, aerr := s.AttrKeys(context.Background(), AttrKeysReq{SignedAttr: signed.String()})
	require.Nil(t, aerr)

	require.Equal(t, resp1.Current, resp2.Current)
	require.Len(t, resp1.Current, attrKeySize)
}

func TestAttrKeysReturnsPrevWhenRequested(t *testing.T) {
	s, _ := newTestServer(t)
	snap := s.App.Snapshot()

	a := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}
	signed, err := envelope.NewSigned(snap.SigningKey, a, time.Hour)
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	resp, aerr := s.AttrKeys(context.Background(), AttrKeysReq{SignedAttr: signed.String(), PrevTimestamp: &past})
	require.Nil(t, aerr)
	require.NotEmpty(t, resp.Prev)
	require.NotEqual(t, resp.Current, resp.Prev)
}

func TestChainedSessionRegisterDiscloseRelease(t *testing.T) {
	c := NewChainedSessionController()
	c.Register("sess-1", time.Minute)

	_, ok := c.Release("sess-1")
	require.False(t, ok, "not yet disclosed")

	c.MarkDisclosed("sess-1", []byte("result"))
	result, ok := c.Release("sess-1")
	require.True(t, ok)
	require.Equal(t, []byte("result"), result)

	_, ok = c.Release("sess-1")
	require.False(t, ok, "already released")
}

func TestChainedSessionExpires(t *testing.T) {
	c := NewChainedSessionController()
	c.Register("sess-1", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	c.MarkDisclosed("sess-1", []byte("result"))
	_, ok := c.Release("sess-1")
	require.False(t, ok)
}

func TestNilChainedSessionControllerIsNoOp(t *testing.T) {
	var c *ChainedSessionController
	c.Register("s", time.Minute)
	c.MarkDisclosed("s", []byte("x"))
	_, ok := c.Release("s")
	require.False(t, ok)
	c.Sweep()
}
