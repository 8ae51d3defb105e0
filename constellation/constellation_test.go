package constellation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildIsDeterministic(t *testing.T) {
	servers := []ServerParams{
		{Name: PHC, URL: "https://phc.example", JWTKey: "aa", EncKey: "bb"},
		{Name: Transcryptor, URL: "https://t.example", JWTKey: "cc", EncKey: "dd", MasterEncKeyPart: "ee"},
	}

	c1, err := Build("https://phc.example", servers, "ff", time.Unix(0, 0))
	require.NoError(t, err)
	c2, err := Build("https://phc.example", servers, "ff", time.Unix(100, 0))
	require.NoError(t, err)

	// ID depends only on the digest fields, not CreatedAt.
	require.Equal(t, c1.ID, c2.ID)
	require.NotEqual(t, c1.CreatedAt, c2.CreatedAt)
}

func TestBuildDiffersOnServerChange(t *testing.T) {
	a, err := Build("https://phc.example", []ServerParams{{Name: PHC, URL: "https://phc.example"}}, "ff", time.Now())
	require.NoError(t, err)
	b, err := Build("https://phc.example", []ServerParams{{Name: PHC, URL: "https://phc.example", JWTKey: "changed"}}, "ff", time.Now())
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
}

func TestHostAliasesMatches(t *testing.T) {
	aliases := HostAliases{"https://t.internal", "https://t.proxy.example"}

	require.True(t, aliases.Matches("https://t.example", "https://t.example"))
	require.True(t, aliases.Matches("https://t.example", "https://t.proxy.example"))
	require.False(t, aliases.Matches("https://t.example", "https://other.example"))

	var none HostAliases
	require.True(t, none.Matches("https://t.example", "https://t.example"))
	require.False(t, none.Matches("https://t.example", "https://other.example"))
}

func TestNewerThan(t *testing.T) {
	older, _ := Build("u", nil, "k", time.Unix(1, 0))
	newer, _ := Build("u", nil, "k", time.Unix(2, 0))

	require.True(t, newer.NewerThan(older))
	require.False(t, older.NewerThan(newer))
}

// fakeClient implements Client entirely in memory for Converge tests.
type fakeClient struct {
	infos map[string]Info
	runs  map[string]int
}

func (f *fakeClient) Info(_ context.Context, serverURL string) (Info, error) {
	info, ok := f.infos[serverURL]
	if !ok {
		return Info{}, &MismatchError{ServerURL: serverURL, Reason: "unknown server"}
	}
	return info, nil
}

func (f *fakeClient) Run(_ context.Context, serverURL string) (RunOutcome, error) {
	f.runs[serverURL]++
	// Simulate the diverging server catching up after one run.
	if info, ok := f.infos[serverURL]; ok {
		info.Constellation = f.infos["https://phc.example"].Constellation
		f.infos[serverURL] = info
	}
	return Restarting, nil
}

func TestConvergeWhenAllAgree(t *testing.T) {
	want, err := Build("https://phc.example", []ServerParams{
		{Name: PHC, URL: "https://phc.example"},
		{Name: Transcryptor, URL: "https://t.example"},
	}, "combined", time.Now())
	require.NoError(t, err)

	client := &fakeClient{
		infos: map[string]Info{
			"https://phc.example": {Name: PHC, PHCURL: "https://phc.example", Constellation: &want},
			"https://t.example":   {Name: Transcryptor, PHCURL: "https://phc.example", Constellation: &want},
		},
		runs: map[string]int{},
	}

	policy := DefaultBackoffPolicy()
	policy.Initial = time.Millisecond
	policy.MaxAttempts = 3

	got, err := Converge(context.Background(), client, "https://phc.example", policy)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Zero(t, client.runs["https://t.example"])
}

func TestConvergeTriggersRunOnDivergence(t *testing.T) {
	want, err := Build("https://phc.example", []ServerParams{
		{Name: PHC, URL: "https://phc.example"},
		{Name: Transcryptor, URL: "https://t.example"},
	}, "combined", time.Now())
	require.NoError(t, err)

	stale, err := Build("https://phc.example", []ServerParams{
		{Name: PHC, URL: "https://phc.example"},
		{Name: Transcryptor, URL: "https://t.example", JWTKey: "stale"},
	}, "combined", time.Now())
	require.NoError(t, err)

	client := &fakeClient{
		infos: map[string]Info{
			"https://phc.example": {Name: PHC, PHCURL: "https://phc.example", Constellation: &want},
			"https://t.example":   {Name: Transcryptor, PHCURL: "https://phc.example", Constellation: &stale},
		},
		runs: map[string]int{},
	}

	policy := DefaultBackoffPolicy()
	policy.Initial = time.Millisecond
	policy.MaxAttempts = 5

	got, err := Converge(context.Background(), client, "https://phc.example", policy)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, 1, client.runs["https://t.example"])
}
