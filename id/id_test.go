package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDsAreUniqueAndPrefixed(t *testing.T) {
	u1, u2 := NewUserID(), NewUserID()
	require.NotEqual(t, u1, u2)
	require.Contains(t, string(u1), "u_")

	h := NewHubID()
	require.Contains(t, string(h), "h_")

	a := NewAttrID()
	require.Contains(t, string(a), "a_")

	s := NewSessionID()
	require.Contains(t, string(s), "s_")
}

func TestDigestConstellationDeterministic(t *testing.T) {
	type fields struct {
		PHCURL string `json:"phc_url"`
		TURL   string `json:"t_url"`
	}

	f := fields{PHCURL: "https://phc.example", TURL: "https://t.example"}

	id1, err := DigestConstellation(f)
	require.NoError(t, err)
	id2, err := DigestConstellation(f)
	require.NoError(t, err)

	require.Equal(t, id1, id2)
	require.Len(t, string(id1), 64)
}

func TestDigestConstellationDiffersOnDifferentInput(t *testing.T) {
	type fields struct {
		PHCURL string `json:"phc_url"`
	}

	id1, err := DigestConstellation(fields{PHCURL: "a"})
	require.NoError(t, err)
	id2, err := DigestConstellation(fields{PHCURL: "b"})
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
}
