package attr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeIDDeterministicPerSecret(t *testing.T) {
	secret := []byte("phc-attr-secret")
	a := Attr{AttrTypeID: "email", Value: "a@example.com"}

	id1 := a.ComputeID(secret)
	id2 := a.ComputeID(secret)
	require.Equal(t, id1, id2)

	otherSecret := []byte("different-secret")
	id3 := a.ComputeID(otherSecret)
	require.NotEqual(t, id1, id3)
}

func TestComputeIDDiffersByValue(t *testing.T) {
	secret := []byte("phc-attr-secret")
	a := Attr{AttrTypeID: "email", Value: "a@example.com"}
	b := Attr{AttrTypeID: "email", Value: "b@example.com"}

	require.NotEqual(t, a.ComputeID(secret), b.ComputeID(secret))
}
