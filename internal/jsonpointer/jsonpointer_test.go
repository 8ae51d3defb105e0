package jsonpointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetReplacesNestedField(t *testing.T) {
	doc := []byte(`{"phc":{"base_url":"https://old.example","storage":{"type":"memory"}}}`)

	out, err := Set(doc, "/phc/base_url", []byte(`"https://new.example"`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"phc":{"base_url":"https://new.example","storage":{"type":"memory"}}}`, string(out))
}

func TestSetReplacesArrayElement(t *testing.T) {
	doc := []byte(`{"servers":["a","b","c"]}`)

	out, err := Set(doc, "/servers/1", []byte(`"B"`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"servers":["a","B","c"]}`, string(out))
}

func TestSetRejectsOutOfRangeIndex(t *testing.T) {
	doc := []byte(`{"servers":["a"]}`)

	_, err := Set(doc, "/servers/5", []byte(`"x"`))
	assert.Error(t, err)
}

func TestSetUnescapesTokens(t *testing.T) {
	doc := []byte(`{"a/b":{"c~d":1}}`)

	out, err := Set(doc, "/a~1b/c~0d", []byte(`2`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a/b":{"c~d":2}}`, string(out))
}

func TestSetWholeDocument(t *testing.T) {
	out, err := Set([]byte(`{"a":1}`), "", []byte(`{"b":2}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(out))
}
