// Package jsonpointer applies an RFC 6901 JSON Pointer mutation to a
// generic JSON document, the mechanism behind POST /.ph/admin/config.
// Deliberately small: it only needs to support the object/array navigation
// a config document actually uses, not arbitrary RFC 6901 edge cases like
// the "-" array-append token.
package jsonpointer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Set decodes doc as generic JSON, walks pointer, replaces the value at
// that location with value, and returns the re-encoded document. pointer
// must start with "/"; the empty pointer "" replaces the whole document.
func Set(doc []byte, pointer string, value json.RawMessage) ([]byte, error) {
	if pointer == "" {
		return value, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("jsonpointer: pointer must start with '/': %q", pointer)
	}

	var root interface{}
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("jsonpointer: decode document: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil, fmt.Errorf("jsonpointer: decode value: %w", err)
	}

	tokens := strings.Split(pointer[1:], "/")
	for i, t := range tokens {
		tokens[i] = unescapeToken(t)
	}

	newRoot, err := set(root, tokens, decoded)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(newRoot)
	if err != nil {
		return nil, fmt.Errorf("jsonpointer: encode document: %w", err)
	}
	return out, nil
}

func unescapeToken(t string) string {
	t = strings.ReplaceAll(t, "~1", "/")
	t = strings.ReplaceAll(t, "~0", "~")
	return t
}

func set(node interface{}, tokens []string, value interface{}) (interface{}, error) {
	token := tokens[0]
	rest := tokens[1:]

	switch n := node.(type) {
	case map[string]interface{}:
		if len(rest) == 0 {
			n[token] = value
			return n, nil
		}
		child, ok := n[token]
		if !ok {
			child = map[string]interface{}{}
		}
		updated, err := set(child, rest, value)
		if err != nil {
			return nil, err
		}
		n[token] = updated
		return n, nil

	case []interface{}:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("jsonpointer: index %q out of range for array of length %d", token, len(n))
		}
		if len(rest) == 0 {
			n[idx] = value
			return n, nil
		}
		updated, err := set(n[idx], rest, value)
		if err != nil {
			return nil, err
		}
		n[idx] = updated
		return n, nil

	case nil:
		if len(rest) == 0 {
			return map[string]interface{}{token: value}, nil
		}
		child, err := set(map[string]interface{}{}, rest, value)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{token: child}, nil

	default:
		return nil, fmt.Errorf("jsonpointer: cannot descend into a %T at token %q", node, token)
	}
}
