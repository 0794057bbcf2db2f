// Package cfghash computes the deterministic config_hash described in §3:
// the lowercase hex SHA-256 digest of the canonical JSON encoding of an
// accepted config, keys sorted, floats round-trippable. Grounded on the
// pack's run-plan hashing (kubekattle-ktl's ComputeRunPlanHash), generalized
// from "hash one known struct" to "canonicalize then hash any config".
package cfghash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize re-encodes v through an untyped representation so that
// map keys are sorted (encoding/json already sorts map[string]any keys) and
// numeric formatting is stable, regardless of the original struct's field
// order or the caller's JSON key ordering.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cfghash: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("cfghash: unmarshal: %w", err)
	}
	canon, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("cfghash: canonical marshal: %w", err)
	}
	return canon, nil
}

// Hash returns the lowercase hex SHA-256 digest of the canonical JSON form
// of v, and the canonical JSON bytes themselves (the latter is what gets
// written to config.json).
func Hash(v any) (digest string, canonicalJSON []byte, err error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), canon, nil
}
