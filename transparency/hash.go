package transparency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashReasoning computes the commitment hash binding a reasoning payload to a
// commit id. The payload is canonicalized through its JSON encoding (struct
// field order is fixed, so the encoding is deterministic) and concatenated
// with the commit id before hashing. The original scheme used a
// non-collision-resistant rolling hash; a cryptographic digest replaces it
// here, which changes commit id hash values but makes the commitment actually
// binding.
func HashReasoning(r any, commitID string) string {
	payload, err := json.Marshal(r)
	if err != nil {
		// Reasoning is a plain value type; encoding can only fail on
		// exotic embedded values, which the ledger never produces.
		payload = []byte("unencodable")
	}
	sum := sha256.Sum256(append(payload, []byte(commitID)...))
	return hex.EncodeToString(sum[:])
}
