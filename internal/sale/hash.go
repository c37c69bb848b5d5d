package sale

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainIntent separates intent fingerprints from any other hash the
// application may compute over similar bytes.
const DomainIntent = "kassir/intent/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content hash of the intent's sale payload.
//
// It is stored next to the intent and shown in diagnostics so an operator
// can spot the same sale enqueued twice. It plays no part in the sync
// protocol; LocalID is the only identity.
func Fingerprint(in Intent) (string, error) {
	data, err := MarshalCanonical(payloadValue(in))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainIntent, data), nil
}
