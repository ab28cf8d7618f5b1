// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"credit-signal-lab/internal/domain"
)

// ConfigurationID computes a deterministic configuration id using SHA256.
// Formula: SHA256(signal_id|lead_time|threshold_id|family)
// Returns hex-encoded hash (64 characters).
func ConfigurationID(cfg domain.Configuration) string {
	data := fmt.Sprintf("%s|%d|%s|%s",
		cfg.SignalID,
		cfg.LeadTime,
		cfg.ThresholdID,
		string(cfg.Family),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortID returns the first 12 characters of an id for display.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
