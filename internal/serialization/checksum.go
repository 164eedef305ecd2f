package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum compares data against a stored hex checksum.
func verifyChecksum(data []byte, stored string) error {
	if Checksum(data) != stored {
		return ErrChecksumMismatch
	}
	return nil
}
