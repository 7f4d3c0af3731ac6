package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ipIterations is the work factor applied when hashing client IPs for storage.
const ipIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// ShortHash returns the first 12 hex characters of SHA256(input). It is used
// to correlate log lines without writing the raw value.
func ShortHash(input string) string {
	return SHA256Hex(input)[:12]
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
// Zero iterations returns the hex encoding of the input bytes.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt. Ratings store only this value.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, ipIterations)
}
