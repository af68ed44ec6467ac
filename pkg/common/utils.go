// Package common provides the hex-encoding helpers pkg/service and pkg/note
// share for rendering field elements and public keys in logs and wire
// payloads.
package common

import (
	"encoding/hex"
)

// BytesToHex converts bytes to a hex string with 0x prefix.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// ConcatBytes concatenates multiple byte slices.
func ConcatBytes(slices ...[]byte) []byte {
	totalLen := 0
	for _, s := range slices {
		totalLen += len(s)
	}
	result := make([]byte, 0, totalLen)
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}
