package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateETag derives a weak validator from a document id and its last update.
func GenerateETag(id string, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s-%d", id, updatedAt.UnixNano())))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
