// Package xid generates prefixed, sortable-ish identifiers for ledger rows.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>-<unixnano>-<hex>". The timestamp keeps ids roughly
// ordered by creation; the random suffix guards against same-nanosecond
// collisions. Falls back to the bare timestamp if the system RNG fails.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
