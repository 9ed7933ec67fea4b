package ratelimit

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// keyPrefix namespaces rate limit entries so a shared backend can be
// inspected or flushed without touching other data.
const keyPrefix = "ratelimit:"

// RateKey maps an identity, endpoint and window to a fixed-size storage
// key. Every replica derives the same key for the same client, endpoint
// and window, which is what makes the shared backend count globally.
// Exported so operators can locate a client's entries on the shared
// backend.
func RateKey(identity, endpoint string, window Window) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s:%s", identity, endpoint, window)
	return keyPrefix + strconv.FormatUint(h.Sum64(), 16)
}
