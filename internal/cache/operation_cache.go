// Package cache holds the gateway's request-scoped caching collaborators:
// the prepared-operation cache and the trusted document/persisted query
// stores consulted before an operation is prepared at all.
package cache

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hanpama/gatewaycore/internal/operation"
)

// OperationCache memoizes operation.Prepared values under an explicit key,
// so a repeated request for an unchanged schema build, document, and
// variable set skips parsing, validation, and binding entirely. Eviction is
// a fixed-size LRU.
//
// The key is NOT operation.Prepared.Fingerprint on its own: the binder
// resolves variable references and evaluates @skip/@include against the
// caller's variables while building Prepared.Selection (internal/operation's
// bind.go), so two requests for the same document with different variables
// produce different Prepared values. Key folds a hash of the variables in
// alongside Fingerprint so the cache never serves one caller's bound
// selection to another with different variables.
type OperationCache struct {
	cache *lru.Cache[uint64, *operation.Prepared]
}

// NewOperationCache builds an OperationCache holding up to size entries.
func NewOperationCache(size int) (*OperationCache, error) {
	c, err := lru.New[uint64, *operation.Prepared](size)
	if err != nil {
		return nil, err
	}
	return &OperationCache{cache: c}, nil
}

// Key combines an operation's Fingerprint with its variable values into one
// cache key.
func Key(fingerprint uint64, variables map[string]any) uint64 {
	h := xxhash.New()
	var buf [8]byte
	putUint64(buf[:], fingerprint)
	_, _ = h.Write(buf[:])
	hashVariables(h, variables)
	return h.Sum64()
}

// Get returns the cached Prepared for key, if present.
func (c *OperationCache) Get(key uint64) (*operation.Prepared, bool) {
	return c.cache.Get(key)
}

// Put stores p under key.
func (c *OperationCache) Put(key uint64, p *operation.Prepared) {
	c.cache.Add(key, p)
}

// Len reports the number of entries currently cached.
func (c *OperationCache) Len() int { return c.cache.Len() }

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// hashVariables writes a deterministic encoding of variables into h: sorted
// by key, each entry as "name=value;" with value rendered through a type
// switch that tags its kind ("s:" strings, "b:" booleans, nested maps and
// lists recursively, "n:" plus %v for anything else), so a string never
// collides with a number of the same text (e.g. the string "1" vs the int
// 1). Numbers of different Go types that print alike (int 1 and float64 1)
// encode the same.
func hashVariables(h *xxhash.Digest, variables map[string]any) {
	if len(variables) == 0 {
		return
	}
	names := make([]string, 0, len(variables))
	for k := range variables {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = h.WriteString(name)
		_, _ = h.WriteString("=")
		writeValue(h, variables[name])
		_, _ = h.WriteString(";")
	}
}

func writeValue(h *xxhash.Digest, v any) {
	switch val := v.(type) {
	case nil:
		_, _ = h.WriteString("null")
	case string:
		_, _ = h.WriteString("s:")
		_, _ = h.WriteString(val)
	case bool:
		if val {
			_, _ = h.WriteString("b:true")
		} else {
			_, _ = h.WriteString("b:false")
		}
	case map[string]any:
		_, _ = h.WriteString("{")
		hashVariables(h, val)
		_, _ = h.WriteString("}")
	case []any:
		_, _ = h.WriteString("[")
		for _, item := range val {
			writeValue(h, item)
			_, _ = h.WriteString(",")
		}
		_, _ = h.WriteString("]")
	default:
		_, _ = h.WriteString("n:")
		_, _ = h.WriteString(fmt.Sprintf("%v", val))
	}
}
