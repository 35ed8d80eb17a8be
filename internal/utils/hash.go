package utils

import (
	"hash/fnv"
	"strconv"
)

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// SeedFor offsets base by a stable hash of key in [0, 1000). Process-local
// string hashing would make seeds differ between runs.
func SeedFor(base int64, key string) int64 {
	return base + int64(HashStringToUint64(key)%1000)
}

func SeedForInt(base int64, key int) int64 {
	return SeedFor(base, strconv.Itoa(key))
}

// Pick returns one of options chosen by a stable hash of key.
func Pick(key string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[HashStringToUint64(key)%uint64(len(options))]
}
