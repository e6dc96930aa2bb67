package util

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// 64 bit FNV-1a parameters
const (
	fnvOffset64 uint64 = 0xcbf29ce484222325
	fnvPrime64  uint64 = 0x100000001b3
)

// HashKey returns the 64 bit FNV-1a hash of a sharding key. Other clients use
// the same function, so one key maps to the same queue index everywhere.
func HashKey(key string) uint64 {
	h := fnvOffset64
	for _, b := range []byte(key) {
		h = (h ^ uint64(b)) * fnvPrime64
	}
	return h
}

// KeyIndex maps key onto [0, n). n must be positive.
func KeyIndex(key string, n int) int {
	return int(HashKey(key) % uint64(n))
}

// IndexOf returns the position of s in list or -1 if it is not present
func IndexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}
	return -1
}
