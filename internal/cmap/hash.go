package cmap

const prime32 = 16777619

// Fnv32 returns a 32-bit FNV-1 hash of a string.
// The implementation is copied from OneOfOne/cmap/hashers.
func Fnv32(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash *= prime32
		hash ^= uint32(s[i])
	}
	return hash
}

// Fnv32s returns a 32-bit FNV-1 hash of a series of strings.
// Also based on OneOfOne/cmap/hashers.
func Fnv32s(s ...string) uint32 {
	hash := uint32(2166136261)
	for _, str := range s {
		for i := 0; i < len(str); i++ {
			hash *= prime32
			hash ^= uint32(str[i])
		}
	}
	return hash
}
