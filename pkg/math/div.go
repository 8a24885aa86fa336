package math

func DivRoundUp[T Integer](a, b T) T {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// IsPowerOfTwo reports whether `v` is a positive power of two.
func IsPowerOfTwo[T Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// Log2 returns floor(log2(v)). It panics for non-positive `v`.
func Log2[T Integer](v T) uint8 {
	if v <= 0 {
		panic("math.Log2: non-positive argument")
	}
	var out uint8
	for v > 1 {
		v >>= 1
		out++
	}
	return out
}
