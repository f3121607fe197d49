package session

import "unicode/utf16"

// Fold computes the classic 32-bit string hash (h = h*31 + c) over UTF-16
// code units, matching what the published site ships to the browser. It is a
// deterrent against casual discovery, not a security boundary: the constant
// it is compared against is visible to anyone reading the client source, and
// that trade-off is deliberate for a single-operator site.
func Fold(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}
