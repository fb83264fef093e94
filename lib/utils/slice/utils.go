package slice

// Fill sets every element of the slice (up to its length) to elem.
// The doubling copy lowers to memmove, which beats a plain loop for
// anything bigger than a few elements.
func Fill[T any](slice []T, elem T) {
	l := len(slice)
	if l == 0 {
		return
	}
	slice[0] = elem
	for j := 1; j < l; j *= 2 {
		copy(slice[j:], slice[:j])
	}
}

// Grow ensures the slice has capacity for n more elements.
func Grow[T any](slice []T, n int) []T {
	if cap(slice) >= len(slice)+n {
		return slice
	}
	newSlice := make([]T, len(slice), len(slice)+n)
	copy(newSlice, slice)
	return newSlice
}

// Limit returns the full slice with its capacity clamped to its length,
// so a later append copies instead of writing into the shared backing
// array. Slices handed out by an arena are laid out consecutively, so
// this must be done before giving one to a caller that may append.
func Limit[T any](slice []T) []T {
	l := len(slice)
	return slice[:l:l]
}
