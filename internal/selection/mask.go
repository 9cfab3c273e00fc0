// Package selection encodes the multi-select state of an attendance keyboard
// as a bit mask. Bit i set means the class at 0-based schedule index i is
// selected. The mask round-trips inside callback payloads and is never
// persisted, so the bot stays stateless between button taps.
package selection

// Toggle flips the bit for a 0-based class index. Self-inverse.
func Toggle(mask int, index int) int {
	return mask ^ (1 << index)
}

// IsSet reports whether the bit for a 0-based class index is set.
func IsSet(mask int, index int) bool {
	return mask&(1<<index) != 0
}

// Indices returns the ascending 1-based indices of set bits, bounded by
// count. Bits beyond count are ignored: the schedule may have shrunk since
// the keyboard carrying the mask was issued.
func Indices(mask int, count int) []int {
	var indices []int
	for i := 0; i < count; i++ {
		if mask&(1<<i) != 0 {
			indices = append(indices, i+1)
		}
	}
	return indices
}
