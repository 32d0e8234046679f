package retrieval

// ArrangeUShape reorders a relevance-sorted sequence so the most relevant
// items sit at both ends and the least relevant in the middle. Long-context
// generators attend most strongly to the start and end of their input;
// burying the best material in the middle wastes it.
//
// Even indexes go to a front buffer in order; odd indexes are pushed onto
// the front of a back buffer, which ends up reversed so the 2nd-best item is
// last overall. [1,2,3,4,5,6] → [1,3,5,6,4,2]. Sequences of length <= 2 are
// returned unchanged.
func ArrangeUShape[T any](items []T) []T {
	if len(items) <= 2 {
		return items
	}
	front := make([]T, 0, (len(items)+1)/2)
	back := make([]T, 0, len(items)/2)
	for i, it := range items {
		if i%2 == 0 {
			front = append(front, it)
		} else {
			back = append(back, it)
		}
	}
	out := make([]T, 0, len(items))
	out = append(out, front...)
	for i := len(back) - 1; i >= 0; i-- {
		out = append(out, back[i])
	}
	return out
}
