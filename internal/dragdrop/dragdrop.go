// Package dragdrop implements list reordering and transfer for drop events.
//
// A drop either reorders one sequence in place or moves an element from one
// sequence into another. Sequences are identified by the address of the slice
// variable holding them, so two distinct slices with equal contents are still
// different containers.
package dragdrop

// Event describes a completed drop. Previous is the container the item was
// dragged from and Current the container it was dropped into.
type Event[T any] struct {
	Previous      *[]T
	Current       *[]T
	PreviousIndex int
	CurrentIndex  int
}

// SameContainer reports whether the drop happened within a single sequence.
func (ev Event[T]) SameContainer() bool {
	return ev.Previous == ev.Current
}

// Drop applies the event and returns the resulting contents of the destination
// container, which is the canonical post-drop state.
func Drop[T any](ev Event[T]) []T {
	if ev.Current == nil {
		return nil
	}
	if ev.SameContainer() {
		MoveItem(*ev.Current, ev.PreviousIndex, ev.CurrentIndex)
	} else if ev.Previous != nil {
		TransferItem(ev.Previous, ev.Current, ev.PreviousIndex, ev.CurrentIndex)
	}
	return *ev.Current
}

// MoveItem moves the element at from to index to, shifting the elements in
// between by one. Elements outside the range keep their positions. Both
// indexes are clamped to the bounds of s.
func MoveItem[T any](s []T, from, to int) {
	if len(s) == 0 {
		return
	}
	from = clamp(from, len(s)-1)
	to = clamp(to, len(s)-1)
	if from == to {
		return
	}

	item := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = item
}

// TransferItem removes the element at from in src and inserts it at index to
// in dst. Inserting at len(*dst) appends. An empty source is a no-op.
func TransferItem[T any](src, dst *[]T, from, to int) {
	if len(*src) == 0 {
		return
	}
	from = clamp(from, len(*src)-1)
	to = clamp(to, len(*dst))

	item := (*src)[from]
	*src = remove(*src, from)
	*dst = insert(*dst, to, item)
}

// CopyItem inserts a copy of src[from] into dst at index to, leaving src unchanged.
func CopyItem[T any](src []T, dst *[]T, from, to int) {
	if len(src) == 0 {
		return
	}
	from = clamp(from, len(src)-1)
	to = clamp(to, len(*dst))
	*dst = insert(*dst, to, src[from])
}

func remove[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

func insert[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
