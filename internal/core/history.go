package core

import "github.com/gammazero/deque"

// history is a fixed-capacity FIFO log. Once full, each push evicts the
// oldest entry; reads never reorder entries.
type history[T any] struct {
	items deque.Deque[T]
	limit int
}

func newHistory[T any](limit int) *history[T] {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &history[T]{limit: limit}
}

func (h *history[T]) push(v T) {
	h.items.PushBack(v)
	for h.items.Len() > h.limit {
		h.items.PopFront()
	}
}

func (h *history[T]) len() int {
	return h.items.Len()
}

// last returns up to n most recent entries, oldest first. n <= 0 means all.
func (h *history[T]) last(n int) []T {
	size := h.items.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]T, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, h.items.At(i))
	}
	return out
}

func (h *history[T]) newest() (T, bool) {
	if h.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return h.items.Back(), true
}

func (h *history[T]) each(fn func(T) bool) {
	for i := 0; i < h.items.Len(); i++ {
		if !fn(h.items.At(i)) {
			return
		}
	}
}
