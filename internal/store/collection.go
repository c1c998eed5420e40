package store

// Record is anything stored in a Collection.
type Record interface {
	RecordID() int64
}

// Collection is an ordered list of records with unique identifiers.
// It is not safe for concurrent use; service.State serialises access.
type Collection[T Record] struct {
	items []T
}

func NewCollection[T Record](items []T) *Collection[T] {
	c := &Collection[T]{items: make([]T, 0, len(items))}
	c.items = append(c.items, items...)
	return c
}

// All returns a copy of the records in insertion order.
func (c *Collection[T]) All() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

func (c *Collection[T]) Find(id int64) (T, bool) {
	return c.FindFunc(func(rec T) bool { return rec.RecordID() == id })
}

// FindFunc returns the first record matching pred.
func (c *Collection[T]) FindFunc(pred func(T) bool) (T, bool) {
	for _, rec := range c.items {
		if pred(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Filter(pred func(T) bool) []T {
	var out []T
	for _, rec := range c.items {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (c *Collection[T]) Append(rec T) {
	c.items = append(c.items, rec)
}

// Replace swaps the record with the same identifier in place.
func (c *Collection[T]) Replace(rec T) bool {
	for i := range c.items {
		if c.items[i].RecordID() == rec.RecordID() {
			c.items[i] = rec
			return true
		}
	}
	return false
}

func (c *Collection[T]) Remove(id int64) bool {
	return c.RemoveFunc(func(rec T) bool { return rec.RecordID() == id }) > 0
}

// RemoveFunc drops every record matching pred and reports how many went.
func (c *Collection[T]) RemoveFunc(pred func(T) bool) int {
	kept := c.items[:0]
	removed := 0
	for _, rec := range c.items {
		if pred(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}

func (c *Collection[T]) MaxID() int64 {
	var maxID int64
	for _, rec := range c.items {
		if id := rec.RecordID(); id > maxID {
			maxID = id
		}
	}
	return maxID
}
