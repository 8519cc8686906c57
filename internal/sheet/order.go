package sheet

// ColumnOrder owns the visible sequence of column ids. It is always a
// permutation of the ids it was created with, and the pinned id (if any)
// stays in the last slot.
type ColumnOrder struct {
	initial []string
	ids     []string
	pinned  string
}

// NewColumnOrder creates an order from descriptor order. pinned may be "".
func NewColumnOrder(ids []string, pinned string) *ColumnOrder {
	o := &ColumnOrder{
		initial: append([]string(nil), ids...),
		ids:     append([]string(nil), ids...),
		pinned:  pinned,
	}
	return o
}

// IDs returns a copy of the current order.
func (o *ColumnOrder) IDs() []string {
	return append([]string(nil), o.ids...)
}

// Index returns the position of id, or -1.
func (o *ColumnOrder) Index(id string) int {
	for i, v := range o.ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Reorderable reports whether id may be dragged.
func (o *ColumnOrder) Reorderable(id string) bool {
	return id != o.pinned && o.Index(id) >= 0
}

// Reorder moves activeID into overID's slot, shifting the ids in between by
// one. It reports whether the order changed. The move is skipped when either
// id is unknown, they are equal, or either is the pinned id.
func (o *ColumnOrder) Reorder(activeID, overID string) bool {
	if activeID == overID {
		return false
	}
	if activeID == o.pinned || overID == o.pinned {
		return false
	}
	from, to := o.Index(activeID), o.Index(overID)
	if from < 0 || to < 0 {
		return false
	}
	o.ids = arrayMove(o.ids, from, to)
	return true
}

// MoveLeft swaps id with its left neighbour.
func (o *ColumnOrder) MoveLeft(id string) bool {
	i := o.Index(id)
	if i <= 0 {
		return false
	}
	return o.Reorder(id, o.ids[i-1])
}

// MoveRight swaps id with its right neighbour.
func (o *ColumnOrder) MoveRight(id string) bool {
	i := o.Index(id)
	if i < 0 || i >= len(o.ids)-1 {
		return false
	}
	return o.Reorder(id, o.ids[i+1])
}

// Reset restores descriptor order.
func (o *ColumnOrder) Reset() {
	o.ids = append(o.ids[:0], o.initial...)
}

// arrayMove removes the element at from and reinserts it at to.
func arrayMove(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	moved := ids[from]
	for i, v := range ids {
		if i == from {
			continue
		}
		out = append(out, v)
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}
