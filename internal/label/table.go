package label

// Table is an open-addressed hash table keyed by Label with linear probing.
// It keeps keys in insertion order; the stored value is chosen by the caller
// (a position for index maps, a code for factorizers).
type Table struct {
	slots  []int32 // entry number + 1, 0 marks an empty slot
	hashes []uint64
	keys   []Label
	values []int
	mask   uint64
}

const minTableSize = 8

// NewTable creates a table sized for about sizeHint keys
func NewTable(sizeHint int) *Table {
	size := minTableSize
	for size < sizeHint*2 {
		size <<= 1
	}
	return &Table{
		slots:  make([]int32, size),
		hashes: make([]uint64, 0, sizeHint),
		keys:   make([]Label, 0, sizeHint),
		values: make([]int, 0, sizeHint),
		mask:   uint64(size - 1),
	}
}

// Len returns the number of distinct keys
func (t *Table) Len() int {
	return len(t.keys)
}

// Get returns the value stored for l
func (t *Table) Get(l Label) (int, bool) {
	h := Hash(l)
	for i := h & t.mask; ; i = (i + 1) & t.mask {
		s := t.slots[i]
		if s == 0 {
			return 0, false
		}
		e := int(s - 1)
		if t.hashes[e] == h && Equal(t.keys[e], l) {
			return t.values[e], true
		}
	}
}

// PutIfAbsent stores v for l unless l is already present. It returns the
// value held for l after the call and whether an insert happened.
func (t *Table) PutIfAbsent(l Label, v int) (int, bool) {
	h := Hash(l)
	i := h & t.mask
	for ; ; i = (i + 1) & t.mask {
		s := t.slots[i]
		if s == 0 {
			break
		}
		e := int(s - 1)
		if t.hashes[e] == h && Equal(t.keys[e], l) {
			return t.values[e], false
		}
	}

	t.slots[i] = int32(len(t.keys) + 1)
	t.hashes = append(t.hashes, h)
	t.keys = append(t.keys, l)
	t.values = append(t.values, v)

	if uint64(len(t.keys))*2 > uint64(len(t.slots)) {
		t.grow()
	}
	return v, true
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (t *Table) Keys() []Label {
	return t.keys
}

// Values returns the values in key insertion order. The slice must not be modified.
func (t *Table) Values() []int {
	return t.values
}

func (t *Table) grow() {
	size := len(t.slots) * 2
	t.slots = make([]int32, size)
	t.mask = uint64(size - 1)
	for e, h := range t.hashes {
		i := h & t.mask
		for t.slots[i] != 0 {
			i = (i + 1) & t.mask
		}
		t.slots[i] = int32(e + 1)
	}
}
