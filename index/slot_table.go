package index

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/buffer"
)

// maxGlobalDepth bounds the slot array at 2^maxGlobalDepth entries.
const maxGlobalDepth = 30

// slotTable is an immutable snapshot of the directory. Splits publish a new
// table instead of editing the current one.
type slotTable struct {
	depth uint
	slots []slot
}

type slot struct {
	page  *buffer.Page
	depth uint
}

// index takes the depth low-order bits of the hash.
func (t *slotTable) index(hash *big.Int) int {
	idx := 0
	for i := 0; i < int(t.depth); i++ {
		idx |= int(hash.Bit(i)) << i
	}
	return idx
}

func (t *slotTable) locate(hash *big.Int) slot {
	return t.slots[t.index(hash)]
}

// grow doubles the table: slot i is duplicated at i + 2^depth.
func (t *slotTable) grow() *slotTable {
	slots := make([]slot, 2*len(t.slots))
	copy(slots, t.slots)
	copy(slots[len(t.slots):], t.slots)

	return &slotTable{depth: t.depth + 1, slots: slots}
}

// split repoints the slots of page whose bit at position localDepth is set to
// sibling and deepens both pages by one bit.
func (t *slotTable) split(page, sibling *buffer.Page, localDepth uint) *slotTable {
	slots := make([]slot, len(t.slots))
	for i, s := range t.slots {
		if s.page == page {
			s.depth = localDepth + 1
			if (i>>localDepth)&1 == 1 {
				s.page = sibling
			}
		}
		slots[i] = s
	}

	return &slotTable{depth: t.depth, slots: slots}
}

func (t *slotTable) localDepth(page *buffer.Page) (uint, bool) {
	for _, s := range t.slots {
		if s.page == page {
			return s.depth, true
		}
	}
	return 0, false
}

// pages returns every distinct page once, in order of first reference.
func (t *slotTable) pages() []*buffer.Page {
	seen := make(map[*buffer.Page]struct{}, len(t.slots))
	res := []*buffer.Page{}
	for _, s := range t.slots {
		if _, ok := seen[s.page]; ok {
			continue
		}
		seen[s.page] = struct{}{}
		res = append(res, s.page)
	}
	return res
}

func (t *slotTable) references(page *buffer.Page) int {
	n := 0
	for _, s := range t.slots {
		if s.page == page {
			n++
		}
	}
	return n
}

// check verifies that every page with local depth l is referenced by exactly
// the 2^(d-l) slots sharing its l low-order bits.
func (t *slotTable) check() error {
	if len(t.slots) != 1<<t.depth {
		return errors.Errorf("directory of depth %d has %d slots", t.depth, len(t.slots))
	}

	first := map[*buffer.Page]int{}
	for i, s := range t.slots {
		if s.page == nil {
			return errors.Errorf("slot %d has no page", i)
		}
		if s.depth > t.depth {
			return errors.Errorf("slot %d has local depth %d above global depth %d", i, s.depth, t.depth)
		}

		j, ok := first[s.page]
		if !ok {
			first[s.page] = i
			continue
		}

		mask := 1<<s.depth - 1
		if t.slots[j].depth != s.depth || j&mask != i&mask {
			return errors.Errorf("slots %d and %d share block %d but not its low-order bits", j, i, s.page.Block())
		}
	}

	for page, i := range first {
		want := 1 << (t.depth - t.slots[i].depth)
		if got := t.references(page); got != want {
			return errors.Errorf("block %d is referenced by %d slots, expected %d", page.Block(), got, want)
		}
	}

	return nil
}
