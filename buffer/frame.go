package buffer

import (
	"math/big"

	"github.com/jobala/tuplestore/types"
)

// Entry is a stored tuple together with the hash of its primary key.
type Entry struct {
	Hash  *big.Int
	Tuple types.Tuple
}

func newFrame(entries []Entry) *frame {
	return &frame{entries: entries}
}

func (f *frame) find(hash *big.Int) int {
	for i, e := range f.entries {
		if e.Hash.Cmp(hash) == 0 {
			return i
		}
	}

	return -1
}

func (f *frame) get(hash *big.Int) (types.Tuple, bool) {
	if i := f.find(hash); i >= 0 {
		return f.entries[i].Tuple, true
	}
	return nil, false
}

// insert replaces the tuple stored under hash in place or appends a new entry.
func (f *frame) insert(hash *big.Int, tuple types.Tuple) (types.Tuple, bool) {
	f.dirty = true

	if i := f.find(hash); i >= 0 {
		prev := f.entries[i].Tuple
		f.entries[i].Tuple = tuple
		return prev, true
	}

	f.entries = append(f.entries, Entry{Hash: new(big.Int).Set(hash), Tuple: tuple})
	return nil, false
}

func (f *frame) remove(hash *big.Int) (types.Tuple, bool) {
	i := f.find(hash)
	if i < 0 {
		return nil, false
	}

	f.dirty = true
	prev := f.entries[i].Tuple
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	return prev, true
}

func (f *frame) drain() []Entry {
	f.dirty = true
	res := f.entries
	f.entries = nil
	return res
}

// frame is the materialized content of a page.
type frame struct {
	entries []Entry
	dirty   bool
}
