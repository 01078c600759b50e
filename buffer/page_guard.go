package buffer

import (
	"math/big"

	"github.com/jobala/tuplestore/types"
)

func newReadHandle(page *Page, frame *frame) *ReadHandle {
	return &ReadHandle{
		PageGuard: PageGuard{
			page:  page,
			frame: frame,
		},
	}
}

func newWriteHandle(page *Page, frame *frame) *WriteHandle {
	return &WriteHandle{
		PageGuard: PageGuard{
			page:  page,
			frame: frame,
		},
	}
}

// Release gives the page back. The last reader out evicts the page.
func (pg *ReadHandle) Release() error {
	if pg == nil || pg.released {
		return nil
	}

	pg.released = true
	return pg.page.releaseShared()
}

// Release writes the page to disk and evicts it.
func (pg *WriteHandle) Release() error {
	if pg == nil || pg.released {
		return nil
	}

	pg.released = true
	return pg.page.releaseExclusive()
}

func (pg *PageGuard) Get(hash *big.Int) (types.Tuple, bool) {
	return pg.contents().get(hash)
}

// Entries returns a copy of the entries in their stored order.
func (pg *PageGuard) Entries() []Entry {
	entries := pg.contents().entries
	res := make([]Entry, len(entries))
	copy(res, entries)
	return res
}

func (pg *PageGuard) Len() int {
	return len(pg.contents().entries)
}

func (pg *PageGuard) Page() *Page {
	return pg.page
}

// Insert stores the tuple under hash and returns the tuple it replaced, if any.
func (pg *WriteHandle) Insert(hash *big.Int, tuple types.Tuple) (types.Tuple, bool) {
	prev, replaced := pg.contents().insert(hash, tuple)
	if !replaced {
		pg.page.len.Add(1)
	}
	return prev, replaced
}

func (pg *WriteHandle) Remove(hash *big.Int) (types.Tuple, bool) {
	prev, removed := pg.contents().remove(hash)
	if removed {
		pg.page.len.Add(-1)
	}
	return prev, removed
}

// DrainAll empties the page and returns everything it held.
func (pg *WriteHandle) DrainAll() []Entry {
	res := pg.contents().drain()
	pg.page.len.Store(0)
	return res
}

func (pg *PageGuard) contents() *frame {
	if pg.released {
		panic("buffer: use of released page handle")
	}
	return pg.frame
}

type PageGuard struct {
	page     *Page
	frame    *frame
	released bool
}

type ReadHandle struct {
	PageGuard
}

type WriteHandle struct {
	PageGuard
}
