package index

import (
	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/buffer"
	"github.com/jobala/tuplestore/util"
)

func newIterator(d *Directory, pages []*buffer.Page) *Iterator {
	return &Iterator{
		dir:   d,
		pages: pages,
	}
}

// Next returns the next entry of the scan. Pages are read one at a time and no
// handle is held between calls, so a mutation interleaving with the scan may or
// may not be observed.
func (it *Iterator) Next() (buffer.Entry, bool, error) {
	for it.pos >= len(it.current) {
		if it.next >= len(it.pages) {
			return buffer.Entry{}, false, nil
		}

		entries, err := it.load(it.pages[it.next])
		if err != nil {
			return buffer.Entry{}, false, err
		}
		it.next++
		it.current, it.pos = entries, 0
	}

	e := it.current[it.pos]
	it.pos++
	return e, true, nil
}

func (it *Iterator) IsEnd() bool {
	return it.pos >= len(it.current) && it.next >= len(it.pages)
}

func (it *Iterator) load(page *buffer.Page) ([]buffer.Entry, error) {
	it.dir.structure.RLock()
	defer it.dir.structure.RUnlock()

	if it.dir.closed {
		return nil, errors.WithStack(util.ErrClosed)
	}

	var entries []buffer.Entry
	err := page.View(func(h *buffer.ReadHandle) error {
		entries = h.Entries()
		for i := range entries {
			entries[i].Tuple = entries[i].Tuple.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error scanning block %d", page.Block())
	}

	return entries, nil
}

// Iterator walks every distinct page of a directory snapshot exactly once.
type Iterator struct {
	dir   *Directory
	pages []*buffer.Page

	next    int
	current []buffer.Entry
	pos     int
}
