package index

import (
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jobala/tuplestore/buffer"
	"github.com/jobala/tuplestore/storage/disk"
	"github.com/jobala/tuplestore/types"
	"github.com/jobala/tuplestore/util"
)

// DefaultCapacity is the default number of entries a page holds before it splits.
const DefaultCapacity = 4096

type Options struct {
	Capacity int
	Logger   *slog.Logger
}

// Open loads the directory persisted by the scheduler's manager or creates a new
// one with a single page. Existing block files are reused. The directory takes
// ownership of the scheduler.
func Open(ds *disk.Scheduler, typeList []types.Type, opts Options) (*Directory, error) {
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Capacity < 1 {
		return nil, errors.Errorf("invalid page capacity %d", opts.Capacity)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Directory{
		disk:     ds,
		pool:     buffer.NewPool(typeList, ds),
		capacity: opts.Capacity,
		logger:   opts.Logger.With("table", ds.Manager().Table().String()),
	}

	data, found, err := ds.Manager().ReadMeta()
	if err != nil {
		return nil, err
	}

	if found {
		tbl, err := decodeMeta(data, d.pool)
		if err != nil {
			return nil, err
		}
		d.table.Store(tbl)
	} else {
		page, err := d.pool.OpenPage(0)
		if err != nil {
			return nil, err
		}
		tbl := &slotTable{slots: []slot{{page: page}}}
		d.table.Store(tbl)

		d.mu.Lock()
		err = d.persist(tbl)
		d.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	// page lengths are only known after each page has been read once
	var g errgroup.Group
	for _, page := range d.table.Load().pages() {
		g.Go(func() error {
			return page.View(func(*buffer.ReadHandle) error { return nil })
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "error loading pages")
	}

	for _, page := range d.table.Load().pages() {
		d.count.Add(int64(page.Len()))
	}

	return d, nil
}

// Insert stores the tuple under hash, replacing and returning any tuple already
// stored there. An overfull page is split before Insert returns. If splitting
// fails the insert is undone before the error is returned.
func (d *Directory) Insert(hash *big.Int, tuple types.Tuple) (types.Tuple, bool, error) {
	var prev types.Tuple
	var replaced bool

	err := d.update(hash, func(h *buffer.WriteHandle) error {
		var err error
		prev, replaced, _, err = d.insert(h, hash, tuple)
		return err
	})

	return prev, replaced, err
}

// InsertIfAbsent stores the tuple only if nothing is stored under hash yet. It
// returns the existing tuple otherwise.
func (d *Directory) InsertIfAbsent(hash *big.Int, tuple types.Tuple) (types.Tuple, bool, error) {
	var existing types.Tuple
	var inserted bool

	err := d.update(hash, func(h *buffer.WriteHandle) error {
		if t, ok := h.Get(hash); ok {
			existing = t.Clone()
			return nil
		}
		_, _, applied, err := d.insert(h, hash, tuple)
		inserted = applied
		return err
	})

	return existing, inserted, err
}

// insert adds the entry to the page held by h and splits until every page
// involved is within capacity. The split-off pages stay locked until the insert
// either completes or is undone. A failed flush of a split-off page leaves the
// insert applied in memory, so applied is reported alongside the error.
func (d *Directory) insert(h *buffer.WriteHandle, hash *big.Int, tuple types.Tuple) (prev types.Tuple, replaced, applied bool, err error) {
	prev, replaced = h.Insert(hash, tuple)

	siblings, err := d.split(h)
	if err != nil {
		undo(append([]*buffer.WriteHandle{h}, siblings...), hash, prev, replaced)
	} else {
		applied = true
		if !replaced {
			d.count.Add(1)
		}
	}

	for _, sh := range siblings {
		if releaseErr := sh.Release(); err == nil {
			err = releaseErr
		}
	}

	if !applied {
		return nil, false, false, err
	}
	return prev, replaced, true, err
}

// undo reverts an insert of hash, wherever splitting moved the entry to.
func undo(handles []*buffer.WriteHandle, hash *big.Int, prev types.Tuple, replaced bool) {
	for _, h := range handles {
		if _, ok := h.Get(hash); !ok {
			continue
		}
		if replaced {
			h.Insert(hash, prev)
		} else {
			h.Remove(hash)
		}
		return
	}
}

// Remove deletes the tuple stored under hash. Pages are never merged.
func (d *Directory) Remove(hash *big.Int) (types.Tuple, bool, error) {
	var prev types.Tuple
	var removed bool

	err := d.update(hash, func(h *buffer.WriteHandle) error {
		if prev, removed = h.Remove(hash); removed {
			d.count.Add(-1)
		}
		return nil
	})

	return prev, removed, err
}

func (d *Directory) Find(hash *big.Int) (types.Tuple, bool, error) {
	var tuple types.Tuple
	var found bool

	err := d.view(hash, func(h *buffer.ReadHandle) error {
		var t types.Tuple
		if t, found = h.Get(hash); found {
			tuple = t.Clone()
		}
		return nil
	})

	return tuple, found, err
}

// Scan returns an iterator visiting every distinct page once.
func (d *Directory) Scan() *Iterator {
	return newIterator(d, d.table.Load().pages())
}

// update runs fn under the exclusive handle of the page owning hash. If a split
// moved the hash while we waited for the page, the lookup is retried.
func (d *Directory) update(hash *big.Int, fn func(h *buffer.WriteHandle) error) error {
	d.structure.RLock()
	defer d.structure.RUnlock()

	if d.closed {
		return errors.WithStack(util.ErrClosed)
	}

	for {
		page := d.table.Load().locate(hash).page

		var moved bool
		err := page.Update(func(h *buffer.WriteHandle) error {
			if d.table.Load().locate(hash).page != page {
				moved = true
				return nil
			}
			return fn(h)
		})
		if err != nil || !moved {
			return err
		}
	}
}

func (d *Directory) view(hash *big.Int, fn func(h *buffer.ReadHandle) error) error {
	d.structure.RLock()
	defer d.structure.RUnlock()

	if d.closed {
		return errors.WithStack(util.ErrClosed)
	}

	for {
		page := d.table.Load().locate(hash).page

		var moved bool
		err := page.View(func(h *buffer.ReadHandle) error {
			if d.table.Load().locate(hash).page != page {
				moved = true
				return nil
			}
			return fn(h)
		})
		if err != nil || !moved {
			return err
		}
	}
}

// split divides the page held by h, and any page split off it, until all of
// them are within capacity. The exclusive handles of the new pages are returned
// unreleased, also on error.
func (d *Directory) split(h *buffer.WriteHandle) ([]*buffer.WriteHandle, error) {
	var siblings []*buffer.WriteHandle

	pending := []*buffer.WriteHandle{h}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		if cur.Len() <= d.capacity {
			pending = pending[:len(pending)-1]
			continue
		}

		page, err := d.pool.NewPage()
		if err != nil {
			return siblings, err
		}
		sh, err := page.AcquireExclusive()
		if err != nil {
			return siblings, err
		}
		siblings = append(siblings, sh)

		if err := d.divide(cur, sh); err != nil {
			return siblings, err
		}
		pending = append(pending, sh)
	}

	return siblings, nil
}

// divide moves the entries of h whose bit at the page's local depth is set to
// the empty sibling held by sh, doubling the directory first if needed. The new
// slot table is published only once it is persisted; otherwise the entries are
// put back into h.
func (d *Directory) divide(h, sh *buffer.WriteHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	page, sibling := h.Page(), sh.Page()

	tbl := d.table.Load()
	localDepth, ok := tbl.localDepth(page)
	if !ok {
		return errors.Errorf("block %d is not referenced by the directory", page.Block())
	}

	grown := localDepth == tbl.depth
	if grown {
		if tbl.depth >= maxGlobalDepth {
			return errors.Errorf("directory cannot grow beyond depth %d", maxGlobalDepth)
		}
		tbl = tbl.grow()
	}

	entries := h.DrainAll()
	for _, e := range entries {
		if e.Hash.Bit(int(localDepth)) == 1 {
			sh.Insert(e.Hash, e.Tuple)
		} else {
			h.Insert(e.Hash, e.Tuple)
		}
	}

	next := tbl.split(page, sibling, localDepth)
	if err := d.persist(next); err != nil {
		sh.DrainAll()
		h.DrainAll()
		for _, e := range entries {
			h.Insert(e.Hash, e.Tuple)
		}
		return err
	}
	d.table.Store(next)

	if grown {
		d.logger.Debug("directory doubled", "globalDepth", next.depth)
	}
	d.logger.Debug("page split",
		"block", page.Block(),
		"sibling", sibling.Block(),
		"localDepth", localDepth+1,
		"kept", h.Len(),
		"moved", sh.Len(),
	)

	return nil
}

// persist writes the directory metadata. Callers hold d.mu.
func (d *Directory) persist(tbl *slotTable) error {
	data, err := encodeMeta(tbl, d.pool.NextBlock())
	if err != nil {
		return err
	}

	return errors.Wrap(d.disk.Manager().WriteMeta(data), "error writing directory metadata")
}

// Rename moves every page of the table under a new identifier. It waits for all
// outstanding handles, so no page is materialized under the old path afterwards.
func (d *Directory) Rename(table types.Identifier) error {
	d.structure.Lock()
	defer d.structure.Unlock()

	if d.closed {
		return errors.WithStack(util.ErrClosed)
	}

	if err := d.syncPages(); err != nil {
		return err
	}

	old := d.disk.Manager().Table()
	if err := d.disk.Manager().Rename(table); err != nil {
		return err
	}

	d.logger = d.logger.With("table", table.String())
	d.logger.Info("table renamed", "from", old.String())
	return nil
}

// Close writes back any page left dirty by a failed flush, persists the
// directory and stops the disk workers.
func (d *Directory) Close() error {
	d.structure.Lock()
	defer d.structure.Unlock()

	if d.closed {
		return nil
	}

	if err := d.syncPages(); err != nil {
		return err
	}

	d.mu.Lock()
	err := d.persist(d.table.Load())
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.closed = true
	d.disk.Close()
	return nil
}

// Drop deletes every file of the table. The directory is unusable afterwards.
func (d *Directory) Drop() error {
	d.structure.Lock()
	defer d.structure.Unlock()

	if d.closed {
		return errors.WithStack(util.ErrClosed)
	}

	d.closed = true
	d.count.Store(0)
	d.disk.Close()
	if err := d.disk.Manager().Drop(); err != nil {
		return err
	}

	d.logger.Info("table dropped")
	return nil
}

func (d *Directory) syncPages() error {
	for _, page := range d.pool.Pages() {
		if err := page.Sync(); err != nil {
			d.logger.Warn("page sync failed", "block", page.Block(), "err", err)
			return err
		}
	}
	return nil
}

func (d *Directory) GlobalDepth() uint {
	return d.table.Load().depth
}

// Len is the number of stored entries. It is maintained under the page handles
// of every mutation and always equals the sum of the page lengths once those
// handles are released.
func (d *Directory) Len() int {
	return int(d.count.Load())
}

// Directory is an extendible hashing index mapping the low-order bits of key
// hashes to pages.
type Directory struct {
	disk     *disk.Scheduler
	pool     *buffer.Pool
	capacity int
	logger   *slog.Logger

	// held shared by every operation for as long as it holds page handles and
	// exclusively by Rename, Close and Drop
	structure sync.RWMutex
	closed    bool

	// serializes publication of new slot tables
	mu    sync.Mutex
	table atomic.Pointer[slotTable]

	count atomic.Int64
}
