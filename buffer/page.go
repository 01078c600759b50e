package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/types"
	"github.com/jobala/tuplestore/util"
)

// BlockIO is the storage a page loads from and flushes to.
type BlockIO interface {
	CreateBlock(block int) error
	ReadBlock(block int) ([]byte, error)
	WriteBlock(block int, data []byte) error
}

func NewPage(block int, typeList []types.Type, io BlockIO) *Page {
	p := &Page{
		block:    block,
		typeList: typeList,
		io:       io,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// AcquireShared blocks while a writer holds the page, materializes the page if
// needed and registers a new reader. Counting the reader and loading happen
// under the same mutex that decides eviction, so a page is never evicted while a
// handle is being granted.
func (p *Page) AcquireShared() (*ReadHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.writer && p.poisoned == nil {
		p.cond.Wait()
	}
	if p.poisoned != nil {
		return nil, p.poisoned
	}

	if err := p.materialize(); err != nil {
		return nil, err
	}
	p.readers++

	return newReadHandle(p, p.frame), nil
}

// AcquireExclusive blocks until no other handle is held and materializes the page.
func (p *Page) AcquireExclusive() (*WriteHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for (p.writer || p.readers > 0) && p.poisoned == nil {
		p.cond.Wait()
	}
	if p.poisoned != nil {
		return nil, p.poisoned
	}

	if err := p.materialize(); err != nil {
		return nil, err
	}
	p.writer = true
	p.lenAtAcquire = p.len.Load()

	return newWriteHandle(p, p.frame), nil
}

// View runs fn with a shared handle. A panic in fn poisons the page.
func (p *Page) View(fn func(h *ReadHandle) error) (err error) {
	h, err := p.AcquireShared()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			h.released = true
			p.poison(r, false)
			panic(r)
		}
		if releaseErr := h.Release(); err == nil {
			err = releaseErr
		}
	}()

	return fn(h)
}

// Update runs fn with an exclusive handle. A panic in fn poisons the page and
// leaves its file untouched.
func (p *Page) Update(fn func(h *WriteHandle) error) (err error) {
	h, err := p.AcquireExclusive()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			h.released = true
			p.poison(r, true)
			panic(r)
		}
		if releaseErr := h.Release(); err == nil {
			err = releaseErr
		}
	}()

	return fn(h)
}

// Sync writes back contents left in memory by a failed flush.
func (p *Page) Sync() error {
	if !p.Dirty() {
		return nil
	}

	return p.Update(func(*WriteHandle) error { return nil })
}

func (p *Page) releaseShared() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cond.Broadcast()

	p.readers--
	if p.readers > 0 || p.frame == nil {
		return nil
	}

	// last reader out evicts; contents only need writing if an earlier flush failed
	if p.frame.dirty {
		return p.flush()
	}
	p.frame = nil
	return nil
}

func (p *Page) releaseExclusive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cond.Broadcast()

	p.writer = false
	return p.flush()
}

func (p *Page) poison(cause any, exclusive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cond.Broadcast()

	p.poisoned = util.NewPoisonedError(p.block, cause)
	if exclusive {
		// the holder's changes are discarded along with the frame
		p.writer = false
		p.frame = nil
		p.len.Store(p.lenAtAcquire)
		return
	}

	p.readers--
	if p.readers == 0 {
		p.frame = nil
	}
}

func (p *Page) materialize() error {
	if p.frame != nil {
		return nil
	}

	data, err := p.io.ReadBlock(p.block)
	if err != nil {
		return errors.Wrapf(err, "error loading block %d", p.block)
	}

	entries, err := decodeEntries(data, p.typeList)
	if err != nil {
		return errors.Wrapf(err, "error decoding block %d", p.block)
	}

	p.frame = newFrame(entries)
	p.len.Store(int64(len(entries)))
	p.loads.Add(1)
	return nil
}

// flush rewrites the block file from the frame and discards the frame. On
// failure the frame stays resident and dirty.
func (p *Page) flush() error {
	if p.frame == nil {
		return nil
	}

	if err := p.io.WriteBlock(p.block, encodeEntries(p.frame.entries)); err != nil {
		p.frame.dirty = true
		return errors.Wrapf(err, "error flushing block %d", p.block)
	}

	p.frame = nil
	return nil
}

func (p *Page) Block() int {
	return p.block
}

// Len is the number of entries, known without materializing the page.
func (p *Page) Len() int {
	return int(p.len.Load())
}

// Materialized reports whether the page contents are in memory.
func (p *Page) Materialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.frame != nil
}

func (p *Page) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.frame != nil && p.frame.dirty
}

// Loads is the number of times the page has been read from disk.
func (p *Page) Loads() int64 {
	return p.loads.Load()
}

// Page is a disk-backed hash bucket. It is memory resident only while at least
// one handle is outstanding.
type Page struct {
	block    int
	typeList []types.Type
	io       BlockIO

	mu       sync.Mutex
	cond     *sync.Cond
	readers  int
	writer   bool
	poisoned error
	frame    *frame

	// entry count when the current writer acquired the page
	lenAtAcquire int64

	len   atomic.Int64
	loads atomic.Int64
}
