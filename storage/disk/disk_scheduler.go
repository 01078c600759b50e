package disk

import (
	"sync"

	"github.com/pkg/errors"
)

type RequestKind int

const (
	ReadRequest RequestKind = iota
	WriteRequest
	CreateRequest
)

// ErrSchedulerClosed is returned for requests scheduled after Close.
var ErrSchedulerClosed = errors.New("disk scheduler closed")

func NewScheduler(manager *Manager, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}

	ds := &Scheduler{
		manager: manager,
		queues:  make([]chan Request, workers),
	}

	for i := range ds.queues {
		ds.queues[i] = make(chan Request, 100)
		ds.wg.Add(1)
		go ds.worker(ds.queues[i])
	}

	return ds
}

func NewRequest(block int, kind RequestKind, data []byte) Request {
	return Request{
		Block:  block,
		Kind:   kind,
		Data:   data,
		RespCh: make(chan Response, 1),
	}
}

// Schedule queues the request. Requests for the same block are always handled
// by the same worker, in scheduling order.
func (ds *Scheduler) Schedule(req Request) <-chan Response {
	if req.RespCh == nil {
		req.RespCh = make(chan Response, 1)
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		req.RespCh <- Response{Err: errors.WithStack(ErrSchedulerClosed)}
		return req.RespCh
	}

	ds.queues[req.Block%len(ds.queues)] <- req
	return req.RespCh
}

func (ds *Scheduler) ReadBlock(block int) ([]byte, error) {
	resp := <-ds.Schedule(NewRequest(block, ReadRequest, nil))
	return resp.Data, resp.Err
}

func (ds *Scheduler) WriteBlock(block int, data []byte) error {
	resp := <-ds.Schedule(NewRequest(block, WriteRequest, data))
	return resp.Err
}

func (ds *Scheduler) CreateBlock(block int) error {
	resp := <-ds.Schedule(NewRequest(block, CreateRequest, nil))
	return resp.Err
}

func (ds *Scheduler) Manager() *Manager {
	return ds.manager
}

// Close stops the workers after the queued requests are handled.
func (ds *Scheduler) Close() {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return
	}
	ds.closed = true
	for _, q := range ds.queues {
		close(q)
	}
	ds.mu.Unlock()

	ds.wg.Wait()
}

func (ds *Scheduler) worker(reqQueue chan Request) {
	defer ds.wg.Done()

	for req := range reqQueue {
		switch req.Kind {
		case WriteRequest:
			req.RespCh <- Response{Err: ds.manager.writeBlock(req.Block, req.Data)}
		case CreateRequest:
			req.RespCh <- Response{Err: ds.manager.createBlock(req.Block)}
		default:
			data, err := ds.manager.readBlock(req.Block)
			req.RespCh <- Response{Data: data, Err: err}
		}
	}
}

type Scheduler struct {
	manager *Manager
	queues  []chan Request
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Request struct {
	Block  int
	Kind   RequestKind
	Data   []byte
	RespCh chan Response
}

type Response struct {
	Data []byte
	Err  error
}
