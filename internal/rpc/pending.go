package rpc

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/gridlink/internal/observability"
	"github.com/danmuck/gridlink/internal/protocol/message"
	"github.com/danmuck/gridlink/internal/protocol/value"
)

// PendingRequest describes one outbound request awaiting its response.
type PendingRequest struct {
	ID       uint64
	Method   string
	Blocking bool
	SentAt   time.Time
}

type pendingEntry struct {
	info PendingRequest
	// reply is set for blocking calls; buffered so delivery never blocks the reader.
	reply chan message.Response
	// callback is set for async calls and runs on the dispatch goroutine.
	callback func(value.Value, error)
}

// pendingTable stores outstanding requests by id. Once closed it rejects
// new entries so nothing registers after the drain.
type pendingTable struct {
	mu     sync.RWMutex
	items  map[uint64]pendingEntry
	closed bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		items: make(map[uint64]pendingEntry),
	}
}

func (p *pendingTable) add(entry pendingEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.items[entry.info.ID] = entry
	observability.AddPendingRequests(1)
	return true
}

// take removes and returns the entry for id.
func (p *pendingTable) take(id uint64) (pendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.items[id]
	if !ok {
		return pendingEntry{}, false
	}
	delete(p.items, id)
	observability.AddPendingRequests(-1)
	return entry, true
}

func (p *pendingTable) remove(id uint64) bool {
	_, ok := p.take(id)
	return ok
}

// close rejects future adds and returns every entry still outstanding.
func (p *pendingTable) close() []pendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	out := make([]pendingEntry, 0, len(p.items))
	for _, entry := range p.items {
		out = append(out, entry)
	}
	observability.AddPendingRequests(-len(p.items))
	p.items = make(map[uint64]pendingEntry)
	sort.Slice(out, func(i, j int) bool {
		return out[i].info.ID < out[j].info.ID
	})
	return out
}

func (p *pendingTable) list() []PendingRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PendingRequest, 0, len(p.items))
	for _, entry := range p.items {
		out = append(out, entry.info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *pendingTable) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
