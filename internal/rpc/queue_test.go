package rpc

import (
	"testing"

	"github.com/danmuck/gridlink/internal/testutil/testlog"
)

func TestJobQueueFIFOAndDrainAfterClose(t *testing.T) {
	testlog.Start(t)
	q := newJobQueue()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		if !q.push(func() { got = append(got, i) }) {
			t.Fatalf("push %d rejected", i)
		}
	}
	q.close()
	if q.push(func() {}) {
		t.Fatalf("push after close accepted")
	}
	for {
		job, ok := q.pop()
		if !ok {
			break
		}
		job()
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected order %v", got)
	}
	if q.len() != 0 {
		t.Fatalf("queue not drained")
	}
}

func TestPendingTableRejectsAfterClose(t *testing.T) {
	testlog.Start(t)
	p := newPendingTable()
	p.add(pendingEntry{info: PendingRequest{ID: 2, Method: "b"}})
	p.add(pendingEntry{info: PendingRequest{ID: 1, Method: "a", Blocking: true}})
	if list := p.list(); len(list) != 2 || list[0].ID != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	drained := p.close()
	if len(drained) != 2 || drained[0].info.Method != "a" {
		t.Fatalf("unexpected drain %+v", drained)
	}
	if p.add(pendingEntry{info: PendingRequest{ID: 3}}) {
		t.Fatalf("add after close accepted")
	}
	if p.len() != 0 {
		t.Fatalf("table not empty")
	}
}
