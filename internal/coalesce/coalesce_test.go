package coalesce

import (
	"context"
	"sync"
	"testing"
	"time"

	"motionbridge/internal/command"
	"motionbridge/internal/mcp"
	"motionbridge/internal/transport"
)

// recordingPort logs every dispatched value (the low 32 bits of the
// request) so tests can observe which intents actually reached the wire.
type recordingPort struct {
	mu      sync.Mutex
	values  []int32
	pending [2]byte // last request's addr/opcode, echoed back by Read
	waiting bool    // a request has been written and not yet answered
}

func (p *recordingPort) Write(b []byte) (int, error) {
	v := int32(uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7]))
	p.mu.Lock()
	p.values = append(p.values, v)
	p.pending = [2]byte{b[0], b[1]}
	p.waiting = true
	p.mu.Unlock()
	return len(b), nil
}

func (p *recordingPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.waiting {
		return 0, nil
	}
	v := p.values[len(p.values)-1]
	addr, opcode := p.pending[0], p.pending[1]
	req := mcp.EncodeRequest(addr, opcode, 0, 0, v)
	reply := make([]byte, mcp.FrameSize)
	copy(reply, req[:])
	reply[0], reply[1], reply[2], reply[3] = addr, addr, mcp.StatusOK, opcode
	var sum uint8
	for _, x := range reply[:8] {
		sum += x
	}
	reply[8] = sum
	n := copy(b, reply)
	p.waiting = false
	return n, nil
}

func (p *recordingPort) Close() error { return nil }

func (p *recordingPort) snapshot() []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int32(nil), p.values...)
}

func TestMailboxLatestWins(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mb := NewMailbox(ctx, 1, api, nil)
	// Offer three intents back-to-back without letting the worker run in
	// between; only the last should ever be dispatched.
	mb.Offer(Intent{Kind: RotateLeft, Speed: 10})
	mb.Offer(Intent{Kind: RotateLeft, Speed: 20})
	mb.Offer(Intent{Kind: RotateLeft, Speed: 30})

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for dispatch")
		default:
		}
		if len(port.snapshot()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	time.Sleep(20 * time.Millisecond) // let any stray extra dispatch happen
	got := port.snapshot()
	if len(got) != 1 {
		t.Fatalf("dispatched %d commands, want exactly 1 (latest-wins): %v", len(got), got)
	}
	if got[0] != 30 {
		t.Errorf("dispatched value = %d, want 30 (the last offer)", got[0])
	}
}

func TestMailboxDepthNeverExceedsOne(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mb := NewMailbox(ctx, 1, api, nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mb.Offer(Intent{Kind: RotateLeft, Speed: int32(i)})
		}(i)
	}
	wg.Wait()

	mb.mu.Lock()
	depth := 0
	if mb.pending != nil {
		depth = 1
	}
	mb.mu.Unlock()
	if depth > 1 {
		t.Fatalf("mailbox depth = %d, want <= 1", depth)
	}
}

func TestMailboxCancellationDrains(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	ctx, cancel := context.WithCancel(context.Background())

	mb := NewMailbox(ctx, 1, api, nil)
	cancel()

	select {
	case <-mb.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancellation")
	}

	// Offering after shutdown must not panic or block.
	mb.Offer(Intent{Kind: Stop})
}

func TestManagerOfferUnknownAddrIsNoop(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	mgr := NewManager(api, nil)
	if mgr.Offer(42, Intent{Kind: Stop}) {
		t.Fatal("Offer() to unknown address returned true")
	}
}

func TestManagerEnsureThenOffer(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	mgr := NewManager(api, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Ensure(ctx, 5)
	if !mgr.Offer(5, Intent{Kind: Stop}) {
		t.Fatal("Offer() to ensured address returned false")
	}
}

func TestManagerResetCancelsSupersededWorkers(t *testing.T) {
	port := &recordingPort{}
	bus := transport.New(port, nil)
	api := command.New(bus)
	mgr := NewManager(api, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Ensure(ctx, 1)
	old := mgr.mailboxes[1]

	mgr.Reset(ctx, []uint8{2})

	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded mailbox's worker did not exit after Reset")
	}
	if mgr.Offer(1, Intent{Kind: Stop}) {
		t.Fatal("Offer() to address dropped by Reset returned true")
	}
	if !mgr.Offer(2, Intent{Kind: Stop}) {
		t.Fatal("Offer() to address added by Reset returned false")
	}
}
