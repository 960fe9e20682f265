package discovery

import (
	"testing"
	"time"

	"motionbridge/internal/command"
	"motionbridge/internal/mcp"
	"motionbridge/internal/transport"
)

// respondingPort answers GetIO probes for a fixed set of addresses and
// times out (never replies) for everything else.
type respondingPort struct {
	live    map[uint8]int32
	written []byte
}

func (p *respondingPort) Write(b []byte) (int, error) {
	p.written = append([]byte(nil), b...)
	return len(b), nil
}

func (p *respondingPort) Read(b []byte) (int, error) {
	if len(p.written) < mcp.FrameSize {
		return 0, nil
	}
	addr := p.written[0]
	temp, ok := p.live[addr]
	p.written = nil
	if !ok {
		return 0, nil // simulate a silent bus: never answers
	}
	req := mcp.EncodeRequest(addr, command.OpGetIO, tempProbeParam, tempProbeBank, 0)
	reply := make([]byte, mcp.FrameSize)
	copy(reply, req[:])
	reply[0] = addr
	reply[1] = addr
	reply[2] = mcp.StatusOK
	reply[3] = command.OpGetIO
	reply[4] = byte(temp >> 24)
	reply[5] = byte(temp >> 16)
	reply[6] = byte(temp >> 8)
	reply[7] = byte(temp)
	var sum uint8
	for _, v := range reply[:8] {
		sum += v
	}
	reply[8] = sum
	return copy(b, reply), nil
}

func (p *respondingPort) Close() error { return nil }

func fastSettle(t *testing.T) {
	t.Helper()
	orig := settleDelay
	settleDelay = time.Millisecond
	t.Cleanup(func() { settleDelay = orig })
}

func TestScanEmptyBusReturnsEmptyRegistry(t *testing.T) {
	fastSettle(t)
	port := &respondingPort{live: map[uint8]int32{}}
	bus := transport.New(port, nil)
	api := command.New(bus).WithTimeout(5 * time.Millisecond)

	found := Scan(api, 10, Defaults{}, nil)
	if len(found) != 0 {
		t.Fatalf("Scan() = %v, want empty", found)
	}
}

func TestScanFindsLiveMotors(t *testing.T) {
	fastSettle(t)
	port := &respondingPort{live: map[uint8]int32{3: 42, 9: 55}}
	bus := transport.New(port, nil)
	api := command.New(bus).WithTimeout(5 * time.Millisecond)

	found := Scan(api, 10, Defaults{MaxSpeed: 1000, MinSpeed: 10, Accel: 500, MaxPos: 5000}, nil)
	if len(found) != 2 {
		t.Fatalf("Scan() found %d motors, want 2: %+v", len(found), found)
	}
	m, ok := found[3]
	if !ok {
		t.Fatal("motor 3 missing")
	}
	if m.Addr != 3 || m.MaxSpeed != 1000 || m.LastKnownTemp == nil || *m.LastKnownTemp != 42 {
		t.Errorf("motor 3 = %+v", m)
	}
}

func TestScanNeverProbesBroadcastAddress(t *testing.T) {
	fastSettle(t)
	port := &respondingPort{live: map[uint8]int32{0: 99}}
	bus := transport.New(port, nil)
	api := command.New(bus).WithTimeout(5 * time.Millisecond)

	found := Scan(api, 10, Defaults{}, nil)
	if _, ok := found[0]; ok {
		t.Fatal("Scan() probed broadcast address 0")
	}
}

func TestScanClampsToMaxAddr(t *testing.T) {
	fastSettle(t)
	port := &respondingPort{live: map[uint8]int32{254: 1, 255: 1}}
	bus := transport.New(port, nil)
	api := command.New(bus).WithTimeout(5 * time.Millisecond)

	found := Scan(api, 255, Defaults{}, nil)
	if _, ok := found[255]; ok {
		t.Fatal("Scan() probed reserved address 255")
	}
}

func TestWorstCaseDuration(t *testing.T) {
	d := WorstCaseDuration(10, 100*time.Millisecond)
	want := 10 * (settleDelay + 100*time.Millisecond)
	if d != want {
		t.Errorf("WorstCaseDuration() = %v, want %v", d, want)
	}
}
