package registry

import "testing"

func TestPutGet(t *testing.T) {
	r := New()
	r.Put(Motor{Addr: 3, MaxSpeed: 1000})
	m, ok := r.Get(3)
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if m.Addr != 3 || m.MaxSpeed != 1000 {
		t.Errorf("Get() = %+v", m)
	}
}

func TestAddrEqualsKey(t *testing.T) {
	r := New()
	r.Replace(map[uint8]Motor{
		1: {Addr: 1},
		2: {Addr: 2},
	})
	for _, addr := range r.Addresses() {
		m, _ := r.Get(addr)
		if m.Addr != addr {
			t.Errorf("motor at key %d has Addr %d", addr, m.Addr)
		}
	}
}

func TestUpdateMissing(t *testing.T) {
	r := New()
	ok := r.Update(9, func(m Motor) Motor { return m })
	if ok {
		t.Error("Update() on missing addr returned true")
	}
}

func TestUpdateExisting(t *testing.T) {
	r := New()
	r.Put(Motor{Addr: 4, MaxPos: 100})
	ok := r.Update(4, func(m Motor) Motor {
		m.MaxPos = 999
		return m
	})
	if !ok {
		t.Fatal("Update() = false, want true")
	}
	m, _ := r.Get(4)
	if m.MaxPos != 999 {
		t.Errorf("MaxPos = %d, want 999", m.MaxPos)
	}
}

func TestReplaceIsAtomicSwap(t *testing.T) {
	r := New()
	r.Put(Motor{Addr: 1})
	r.Replace(map[uint8]Motor{2: {Addr: 2}})
	if _, ok := r.Get(1); ok {
		t.Error("old motor 1 still present after Replace")
	}
	if _, ok := r.Get(2); !ok {
		t.Error("new motor 2 missing after Replace")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	r := New()
	r.Put(Motor{Addr: 1, MaxSpeed: 10})
	snap := r.Snapshot()
	snap[1] = Motor{Addr: 1, MaxSpeed: 9999}
	m, _ := r.Get(1)
	if m.MaxSpeed != 10 {
		t.Errorf("Snapshot mutation leaked into registry: MaxSpeed = %d", m.MaxSpeed)
	}
}
