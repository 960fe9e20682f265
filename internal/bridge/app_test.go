package bridge

import (
	"testing"

	"motionbridge/internal/registry"
)

func TestMergeSeededParamsPreservesTunedValues(t *testing.T) {
	found := map[uint8]registry.Motor{
		1: {Addr: 1, MaxSpeed: 500, MinSpeed: 50, Accel: 50, MaxPos: 1000}, // scan defaults
		2: {Addr: 2, MaxSpeed: 500, MinSpeed: 50, Accel: 50, MaxPos: 1000}, // not in seeded set
	}
	seeded := map[uint8]registry.Motor{
		1: {Addr: 1, MaxSpeed: 1200, MinSpeed: 20, Accel: 80, MaxPos: 9000},
	}

	mergeSeededParams(found, seeded)

	if got := found[1]; got.MaxSpeed != 1200 || got.MinSpeed != 20 || got.Accel != 80 || got.MaxPos != 9000 {
		t.Errorf("motor 1 params not preserved from seeded config: %+v", got)
	}
	if got := found[2]; got.MaxSpeed != 500 {
		t.Errorf("motor 2 (not seeded) unexpectedly changed: %+v", got)
	}
}

func TestMergeSeededParamsIgnoresAddressesNotFoundLive(t *testing.T) {
	found := map[uint8]registry.Motor{}
	seeded := map[uint8]registry.Motor{
		9: {Addr: 9, MaxSpeed: 1200},
	}
	mergeSeededParams(found, seeded)
	if len(found) != 0 {
		t.Errorf("found = %v, want empty (address 9 never answered)", found)
	}
}
