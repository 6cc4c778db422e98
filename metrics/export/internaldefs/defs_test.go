package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsUniqueAndPrefixed(t *testing.T) {
	seenID := map[uint16]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if seenID[uint16(def.ID)] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if seenName[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		seenID[uint16(def.ID)] = true
		seenName[def.Name] = true
		if !strings.HasPrefix(def.Name, "goguard_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	n := NormalizeBuckets([]uint64{1, 2, 3})
	if n != [8]uint64{1, 2, 3} {
		t.Fatalf("unexpected normalize %v", n)
	}
	c := CumulativeBuckets([8]uint64{1, 1, 1, 1, 1, 1, 1, 1})
	if c[7] != 8 || c[0] != 1 {
		t.Fatalf("unexpected cumulative %v", c)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bounds and suffixes disagree")
	}
}
