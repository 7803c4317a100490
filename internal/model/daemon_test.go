package model

import (
	"slices"
	"testing"
)

func TestCompareDaemons(t *testing.T) {
	t.Parallel()
	ids := []string{"osd.10", "osd.2", "mon.a", "osd.1", "osd.x"}
	slices.SortFunc(ids, CompareDaemons)

	want := []string{"mon.a", "osd.1", "osd.2", "osd.10", "osd.x"}
	if !slices.Equal(ids, want) {
		t.Fatalf("sorted = %v, want %v", ids, want)
	}
}
