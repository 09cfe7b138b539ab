package save

import "testing"

func TestDataLocationsAreASet(t *testing.T) {
	d := NewData("s1")
	if !d.AddLocation(30) || !d.AddLocation(10) {
		t.Fatalf("first inserts should be new")
	}
	if d.AddLocation(30) {
		t.Fatalf("repeat insert should be a no-op")
	}
	if d.LocationCount() != 2 {
		t.Fatalf("expected 2 locations, got %d", d.LocationCount())
	}
	got := d.Locations()
	if got[0] != 10 || got[1] != 30 {
		t.Fatalf("expected sorted locations, got %v", got)
	}
}

func TestDataAdoptSeedIsFirstWrite(t *testing.T) {
	d := NewData("s1")
	if !d.AdoptSeed("A") {
		t.Fatalf("expected adopt on empty seed")
	}
	if d.AdoptSeed("B") {
		t.Fatalf("seed must not be overwritten")
	}
	if d.Seed != "A" {
		t.Fatalf("seed = %q, want A", d.Seed)
	}
}

func TestMemoryCommitClearsDirty(t *testing.T) {
	m := NewMemory()
	cur, err := m.Current()
	if err != nil || cur != nil {
		t.Fatalf("expected no save before activation, got %+v err=%v", cur, err)
	}
	m.Activate("s1")
	cur, _ = m.Current()
	cur.GrantedOne()
	if !cur.Dirty() {
		t.Fatalf("expected dirty after mutation")
	}
	if err := m.Commit(cur); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if cur.Dirty() {
		t.Fatalf("expected clean after commit")
	}
	m.Deactivate()
	m.Activate("s1")
	again, _ := m.Current()
	if again.ItemsGranted != 1 {
		t.Fatalf("expected cursor to survive reactivation, got %d", again.ItemsGranted)
	}
}
