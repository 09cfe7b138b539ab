package save

import (
	"sort"
	"sync"
)

// Data is the client state persisted alongside one game save.
type Data struct {
	SaveID string

	// ItemsGranted counts received items already given to the player. It
	// only ever grows.
	ItemsGranted uint64

	// Deaths counts deaths toward the death link amnesty threshold.
	Deaths uint8

	// Seed is the multiworld seed this save was first played with; empty
	// until adopted.
	Seed string

	locations map[int64]struct{}
	dirty     bool
}

func NewData(saveID string) *Data {
	return &Data{SaveID: saveID, locations: map[int64]struct{}{}}
}

// AddLocation records a confirmed location. It reports whether id was new.
func (d *Data) AddLocation(id int64) bool {
	if d.locations == nil {
		d.locations = map[int64]struct{}{}
	}
	if _, ok := d.locations[id]; ok {
		return false
	}
	d.locations[id] = struct{}{}
	d.dirty = true
	return true
}

func (d *Data) HasLocation(id int64) bool {
	_, ok := d.locations[id]
	return ok
}

func (d *Data) LocationCount() int { return len(d.locations) }

// Locations returns the confirmed locations in ascending order.
func (d *Data) Locations() []int64 {
	out := make([]int64, 0, len(d.locations))
	for id := range d.locations {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GrantedOne advances the delivery cursor by exactly one.
func (d *Data) GrantedOne() {
	d.ItemsGranted++
	d.dirty = true
}

func (d *Data) AddDeath() uint8 {
	if d.Deaths < ^uint8(0) {
		d.Deaths++
	}
	d.dirty = true
	return d.Deaths
}

func (d *Data) ResetDeaths() {
	if d.Deaths != 0 {
		d.Deaths = 0
		d.dirty = true
	}
}

// AdoptSeed records seed if the save has none yet. Existing seeds are never
// overwritten.
func (d *Data) AdoptSeed(seed string) bool {
	if d.Seed != "" || seed == "" {
		return false
	}
	d.Seed = seed
	d.dirty = true
	return true
}

func (d *Data) Dirty() bool { return d.dirty }

// MarkClean is called by providers after a successful commit.
func (d *Data) MarkClean() { d.dirty = false }

// Clone returns a deep copy with the same dirty state.
func (d *Data) Clone() *Data {
	c := *d
	c.locations = make(map[int64]struct{}, len(d.locations))
	for id := range d.locations {
		c.locations[id] = struct{}{}
	}
	return &c
}

// Provider gives the update cycle access to the active save.
type Provider interface {
	// Current returns the active save, or nil when none is loaded.
	Current() (*Data, error)
	// Commit persists d if it has pending changes.
	Commit(d *Data) error
}

// Memory is a Provider that keeps every save in process memory.
type Memory struct {
	mu     sync.Mutex
	active string
	saves  map[string]*Data
}

func NewMemory() *Memory {
	return &Memory{saves: map[string]*Data{}}
}

// Activate loads (or creates) saveID as the current save.
func (m *Memory) Activate(saveID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saves[saveID]; !ok {
		m.saves[saveID] = NewData(saveID)
	}
	m.active = saveID
}

func (m *Memory) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = ""
}

func (m *Memory) Current() (*Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == "" {
		return nil, nil
	}
	return m.saves[m.active], nil
}

func (m *Memory) Commit(d *Data) error {
	if d == nil || !d.Dirty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[d.SaveID] = d
	d.MarkClean()
	return nil
}
