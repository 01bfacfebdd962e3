package formstack

import (
	"sync"
	"time"
)

// EventType names the operation that produced a snapshot.
type EventType string

const (
	EventOpened    EventType = "opened"
	EventClosed    EventType = "closed"
	EventCleared   EventType = "cleared"
	EventActivated EventType = "activated"
	EventUpdated   EventType = "updated"
	EventSaved     EventType = "saved"
	EventRetitled  EventType = "retitled"
	EventCollapsed EventType = "collapsed"
)

// Cause describes the change carried by a snapshot.
type Cause struct {
	Type  EventType
	TabID TabID
}

// Snapshot is a consistent, caller-owned view of the store.
type Snapshot struct {
	Version   uint64
	Tabs      []Tab
	ActiveID  TabID
	Collapsed bool
	Cause     Cause
}

// Active returns the active tab, if any.
func (s Snapshot) Active() (Tab, bool) {
	return s.Tab(s.ActiveID)
}

// Tab returns the tab with id, if present.
func (s Snapshot) Tab(id TabID) (Tab, bool) {
	if id == "" {
		return Tab{}, false
	}
	for _, t := range s.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return Tab{}, false
}

// IDs returns tab ids in stack order.
func (s Snapshot) IDs() []TabID {
	out := make([]TabID, 0, len(s.Tabs))
	for _, t := range s.Tabs {
		out = append(out, t.ID)
	}
	return out
}

// Listener observes store changes.
type Listener func(Snapshot)

// Store is the authoritative, observable list of open tabs and the active-tab pointer.
type Store struct {
	mu        sync.Mutex
	tabs      []*Tab
	active    TabID
	collapsed bool
	version   uint64
	pending   []Snapshot
	draining  bool
	now       func() time.Time
	newID     func() TabID

	subMu     sync.Mutex
	listeners map[uint64]Listener
	order     []uint64
	nextSub   uint64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		now:       time.Now,
		newID:     newTabID,
		listeners: make(map[uint64]Listener),
	}
}

// Open appends a new tab, makes it active and returns its id. It never fails.
func (s *Store) Open(formType string, opts OpenOptions) TabID {
	s.mu.Lock()
	id := s.newID()
	for s.indexLocked(id) >= 0 {
		id = s.newID()
	}
	tab := &Tab{
		ID:                 id,
		FormType:           formType,
		Title:              opts.Title,
		FormData:           opts.FormData.Clone(),
		Context:            Context(cloneMap(opts.Context)),
		ParentID:           opts.parentID,
		AutoCloseOnSuccess: opts.AutoCloseOnSuccess,
		OpenedAt:           s.now(),
	}
	if tab.FormData == nil {
		tab.FormData = FormData{}
	}
	if tab.Context == nil {
		tab.Context = Context{}
	}
	s.tabs = append(s.tabs, tab)
	s.active = id
	s.commitLocked(Cause{Type: EventOpened, TabID: id})
	s.mu.Unlock()
	s.flush()
	return id
}

// Close removes the tab with id. Unknown ids are ignored.
func (s *Store) Close(id TabID) {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return
	}
	s.commitLocked(Cause{Type: EventClosed, TabID: id})
	s.mu.Unlock()
	s.flush()
}

// CloseActive removes the active tab, if any.
func (s *Store) CloseActive() {
	s.mu.Lock()
	id := s.active
	s.mu.Unlock()
	if id == "" {
		return
	}
	s.Close(id)
}

// CloseAll clears the list and the active pointer in one step.
func (s *Store) CloseAll() {
	s.mu.Lock()
	if len(s.tabs) == 0 && s.active == "" {
		s.mu.Unlock()
		return
	}
	s.tabs = nil
	s.active = ""
	s.commitLocked(Cause{Type: EventCleared})
	s.mu.Unlock()
	s.flush()
}

// closeAndActivate removes id and, when next is still open, makes it active.
// Observers see a single change.
func (s *Store) closeAndActivate(id, next TabID) bool {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return false
	}
	if next != "" && s.indexLocked(next) >= 0 {
		s.active = next
	}
	s.commitLocked(Cause{Type: EventClosed, TabID: id})
	s.mu.Unlock()
	s.flush()
	return true
}

// Switch makes id active when it is present.
func (s *Store) Switch(id TabID) {
	s.mu.Lock()
	if s.indexLocked(id) < 0 || s.active == id {
		s.mu.Unlock()
		return
	}
	s.active = id
	s.commitLocked(Cause{Type: EventActivated, TabID: id})
	s.mu.Unlock()
	s.flush()
}

// UpdateFormData replaces the tab's payload with data. Callers that want to
// keep prior fields must include them.
func (s *Store) UpdateFormData(id TabID, data FormData) bool {
	return s.mutate(id, EventUpdated, func(t *Tab) {
		t.FormData = data.Clone()
		if t.FormData == nil {
			t.FormData = FormData{}
		}
	})
}

// PatchFormData shallow-merges patch into the tab's payload. A nil value removes the key.
func (s *Store) PatchFormData(id TabID, patch FormData) bool {
	return s.mutate(id, EventUpdated, func(t *Tab) {
		next := t.FormData.Clone()
		if next == nil {
			next = FormData{}
		}
		for k, v := range patch {
			if v == nil {
				delete(next, k)
				continue
			}
			next[k] = cloneValue(v)
		}
		t.FormData = next
	})
}

// MarkSaved flags the tab as saved.
func (s *Store) MarkSaved(id TabID) bool {
	return s.mutate(id, EventSaved, func(t *Tab) { t.IsSaved = true })
}

// MarkSavedActive flags the active tab as saved.
func (s *Store) MarkSavedActive() bool {
	s.mu.Lock()
	id := s.active
	s.mu.Unlock()
	return s.MarkSaved(id)
}

// SetTitle renames the tab.
func (s *Store) SetTitle(id TabID, title string) bool {
	return s.mutate(id, EventRetitled, func(t *Tab) { t.Title = title })
}

// ToggleCollapse flips the panel between sheet and rail. Tabs are untouched.
func (s *Store) ToggleCollapse() bool {
	s.mu.Lock()
	s.collapsed = !s.collapsed
	collapsed := s.collapsed
	s.commitLocked(Cause{Type: EventCollapsed})
	s.mu.Unlock()
	s.flush()
	return collapsed
}

// SetCollapsed sets the collapse flag.
func (s *Store) SetCollapsed(collapsed bool) {
	s.mu.Lock()
	if s.collapsed == collapsed {
		s.mu.Unlock()
		return
	}
	s.collapsed = collapsed
	s.commitLocked(Cause{Type: EventCollapsed})
	s.mu.Unlock()
	s.flush()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(Cause{})
}

// Tab returns a copy of the tab with id.
func (s *Store) Tab(id TabID) (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Tab{}, false
	}
	return s.tabs[idx].clone(), true
}

// Has reports whether id is open.
func (s *Store) Has(id TabID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// Len returns the number of open tabs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

// Subscribe registers fn for every subsequent change and returns a cancel func.
// Listeners run after the store lock is released and must not block. They see
// snapshots in version order; a change made from inside a listener is
// delivered after the current snapshot reaches every listener.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextSub++
	key := s.nextSub
	s.listeners[key] = fn
	s.order = append(s.order, key)
	s.subMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, key)
			for i, k := range s.order {
				if k == key {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
			s.subMu.Unlock()
		})
	}
}

func (s *Store) mutate(id TabID, event EventType, fn func(t *Tab)) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	// Replace the element rather than editing in place so earlier clones stay intact.
	next := *s.tabs[idx]
	fn(&next)
	s.tabs[idx] = &next
	s.commitLocked(Cause{Type: event, TabID: id})
	s.mu.Unlock()
	s.flush()
	return true
}

func (s *Store) removeLocked(id TabID) bool {
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.tabs = append(s.tabs[:idx:idx], s.tabs[idx+1:]...)
	if s.active == id {
		switch {
		case len(s.tabs) == 0:
			s.active = ""
		case idx > 0:
			s.active = s.tabs[idx-1].ID
		default:
			s.active = s.tabs[0].ID
		}
	}
	return true
}

func (s *Store) indexLocked(id TabID) int {
	if id == "" {
		return -1
	}
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked bumps the version and queues the resulting snapshot. The
// caller must flush after unlocking.
func (s *Store) commitLocked(cause Cause) {
	s.version++
	s.subMu.Lock()
	n := len(s.order)
	s.subMu.Unlock()
	if n == 0 {
		return
	}
	s.pending = append(s.pending, s.snapshotLocked(cause))
}

func (s *Store) snapshotLocked(cause Cause) Snapshot {
	tabs := make([]Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, t.clone())
	}
	return Snapshot{
		Version:   s.version,
		Tabs:      tabs,
		ActiveID:  s.active,
		Collapsed: s.collapsed,
		Cause:     cause,
	}
}

// flush delivers queued snapshots in version order. Only one caller drains at
// a time; changes made by a listener, or by another goroutine meanwhile, are
// queued and delivered by the draining caller once the current snapshot has
// reached every listener.
func (s *Store) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	done := false
	defer func() {
		// a panicking listener must not wedge later notifications
		if !done {
			s.mu.Lock()
			s.draining = false
			s.pending = nil
			s.mu.Unlock()
		}
	}()
	for len(s.pending) > 0 {
		snap := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		for _, fn := range s.listenersSnapshot() {
			fn(snap)
		}
		s.mu.Lock()
	}
	s.draining = false
	done = true
	s.mu.Unlock()
}

func (s *Store) listenersSnapshot() []Listener {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.order) == 0 {
		return nil
	}
	fns := make([]Listener, 0, len(s.order))
	for _, k := range s.order {
		fns = append(fns, s.listeners[k])
	}
	return fns
}
