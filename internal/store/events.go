package store

import "github.com/locvowork/sheetlens/internal/formula"

type EventKind string

const (
	EventWorkbookLoaded   EventKind = "workbook_loaded"
	EventWorkbookCleared  EventKind = "workbook_cleared"
	EventSheetSelected    EventKind = "sheet_selected"
	EventSectionUpdated   EventKind = "section_updated"
	EventCellEdited       EventKind = "cell_edited"
	EventViewStateApplied EventKind = "view_state_applied"
)

// Event describes one state change. Section is -1 when the change is not
// about a single section.
type Event struct {
	Kind    EventKind        `json:"kind"`
	Sheet   string           `json:"sheet,omitempty"`
	Section int              `json:"section"`
	Changes []formula.Change `json:"changes,omitempty"`
}

// Observer receives events synchronously, after the store lock is released.
type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ev Event) {
	s.obsMu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.obsMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}
