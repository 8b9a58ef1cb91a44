package editor

// positionStore tracks position overrides in first-touch order so serialised
// payloads are deterministic.
type positionStore struct {
	order []ElementID
	byID  map[ElementID]Position
}

func newPositionStore() *positionStore {
	return &positionStore{byID: make(map[ElementID]Position)}
}

func (s *positionStore) set(id ElementID, pos Position) {
	if _, ok := s.byID[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = pos
}

func (s *positionStore) get(id ElementID) (Position, bool) {
	pos, ok := s.byID[id]
	return pos, ok
}

func (s *positionStore) len() int {
	return len(s.order)
}

func (s *positionStore) clear() {
	s.order = nil
	s.byID = make(map[ElementID]Position)
}

func (s *positionStore) entries() []PositionEntry {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]PositionEntry, 0, len(s.order))
	for _, id := range s.order {
		pos := s.byID[id]
		out = append(out, PositionEntry{ElementID: string(id), X: pos.X, Y: pos.Y})
	}
	return out
}

// styleStore tracks partial style overrides per element, merging repeated
// changes to the same property and preserving first-touch element order.
type styleStore struct {
	order []ElementID
	byID  map[ElementID]Style
}

func newStyleStore() *styleStore {
	return &styleStore{byID: make(map[ElementID]Style)}
}

func (s *styleStore) merge(id ElementID, prop StyleProperty, value string) bool {
	st, ok := s.byID[id]
	if !st.set(prop, value) {
		return false
	}
	if !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = st
	return true
}

func (s *styleStore) get(id ElementID) (Style, bool) {
	st, ok := s.byID[id]
	return st, ok
}

func (s *styleStore) len() int {
	return len(s.order)
}

func (s *styleStore) clear() {
	s.order = nil
	s.byID = make(map[ElementID]Style)
}

func (s *styleStore) entries() []StyleEntry {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]StyleEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, StyleEntry{ElementID: string(id), Style: s.byID[id]})
	}
	return out
}
