package conversation

// idSet is a bounded set of entry ids that evicts the oldest id first.
type idSet struct {
	max   int
	order []string
	ids   map[string]struct{}
}

func newIDSet(max int) *idSet {
	return &idSet{max: max, ids: map[string]struct{}{}}
}

func (s *idSet) Add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	if s.max > 0 && len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
}

func (s *idSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *idSet) Len() int { return len(s.order) }
