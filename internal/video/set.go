package video

// AddResult tells why Set.Add kept or rejected a record.
type AddResult int

const (
	Accepted AddResult = iota
	Invalid
	Duplicate
	Full
)

func (a AddResult) String() string {
	switch a {
	case Accepted:
		return "accepted"
	case Invalid:
		return "invalid"
	case Duplicate:
		return "duplicate"
	case Full:
		return "full"
	}
	return "unknown"
}

// Set is an insertion-ordered, capped collection of valid records with
// distinct dedup keys.
type Set struct {
	max     int
	records []*Record
	seen    map[string]struct{}
}

// NewSet returns a set holding at most max records. max <= 0 means no cap.
func NewSet(max int) *Set {
	return &Set{max: max, seen: make(map[string]struct{})}
}

func (s *Set) Add(r *Record) AddResult {
	if s.Full() {
		return Full
	}
	if !r.Valid() {
		return Invalid
	}
	key := r.DedupKey()
	if _, ok := s.seen[key]; ok {
		return Duplicate
	}
	s.seen[key] = struct{}{}
	s.records = append(s.records, r)
	return Accepted
}

func (s *Set) Len() int { return len(s.records) }

func (s *Set) Full() bool { return s.max > 0 && len(s.records) >= s.max }

// Records returns the accepted records in insertion order. The slice is a
// copy; the records are shared.
func (s *Set) Records() []*Record {
	return append([]*Record(nil), s.records...)
}
