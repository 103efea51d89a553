package feed

// SeenSet holds the links already shown in a session. It is not safe for
// concurrent use; the owning session serializes access.
type SeenSet struct {
	links map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{links: make(map[string]struct{})}
}

func (s *SeenSet) Contains(link string) bool {
	_, ok := s.links[link]
	return ok
}

func (s *SeenSet) Add(link string) {
	s.links[link] = struct{}{}
}

func (s *SeenSet) Len() int {
	return len(s.links)
}

func (s *SeenSet) Clear() {
	clear(s.links)
}
