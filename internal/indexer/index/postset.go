package index

// PostSet is a set of post ids.
type PostSet map[string]struct{}

// RelevanceSet holds the ids of posts carrying a relevance marker.
type RelevanceSet = PostSet

func NewPostSet(ids ...string) PostSet {
	s := make(PostSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s PostSet) Add(id string) {
	s[id] = struct{}{}
}

func (s PostSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the ids present in both sets.
func (s PostSet) Intersect(other PostSet) PostSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PostSet)
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}
