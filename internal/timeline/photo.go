package timeline

// Pin marks a photo key as the explicit default photo choice. Pinning a
// key that is not currently present is allowed; it simply never wins
// resolution until a photo with that key appears.
func (s *Store) Pin(key int64) {
	s.pinned = key
	s.pinActive = true
}

// Unpin clears the explicit default photo choice.
func (s *Store) Unpin() {
	s.pinned = 0
	s.pinActive = false
}

// PinnedKey returns the pinned photo key, if any.
func (s *Store) PinnedKey() (int64, bool) {
	return s.pinned, s.pinActive
}

// ResolveDefaultPhoto picks the plant's representative photo: the
// pinned photo while it is still in the collection, otherwise the photo
// with the newest timestamp. The pin is checked against the live
// collection on every call, so deleting the pinned photo implicitly
// falls back to recency without any bookkeeping at delete time.
func (s *Store) ResolveDefaultPhoto() (Photo, bool) {
	if s.pinActive {
		if p, ok := s.photos[s.pinned]; ok {
			return p, true
		}
	}
	var newest Photo
	found := false
	for _, p := range s.photos {
		if !found || p.Timestamp.After(newest.Timestamp) {
			newest = p
			found = true
		}
	}
	return newest, found
}
