package profile

import "github.com/samber/lo"

// Store exposes profile retrieval for handlers and front-ends.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the configured profiles.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// FindByID looks up a profile by locale identifier.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	return lo.Find(s.items, func(item Profile) bool {
		return item.ID == id
	})
}
