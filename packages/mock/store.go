package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/postcheck/packages/posts"
)

// Store persists the posts served by the mock backend.
type Store interface {
	List(ctx context.Context) ([]posts.Post, error)
	Get(ctx context.Context, id int64) (posts.Post, error)
	// Create stores p, assigning an id when p.ID is zero. It returns
	// posts.ErrDuplicateID when the id is taken.
	Create(ctx context.Context, p posts.Post) (posts.Post, error)
	Update(ctx context.Context, id int64, patch posts.PostPatch) (posts.Post, error)
	Delete(ctx context.Context, id int64) error
	// Seed replaces the stored posts.
	Seed(ctx context.Context, list []posts.Post) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	posts  map[int64]posts.Post
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:  make(map[int64]posts.Post),
		nextID: 1,
	}
}

func (s *MemoryStore) List(_ context.Context) ([]posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]posts.Post, 0, len(s.posts))
	for _, p := range s.posts {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return posts.Post{}, posts.ErrPostNotFound
	}
	return p, nil
}

func (s *MemoryStore) Create(_ context.Context, p posts.Post) (posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		for {
			if _, taken := s.posts[s.nextID]; !taken {
				break
			}
			s.nextID++
		}
		p.ID = s.nextID
		s.nextID++
	} else if _, exists := s.posts[p.ID]; exists {
		return posts.Post{}, posts.ErrDuplicateID
	}

	s.posts[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, patch posts.PostPatch) (posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return posts.Post{}, posts.ErrPostNotFound
	}
	p = patch.Apply(p)
	s.posts[id] = p
	return p, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return posts.ErrPostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryStore) Seed(_ context.Context, list []posts.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = make(map[int64]posts.Post, len(list))
	s.nextID = 1
	for _, p := range list {
		if _, exists := s.posts[p.ID]; exists {
			return posts.ErrDuplicateID
		}
		s.posts[p.ID] = p
	}
	return nil
}
