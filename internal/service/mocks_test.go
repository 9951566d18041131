package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/domain/user"
	"github.com/Strob0t/dexcache/internal/port/messagequeue"
)

// --- refdata.Fetcher ---

type mockFetcher struct {
	pokemon    map[string][]byte
	chains     map[int][]byte
	err        error
	gate       chan struct{} // when non-nil, fetches block until closed
	calls      atomic.Int64
	chainCalls atomic.Int64
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{pokemon: map[string][]byte{}, chains: map[int][]byte{}}
}

// addPokemon registers a minimal upstream record under both its name and id.
func (f *mockFetcher) addPokemon(id int, name string) {
	raw := []byte(fmt.Sprintf(`{"id":%d,"name":%q,"height":4,"weight":60,"types":[{"slot":1,"type":{"name":"electric"}}]}`, id, name))
	f.pokemon[name] = raw
	f.pokemon[strconv.Itoa(id)] = raw
}

func (f *mockFetcher) FetchPokemon(_ context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.pokemon[key]
	if !ok {
		return nil, fmt.Errorf("pokemon %s: %w", key, domain.ErrNotFound)
	}
	return raw, nil
}

func (f *mockFetcher) FetchEvolutionChain(_ context.Context, id int) ([]byte, error) {
	f.chainCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.chains[id]
	if !ok {
		return nil, fmt.Errorf("evolution chain %d: %w", id, domain.ErrNotFound)
	}
	return raw, nil
}

// --- messagequeue.Queue ---

type published struct {
	subject string
	data    []byte
}

type mockQueue struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	handler    messagequeue.Handler
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, published{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = h
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) messages() []published {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]published(nil), q.published...)
}

// --- database.UserStore ---

type mockUserStore struct {
	mu    sync.Mutex
	users map[string]user.User
	err   error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]user.User{}}
}

func (m *mockUserStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[u.Username]; ok {
		return fmt.Errorf("create user %s: %w", u.Username, domain.ErrConflict)
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.Username] = *u
	return nil
}

func (m *mockUserStore) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", username, domain.ErrNotFound)
	}
	return &u, nil
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *mockUserStore) UpdatePassword(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return fmt.Errorf("update password for %s: %w", username, domain.ErrNotFound)
	}
	u.PasswordHash = hash
	m.users[username] = u
	return nil
}

func (m *mockUserStore) DeleteAllUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.users))
	m.users = map[string]user.User{}
	return n, nil
}

// --- cache.Cache ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
