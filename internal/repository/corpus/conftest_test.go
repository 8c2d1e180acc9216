package corpus

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/kailas-cloud/livetable/internal/db"
)

// fakeStore is an in-memory store with working pub/sub.
type fakeStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	sets   map[string]map[string]struct{}
	subs   map[string][]chan string
	getErr error
	pubErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		kv:   make(map[string][]byte),
		sets: make(map[string]map[string]struct{}),
		subs: make(map[string][]chan string),
	}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = f.kv[k]
	}
	return out, nil
}

func (f *fakeStore) SetMulti(_ context.Context, items []db.SetItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.kv[it.Key] = it.Value
	}
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.kv, k)
	}
	return nil
}

func (f *fakeStore) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(string(f.kv[key]), 10, 64)
	n++
	f.kv[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (f *fakeStore) SAdd(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]struct{})
	}
	for _, m := range members {
		f.sets[key][m] = struct{}{}
	}
	return nil
}

func (f *fakeStore) SRem(_ context.Context, key string, members ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range members {
		if _, ok := f.sets[key][m]; ok {
			delete(f.sets[key], m)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) Publish(_ context.Context, channel, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	for _, ch := range f.subs[channel] {
		ch <- message
	}
	return nil
}

func (f *fakeStore) Subscribe(ctx context.Context, channel string, fn func(message string)) error {
	ch := make(chan string, 16)
	f.mu.Lock()
	f.subs[channel] = append(f.subs[channel], ch)
	f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			fn(msg)
		}
	}
}

func (f *fakeStore) subscribers(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[channel])
}

// setRaw writes a key directly, simulating another writer.
func (f *fakeStore) setRaw(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = []byte(value)
}
