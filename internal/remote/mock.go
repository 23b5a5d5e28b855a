package remote

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/models"
)

// MockStore is an in-memory object store shared by every MockClient it hands
// out. It is safe for concurrent use and records calls per operation.
type MockStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]*mockObject
	calls   map[string]int
	fail    map[string]int
	clients int

	// FailWith is returned by injected failures; nil uses a generic error.
	FailWith error
}

type mockObject struct {
	data []byte
	info models.RemoteObject
}

func NewMockStore() *MockStore {
	return &MockStore{
		buckets: make(map[string]map[string]*mockObject),
		calls:   make(map[string]int),
		fail:    make(map[string]int),
	}
}

// Client returns a new client bound to bucket.
func (s *MockStore) Client(bucket string) *MockClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients++
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]*mockObject)
	}
	return &MockClient{store: s, bucket: bucket}
}

// Factory returns a Factory producing one client per call.
func (s *MockStore) Factory(bucket string) Factory {
	return func() (Client, error) { return s.Client(bucket), nil }
}

// Seed stores an object directly, bypassing call accounting.
func (s *MockStore) Seed(bucket, key string, data []byte, storageClass string) models.RemoteObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]*mockObject)
	}
	info := models.RemoteObject{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         contentETag(data),
		StorageClass: storageClass,
		Tier:         models.TierOf(storageClass),
		LastModified: time.Now().UTC(),
	}
	s.buckets[bucket][key] = &mockObject{data: append([]byte(nil), data...), info: info}
	return info
}

// SetTags replaces the tags of a stored object.
func (s *MockStore) SetTags(bucket, key string, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.buckets[bucket][key]; ok {
		obj.info.Tags = tags
	}
}

// SetRestore forces the restore state of a cold object.
func (s *MockStore) SetRestore(bucket, key string, state models.RestoreState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.buckets[bucket][key]; ok {
		obj.info.Restore = state
	}
}

// Corrupt replaces an object's content and keeps its recorded metadata.
func (s *MockStore) Corrupt(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.buckets[bucket][key]; ok {
		obj.data = append([]byte(nil), data...)
	}
}

// Object returns a stored object's metadata and content.
func (s *MockStore) Object(bucket, key string) (models.RemoteObject, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return models.RemoteObject{}, nil, false
	}
	return obj.info, append([]byte(nil), obj.data...), true
}

// FailNext makes the next n calls of op fail.
func (s *MockStore) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = n
}

// Calls returns how many times op was invoked.
func (s *MockStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Clients returns how many clients were handed out.
func (s *MockStore) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

// enter records a call and reports an injected failure. Caller holds mu.
func (s *MockStore) enter(op string) error {
	s.calls[op]++
	if s.fail[op] > 0 {
		s.fail[op]--
		if s.FailWith != nil {
			return s.FailWith
		}
		return fmt.Errorf("mock %s: service unavailable", op)
	}
	return nil
}

func contentETag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MockClient implements Client against a MockStore.
type MockClient struct {
	store  *MockStore
	bucket string
}

var _ Client = (*MockClient)(nil)

func (c *MockClient) Bucket() string { return c.bucket }

func (c *MockClient) lookup(key string) (*mockObject, error) {
	obj, ok := c.store.buckets[c.bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c.bucket, key)
	}
	return obj, nil
}

func (c *MockClient) Put(_ context.Context, key, localPath string, opts PutOptions) (models.RemoteObject, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return models.RemoteObject{}, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("put"); err != nil {
		return models.RemoteObject{}, err
	}
	info := models.RemoteObject{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         contentETag(data),
		StorageClass: opts.StorageClass,
		Tier:         models.TierOf(opts.StorageClass),
		LastModified: time.Now().UTC(),
		Tags:         opts.Tags,
	}
	c.store.buckets[c.bucket][key] = &mockObject{data: data, info: info}
	return info, nil
}

func (c *MockClient) Get(_ context.Context, key, _ string) (io.ReadCloser, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("get"); err != nil {
		return nil, err
	}
	obj, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if obj.info.Tier == models.TierCold && obj.info.Restore != models.RestoreReady {
		return nil, fmt.Errorf("%w: %s", ErrNotRestored, key)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), nil
}

func (c *MockClient) Copy(_ context.Context, key, _, dstBucket, dstKey, storageClass string) (models.RemoteObject, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("copy"); err != nil {
		return models.RemoteObject{}, err
	}
	obj, err := c.lookup(key)
	if err != nil {
		return models.RemoteObject{}, err
	}
	if obj.info.Tier == models.TierCold && obj.info.Restore != models.RestoreReady {
		return models.RemoteObject{}, fmt.Errorf("%w: %s", ErrNotRestored, key)
	}
	if _, ok := c.store.buckets[dstBucket]; !ok {
		c.store.buckets[dstBucket] = make(map[string]*mockObject)
	}
	info := obj.info
	info.Key = dstKey
	info.StorageClass = storageClass
	info.Tier = models.TierOf(storageClass)
	info.Restore = models.RestoreNeverRequested
	c.store.buckets[dstBucket][dstKey] = &mockObject{data: append([]byte(nil), obj.data...), info: info}
	return info, nil
}

func (c *MockClient) Delete(_ context.Context, key, _ string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("delete"); err != nil {
		return err
	}
	delete(c.store.buckets[c.bucket], key)
	return nil
}

func (c *MockClient) List(_ context.Context, prefix string) ([]models.RemoteObject, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("list"); err != nil {
		return nil, err
	}
	var out []models.RemoteObject
	for key, obj := range c.store.buckets[c.bucket] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		info := obj.info
		// Listings carry neither restore status nor tags.
		info.Restore = models.RestoreNeverRequested
		info.Tags = nil
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (c *MockClient) Stat(_ context.Context, key, _ string) (models.RemoteObject, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("stat"); err != nil {
		return models.RemoteObject{}, err
	}
	obj, err := c.lookup(key)
	if err != nil {
		return models.RemoteObject{}, err
	}
	return obj.info, nil
}

func (c *MockClient) Tags(_ context.Context, key, _ string) (map[string]string, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("tags"); err != nil {
		return nil, err
	}
	obj, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(obj.info.Tags))
	for k, v := range obj.info.Tags {
		out[k] = v
	}
	return out, nil
}

func (c *MockClient) RequestRestore(_ context.Context, key, _ string, _ RestoreOptions) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.enter("restore"); err != nil {
		return err
	}
	obj, err := c.lookup(key)
	if err != nil {
		return err
	}
	if obj.info.Restore == models.RestorePending {
		return fmt.Errorf("%w: %s", ErrRestoreInProgress, key)
	}
	obj.info.Restore = models.RestorePending
	return nil
}
