// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrInjected is returned by fakes when a failure hook fires without its own error.
var ErrInjected = errors.New("injected failure")

// Object is one stored blob.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryStore is an in-memory bucket.
type MemoryStore struct {
	Name string

	// FailPut returns a non-nil error to fail the Put for key.
	FailPut func(key string) error
	// CheckErr is returned by Check.
	CheckErr error
	// PresignErr is returned by Presign.
	PresignErr error

	mu      sync.Mutex
	objects map[string]Object
	puts    []string
}

// NewMemoryStore returns an empty bucket named name.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{Name: name, objects: make(map[string]Object)}
}

func (m *MemoryStore) Bucket() string { return m.Name }

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailPut != nil {
		if err := m.FailPut(key); err != nil {
			return err
		}
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return fmt.Errorf("put %s: read %d bytes, declared %d", key, len(b), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]Object)
	}
	m.objects[key] = Object{Body: b, ContentType: contentType}
	m.puts = append(m.puts, key)
	return nil
}

func (m *MemoryStore) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.CheckErr
}

func (m *MemoryStore) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	return "https://" + m.Name + ".example.invalid/" + key + "?" + q.Encode(), nil
}

func (m *MemoryStore) ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	for k := range m.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if i := strings.Index(rest, delimiter); i >= 0 {
			seen[prefix+rest[:i+len(delimiter)]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// Get returns the object stored under key.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Keys returns every stored key, sorted.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// PutOrder returns keys in the order they were written.
func (m *MemoryStore) PutOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.puts)
}

// Snapshot returns a copy of all objects.
func (m *MemoryStore) Snapshot() map[string]Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Object, len(m.objects))
	for k, v := range m.objects {
		out[k] = Object{Body: slices.Clone(v.Body), ContentType: v.ContentType}
	}
	return out
}
