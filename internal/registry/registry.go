// Package registry provides a content-addressed store of compiled rule
// modules. Modules are keyed by the SHA-256 of their canonical IR text, so
// two parties holding the same digest can verify they run the same rule.
// An in-memory implementation backs the HTTP and HTTP/3 servers.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	semver "github.com/Masterminds/semver/v3"
)

// ModuleID is the content address of a published module: the lowercase hex
// SHA-256 of its canonical IR text.
type ModuleID string

// Manifest describes one published rule module version.
type Manifest struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Language  string    `json:"language"`
	Hash      ModuleID  `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Blob is a published module: its manifest plus the canonical IR text.
type Blob struct {
	Manifest Manifest `json:"manifest"`
	IRText   []byte   `json:"ir_text"`
}

// Registry stores and resolves published rule modules.
type Registry interface {
	// Publish stores a blob and returns its content address.
	Publish(ctx context.Context, blob Blob) (ModuleID, error)
	// Fetch retrieves a blob by content address.
	Fetch(ctx context.Context, id ModuleID) (Blob, error)
	// Find locates the highest version of a named module satisfying the
	// constraint (any version when nil).
	Find(ctx context.Context, name string, constraint *semver.Constraints) (ModuleID, Manifest, error)
	// List returns all known manifests for a module name.
	List(ctx context.Context, name string) ([]Manifest, error)
}

// ErrNotFound is returned when a blob or module version is unknown.
var ErrNotFound = errors.New("not found")

// InMemoryRegistry is a thread-safe, content-addressed registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	blobs map[ModuleID]Blob
	index map[string][]Manifest
}

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		blobs: make(map[ModuleID]Blob),
		index: make(map[string][]Manifest),
	}
}

// Publish stores the blob under the digest of its IR text. The manifest's
// version must parse as semver; its hash field is overwritten with the
// computed address.
func (r *InMemoryRegistry) Publish(_ context.Context, blob Blob) (ModuleID, error) {
	if blob.Manifest.Name == "" {
		return "", fmt.Errorf("manifest has no name")
	}
	if _, err := semver.NewVersion(blob.Manifest.Version); err != nil {
		return "", fmt.Errorf("invalid version %q: %w", blob.Manifest.Version, err)
	}
	if len(blob.IRText) == 0 {
		return "", fmt.Errorf("empty module body")
	}
	sum := sha256.Sum256(blob.IRText)
	id := ModuleID(hex.EncodeToString(sum[:]))
	blob.Manifest.Hash = id
	if blob.Manifest.CreatedAt.IsZero() {
		blob.Manifest.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blobs[id]; !exists {
		r.blobs[id] = blob
	}
	// Several names or versions may share one content address; index each
	// manifest, deduplicating exact (name, version) repeats.
	for _, m := range r.index[blob.Manifest.Name] {
		if m.Version == blob.Manifest.Version {
			return id, nil
		}
	}
	r.index[blob.Manifest.Name] = append(r.index[blob.Manifest.Name], blob.Manifest)
	return id, nil
}

// Fetch retrieves a blob by content address.
func (r *InMemoryRegistry) Fetch(_ context.Context, id ModuleID) (Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[id]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return blob, nil
}

// Find returns the highest published version satisfying the constraint.
func (r *InMemoryRegistry) Find(_ context.Context, name string, constraint *semver.Constraints) (ModuleID, Manifest, error) {
	r.mu.RLock()
	candidates := append([]Manifest(nil), r.index[name]...)
	r.mu.RUnlock()

	bestIdx := -1
	var bestVer *semver.Version
	for i := range candidates {
		sv, err := semver.NewVersion(candidates[i].Version)
		if err != nil {
			continue
		}
		if constraint != nil && !constraint.Check(sv) {
			continue
		}
		if bestVer == nil || sv.GreaterThan(bestVer) {
			bestVer = sv
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return "", Manifest{}, ErrNotFound
	}
	return candidates[bestIdx].Hash, candidates[bestIdx], nil
}

// parseConstraint parses a semver constraint string; empty means "any".
func parseConstraint(s string) (*semver.Constraints, error) {
	if s == "" {
		return nil, nil
	}
	return semver.NewConstraint(s)
}

// List returns all manifests for a name, sorted ascending by version.
func (r *InMemoryRegistry) List(_ context.Context, name string) ([]Manifest, error) {
	r.mu.RLock()
	out := append([]Manifest(nil), r.index[name]...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		vi, ei := semver.NewVersion(out[i].Version)
		vj, ej := semver.NewVersion(out[j].Version)
		if ei != nil || ej != nil {
			return out[i].Version < out[j].Version
		}
		return vi.LessThan(vj)
	})
	return out, nil
}
