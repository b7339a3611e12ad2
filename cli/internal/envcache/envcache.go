// Package envcache manages per-(language, repository) toolchain directories:
// lazy creation with a caller-supplied setup step, reuse with last-touch
// refresh, TTL-based eviction, and full purge. The cache root holds one
// subdirectory per key; directory mtime is the TTL signal.
//
// A Manager is constructed once per run and passed to the adapters that need
// environments; there is no package-level instance. Eviction runs
// synchronously at construction and on demand, never from a background
// goroutine, so it cannot race with foreground use.
package envcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultMaxAge is how long an untouched environment survives before
// EvictStale removes it.
const DefaultMaxAge = 24 * time.Hour

// ErrSetup indicates the toolchain for a language could not be created or
// verified. The caller skips that language for the run; other languages are
// unaffected.
var ErrSetup = errors.New("environment setup failed")

// SetupFunc installs and verifies the tools for one environment directory.
// It must be idempotent: absence checks inside guard against redundant
// installs, because it may be re-run defensively on reuse across processes.
type SetupFunc func(ctx context.Context, dir string) error

// Environment is a handle to one ready toolchain directory. Adapters borrow
// Path for the duration of a single invocation and must not persist it.
type Environment struct {
	Language    string
	Fingerprint string
	Path        string

	mu    sync.Mutex // serializes setup for this key
	ready bool       // setup completed in this process
}

// Fingerprint returns the stable cache key for a repository path: the first
// 8 hex digits of the SHA-256 of its absolute path. It is a path hash, not a
// content hash; two fingerprints collide only for identical paths (or a
// truncated-hash collision, which only costs a shared toolchain directory).
func Fingerprint(repoPath string) (string, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", repoPath, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:8], nil
}

// Manager owns the cache root and the key-to-environment map. All map
// access is guarded by mu; per-environment setup holds the environment's own
// lock so distinct keys proceed independently.
type Manager struct {
	root   string
	maxAge time.Duration

	mu   sync.Mutex
	envs map[string]*Environment
}

// NewManager creates the cache root if needed and opportunistically evicts
// environments older than maxAge (DefaultMaxAge when maxAge <= 0).
func NewManager(root string, maxAge time.Duration) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "codefixer")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	m := &Manager{root: root, maxAge: maxAge, envs: make(map[string]*Environment)}
	m.EvictStale(maxAge)
	return m, nil
}

// Root returns the cache root directory.
func (m *Manager) Root() string { return m.root }

func key(language, fingerprint string) string {
	return language + "_" + fingerprint
}

// Acquire returns a ready environment for (language, fingerprint), creating
// the directory and running setup on first use. On reuse within this process
// setup is skipped and the directory mtime is refreshed; on reuse of a
// directory left by an earlier process setup is re-run defensively (its
// absence checks make that cheap). Setup failure is reported as ErrSetup.
func (m *Manager) Acquire(ctx context.Context, language, fingerprint string, setup SetupFunc) (*Environment, error) {
	m.mu.Lock()
	k := key(language, fingerprint)
	env, ok := m.envs[k]
	if !ok {
		env = &Environment{
			Language:    language,
			Fingerprint: fingerprint,
			Path:        filepath.Join(m.root, k),
		}
		m.envs[k] = env
	}
	m.mu.Unlock()

	env.mu.Lock()
	defer env.mu.Unlock()
	if err := os.MkdirAll(env.Path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrSetup, env.Path, err)
	}
	if !env.ready {
		if setup != nil {
			if err := setup(ctx, env.Path); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrSetup, language, err)
			}
		}
		env.ready = true
	}
	now := time.Now()
	// Best effort; a failed touch only risks early eviction.
	_ = os.Chtimes(env.Path, now, now)
	return env, nil
}

// EvictStale removes every environment directory whose mtime is older than
// maxAge and forgets the corresponding handles. Safe to call between runs;
// it holds the map lock for the whole sweep so no Acquire can race it.
func (m *Manager) EvictStale(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(m.root, e.Name())
		_ = os.RemoveAll(dir)
		delete(m.envs, e.Name())
	}
}

// PurgeAll unconditionally removes the entire cache root and forgets all
// handles. Used by the explicit cleanup command.
func (m *Manager) PurgeAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envs = make(map[string]*Environment)
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("purge cache root: %w", err)
	}
	return nil
}
