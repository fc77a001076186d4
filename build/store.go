package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const indexFile = "index.cbor"

var storeEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("build: failed to create CBOR enc mode: %v", err))
	}
	storeEncMode = em
}

// Store is a directory of built plugins with a CBOR index. Entries are keyed
// by unit hash and Go version, since a plugin only loads into a host built
// by the same toolchain.
type Store struct {
	dir string

	mu    sync.Mutex
	index map[string]storeEntry
}

type storeEntry struct {
	BinaryName string `cbor:"1,keyasint"`
	File       string `cbor:"2,keyasint"` // relative to the store directory
	Hash       string `cbor:"3,keyasint"`
	GoVersion  string `cbor:"4,keyasint"`
	BuiltAt    int64  `cbor:"5,keyasint"` // unix seconds
}

// OpenStore opens (creating if needed) the store rooted at dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact store: %w", err)
	}
	s := &Store{dir: dir, index: make(map[string]storeEntry)}

	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact index: %w", err)
	}
	if err := cbor.Unmarshal(data, &s.index); err != nil {
		// A corrupt index only costs rebuilds.
		log.Warningf("discarding artifact index %s: %s", dir, err.Error())
		s.index = make(map[string]storeEntry)
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the artifact of the unit with hash is written.
func (s *Store) Path(hash string) string {
	return filepath.Join(s.dir, artifactFile(hash))
}

// Lookup returns the stored artifact for hash, if it was built by this
// toolchain and is still on disk.
func (s *Store) Lookup(hash string) (*Artifact, bool) {
	s.mu.Lock()
	e, ok := s.index[storeKey(hash)]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	path := filepath.Join(s.dir, e.File)
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	return &Artifact{
		BinaryName: e.BinaryName,
		Path:       path,
		Hash:       e.Hash,
		BuiltAt:    time.Unix(e.BuiltAt, 0),
		Cached:     true,
	}, true
}

// Put records a built artifact and rewrites the index.
func (s *Store) Put(a *Artifact) error {
	rel, err := filepath.Rel(s.dir, a.Path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[storeKey(a.Hash)] = storeEntry{
		BinaryName: a.BinaryName,
		File:       rel,
		Hash:       a.Hash,
		GoVersion:  runtime.Version(),
		BuiltAt:    a.BuiltAt.Unix(),
	}

	data, err := storeEncMode.Marshal(s.index)
	if err != nil {
		return fmt.Errorf("encoding artifact index: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, indexFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, indexFile))
}

// Len returns the number of indexed artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func storeKey(hash string) string {
	return hash + "@" + runtime.Version()
}
