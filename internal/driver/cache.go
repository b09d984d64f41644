package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"cflow/internal/generator"
	"cflow/internal/ir"
	"cflow/internal/irfile"
	"cflow/internal/switchc"
)

// CacheSchema versions DiskPayload and the cache key; bump it when either changes.
const CacheSchema uint16 = 1

// Digest keys a cached function.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache stores lowered functions on disk keyed by the digest of their
// input and the lowering options. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached lowering result.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Name   string
	// Lowered is an irfile container holding the single lowered function.
	Lowered   []byte
	Switch    switchc.Stats
	Generator generator.Stats
}

// OpenDiskCache opens a cache rooted at dir. An empty dir selects
// $XDG_CACHE_HOME/cflow, falling back to ~/.cache/cflow.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "cflow")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "funcs", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	payload.Schema = CacheSchema
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or one written by another schema
// version reports false with no error.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if out.Schema != CacheSchema {
		return false, nil
	}
	return true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "funcs"))
}

// funcKey digests the encoded input function together with the options
// that influence its lowering.
func funcKey(f *ir.Function, opts Options) (Digest, error) {
	data, err := irfile.Marshal(&ir.Module{Funcs: []*ir.Function{f}})
	if err != nil {
		return Digest{}, err
	}
	h := sha256.New()
	var hdr [10]byte
	binary.LittleEndian.PutUint16(hdr[0:], CacheSchema)
	binary.LittleEndian.PutUint64(hdr[2:], uint64(opts.maxDepth()))
	h.Write(hdr[:])
	h.Write([]byte(irfile.FormatVersion))
	h.Write([]byte{0})
	h.Write([]byte(opts.equalsMethod()))
	h.Write([]byte{0})
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

func payloadFor(out *ir.Function, sw switchc.Stats, gen generator.Stats) (*DiskPayload, error) {
	data, err := irfile.Marshal(&ir.Module{Funcs: []*ir.Function{out}})
	if err != nil {
		return nil, err
	}
	return &DiskPayload{Name: out.Name, Lowered: data, Switch: sw, Generator: gen}, nil
}

func (p *DiskPayload) function() (*ir.Function, error) {
	m, err := irfile.Decode(bytes.NewReader(p.Lowered))
	if err != nil {
		return nil, err
	}
	if len(m.Funcs) != 1 || m.Funcs[0] == nil || m.Funcs[0].Name != p.Name {
		return nil, fmt.Errorf("cache entry for %s holds %d functions", p.Name, len(m.Funcs))
	}
	return m.Funcs[0], nil
}
