package vectorstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	IndexExt = ".index"
	TextsExt = ".texts.db"
	LockExt  = ".lock"

	indexMagic      = "SQIX"
	indexVersion    = uint32(1)
	indexHeaderSize = 4 + 4 + 4 + 8

	lockTimeout = 10 * time.Second
	lockRetry   = 50 * time.Millisecond
)

var (
	textsBucket = []byte("texts")
	metaBucket  = []byte("meta")
	metaKey     = []byte("index")
)

// Paths locates the artifact pair. Extensions are appended to both.
type Paths struct {
	IndexPath  string
	ChunksPath string
}

func (p Paths) IndexFile() string { return p.IndexPath + IndexExt }
func (p Paths) TextsFile() string { return p.ChunksPath + TextsExt }
func (p Paths) LockFile() string  { return p.IndexPath + LockExt }

func (p Paths) configured() bool {
	return p.IndexPath != "" && p.ChunksPath != ""
}

// Metadata describes the last successful indexing run.
type Metadata struct {
	SourceURL  string    `json:"source_url"`
	CrawlID    string    `json:"crawl_id,omitempty"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	Dimension  int       `json:"dimension"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Save writes the text list and then the index, each to a temp file renamed
// into place, under an exclusive file lock.
func (s *Store) Save(meta Metadata) error {
	if !s.paths.configured() {
		return ErrNoPath
	}
	for _, dir := range []string{filepath.Dir(s.paths.IndexFile()), filepath.Dir(s.paths.TextsFile())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	unlock, err := s.lock(false)
	if err != nil {
		return err
	}
	defer unlock()

	meta.ChunkCount = s.count
	meta.Dimension = s.dim
	if meta.IndexedAt.IsZero() {
		meta.IndexedAt = time.Now().UTC()
	}

	if err := s.writeTexts(meta); err != nil {
		return err
	}
	if err := s.writeIndex(); err != nil {
		return err
	}

	s.logger.Info("saved index",
		zap.String("index", s.paths.IndexFile()),
		zap.String("texts", s.paths.TextsFile()),
		zap.Int("count", s.count))
	return nil
}

func (s *Store) writeTexts(meta Metadata) error {
	final := s.paths.TextsFile()
	tmp := final + ".tmp"
	_ = os.Remove(tmp)

	db, err := bolt.Open(tmp, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("failed to open text list: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucket(textsBucket)
		if err != nil {
			return err
		}
		b.FillPercent = 1.0
		for i, text := range s.texts {
			if err := b.Put(positionKey(i), []byte(text)); err != nil {
				return err
			}
		}

		m, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return m.Put(metaKey, data)
	})
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write text list: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to replace text list: %w", err)
	}
	return nil
}

func (s *Store) writeIndex() error {
	final := s.paths.IndexFile()
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	w := bufio.NewWriter(f)
	err = writeIndexTo(w, s.dim, s.count, s.vectors)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write index file: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

func writeIndexTo(w io.Writer, dim, count int, vectors []float32) error {
	if _, err := io.WriteString(w, indexMagic); err != nil {
		return err
	}
	header := []any{indexVersion, uint32(dim), uint64(count)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, vectors)
}

// Load replaces the in-memory contents with the artifact pair on disk.
func (s *Store) Load() error {
	if !s.paths.configured() {
		return ErrNoPath
	}

	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()

	indexExists, err := fileExists(s.paths.IndexFile())
	if err != nil {
		return err
	}
	textsExists, err := fileExists(s.paths.TextsFile())
	if err != nil {
		return err
	}
	switch {
	case !indexExists && !textsExists:
		return ErrNoIndex
	case !indexExists:
		return fmt.Errorf("missing %s: %w", s.paths.IndexFile(), ErrCorruptIndex)
	case !textsExists:
		return fmt.Errorf("missing %s: %w", s.paths.TextsFile(), ErrCorruptIndex)
	}

	vectors, count, err := s.readIndex()
	if err != nil {
		return err
	}
	texts, err := s.readTexts()
	if err != nil {
		return err
	}
	if len(texts) != count {
		s.logger.Warn("index and text list sizes differ",
			zap.Int("vectors", count),
			zap.Int("texts", len(texts)))
	}

	s.vectors = vectors
	s.count = count
	s.texts = texts
	return nil
}

func (s *Store) readIndex() ([]float32, int, error) {
	f, err := os.Open(s.paths.IndexFile())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat index file: %w", err)
	}

	r := bufio.NewReader(f)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return nil, 0, fmt.Errorf("bad index header: %w", ErrCorruptIndex)
	}
	var version, dim uint32
	var count uint64
	for _, v := range []any{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, 0, fmt.Errorf("truncated index header: %w", ErrCorruptIndex)
		}
	}
	if version != indexVersion {
		return nil, 0, fmt.Errorf("unsupported index version %d: %w", version, ErrCorruptIndex)
	}
	if int(dim) != s.dim {
		return nil, 0, fmt.Errorf("index dimension %d, store dimension %d: %w", dim, s.dim, ErrDimensionMismatch)
	}

	expected := int64(indexHeaderSize) + int64(count)*int64(dim)*4
	if info.Size() != expected {
		return nil, 0, fmt.Errorf("index file is %d bytes, want %d: %w", info.Size(), expected, ErrCorruptIndex)
	}

	vectors := make([]float32, int(count)*int(dim))
	if err := binary.Read(r, binary.LittleEndian, vectors); err != nil {
		return nil, 0, fmt.Errorf("failed to read vectors: %w", ErrCorruptIndex)
	}
	return vectors, int(count), nil
}

func (s *Store) readTexts() ([]string, error) {
	var texts []string
	err := s.viewTexts(func(tx *bolt.Tx) error {
		b := tx.Bucket(textsBucket)
		if b == nil {
			return fmt.Errorf("text list has no %q bucket: %w", textsBucket, ErrCorruptIndex)
		}
		texts = make([]string, 0, b.Stats().KeyN)
		return b.ForEach(func(_, v []byte) error {
			texts = append(texts, string(v))
			return nil
		})
	})
	return texts, err
}

// ReadMetadata returns the metadata of the saved index without loading it.
func (s *Store) ReadMetadata() (*Metadata, error) {
	if !s.paths.configured() {
		return nil, ErrNoPath
	}

	unlock, err := s.lock(true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := fileExists(s.paths.TextsFile())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNoIndex
	}

	var meta Metadata
	err = s.viewTexts(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		if b == nil {
			return fmt.Errorf("text list has no %q bucket: %w", metaBucket, ErrCorruptIndex)
		}
		data := b.Get(metaKey)
		if data == nil {
			return fmt.Errorf("text list has no metadata: %w", ErrCorruptIndex)
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) viewTexts(fn func(tx *bolt.Tx) error) error {
	db, err := bolt.Open(s.paths.TextsFile(), 0o600, &bolt.Options{ReadOnly: true, Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("failed to open text list: %v: %w", err, ErrCorruptIndex)
	}
	defer db.Close()
	return db.View(fn)
}

// Clear removes both artifact files and empties the store. Absent files are
// not an error. The returned paths are the files actually removed.
func (s *Store) Clear() ([]string, error) {
	s.reset()
	if !s.paths.configured() {
		return []string{}, nil
	}

	unlock, err := s.lock(false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	removed := []string{}
	var errs []error
	for _, path := range []string{s.paths.IndexFile(), s.paths.TextsFile()} {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// lock takes the cross-process artifact lock, shared for readers.
func (s *Store) lock(shared bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.paths.LockFile()), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	l := flock.New(s.paths.LockFile())
	var locked bool
	var err error
	if shared {
		locked, err = l.TryRLockContext(ctx, lockRetry)
	} else {
		locked, err = l.TryLockContext(ctx, lockRetry)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot acquire index lock %s: %w", s.paths.LockFile(), err)
	}
	if !locked {
		return nil, fmt.Errorf("index lock %s is held by another process", s.paths.LockFile())
	}
	return func() { _ = l.Unlock() }, nil
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}
