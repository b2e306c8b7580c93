package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"

	"github.com/shredwatch/shredwatch-node/fragment"
)

var log = logging.Logger("archive")

var (
	storePrefix = datastore.NewKey("archived_fragments")
	// verifiedPrefix holds the last time an already archived fragment
	// verified again. It lives apart from the records so their bytes stay
	// untouched.
	verifiedPrefix = datastore.NewKey("archive_last_verified")
)

// ErrNotFound is returned when no record is stored under a key.
var ErrNotFound = errors.New("archive: record not found")

// Store is the fragment archive. It is safe for concurrent use.
type Store struct {
	ds       datastore.Batching
	verified datastore.Batching
	cache    *lru.Cache[Key, *Record]
	clock clock.Clock
}

// NewStore wraps ds with the archive namespace.
func NewStore(ds datastore.Batching, opts ...Option) (*Store, error) {
	p := DefaultParameters()
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[Key, *Record](p.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("archive: creating cache: %w", err)
	}
	return &Store{
		ds:       namespace.Wrap(ds, storePrefix),
		verified: namespace.Wrap(ds, verifiedPrefix),
		cache:    cache,
		clock:    p.clock,
	}, nil
}

// Put upserts the verified fragment. Storing a fragment identical to the one
// already stored under its key leaves the stored bytes untouched and only
// refreshes the time it was last verified.
func (s *Store) Put(ctx context.Context, v fragment.Verified, producer fragment.Pubkey) (Key, error) {
	f := v.Fragment()
	if f == nil {
		return Key{}, fmt.Errorf("archive: empty verified fragment")
	}

	rec := &Record{Fragment: f, Producer: producer, ArchivedAt: s.clock.Now().UTC()}
	key := rec.Key()

	prev, err := s.GetByKey(ctx, key)
	switch {
	case err == nil && prev.sameContent(rec):
		if err := s.touch(ctx, key, rec.ArchivedAt); err != nil {
			return key, fmt.Errorf("archive: refreshing record %s: %w", f.ID(), err)
		}
		return key, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		log.Debugw("reading previous record", "key", key, "err", err)
	}

	data, err := rec.marshal()
	if err != nil {
		return key, fmt.Errorf("archive: encoding record %s: %w", f.ID(), err)
	}
	if err = s.ds.Put(ctx, key.dsKey(), data); err != nil {
		return key, fmt.Errorf("archive: writing record %s: %w", f.ID(), err)
	}
	s.cache.Add(key, rec)
	return key, nil
}

// Get returns the record of the fragment identified by id.
func (s *Store) Get(ctx context.Context, id fragment.ID) (*Record, error) {
	return s.GetByKey(ctx, KeyFor(id))
}

// GetByKey returns the record stored under key.
func (s *Store) GetByKey(ctx context.Context, key Key) (*Record, error) {
	if rec, ok := s.cache.Get(key); ok {
		return rec, nil
	}

	data, err := s.ds.Get(ctx, key.dsKey())
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("archive: reading record %s: %w", key, err)
	}
	rec, err := unmarshalRecord(data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, rec)
	return rec, nil
}

// GetRaw returns the stored bytes under key.
func (s *Store) GetRaw(ctx context.Context, key Key) ([]byte, error) {
	data, err := s.ds.Get(ctx, key.dsKey())
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Has reports whether a record is stored under key.
func (s *Store) Has(ctx context.Context, key Key) (bool, error) {
	if s.cache.Contains(key) {
		return true, nil
	}
	return s.ds.Has(ctx, key.dsKey())
}

// LastVerified returns the latest time the record under key was archived or
// verified again.
func (s *Store) LastVerified(ctx context.Context, key Key) (time.Time, error) {
	rec, err := s.GetByKey(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	return s.lastVerified(ctx, key.dsKey(), rec)
}

// Delete removes the record stored under key. Deleting a missing record is
// not an error.
func (s *Store) Delete(ctx context.Context, key Key) error {
	s.cache.Remove(key)
	if err := s.verified.Delete(ctx, key.dsKey()); err != nil {
		return err
	}
	return s.ds.Delete(ctx, key.dsKey())
}

func (s *Store) touch(ctx context.Context, key Key, at time.Time) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(at.UnixNano()))
	return s.verified.Put(ctx, key.dsKey(), buf[:])
}

func (s *Store) lastVerified(ctx context.Context, key datastore.Key, rec *Record) (time.Time, error) {
	data, err := s.verified.Get(ctx, key)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return rec.ArchivedAt, nil
	case err != nil:
		return time.Time{}, err
	case len(data) != 8:
		return rec.ArchivedAt, nil
	}
	at := time.Unix(0, int64(binary.LittleEndian.Uint64(data))).UTC()
	if at.Before(rec.ArchivedAt) {
		return rec.ArchivedAt, nil
	}
	return at, nil
}
