package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBSink is a durable local Sink backed by a goleveldb database. Values
// are stored JSON-encoded so the database stays inspectable with standard
// tooling. The sink owns the database handle; Close must be called when the
// marketplace shuts down.
type LevelDBSink struct {
	db   *leveldb.DB
	path string
}

// OpenLevelDBSink opens (or creates) a leveldb database at path.
func OpenLevelDBSink(path string) (*LevelDBSink, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDBSink{db: db, path: path}, nil
}

// Name identifies the sink.
func (s *LevelDBSink) Name() string { return "leveldb" }

// Put stores the JSON encoding of value under key.
func (s *LevelDBSink) Put(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Put([]byte(key), data, nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", key, err)
	}
	return nil
}

// Get decodes the value stored under key into out. Returns leveldb.ErrNotFound
// when the key is absent.
func (s *LevelDBSink) Get(key string, out any) error {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Keys returns all stored keys with the given prefix.
func (s *LevelDBSink) Keys(prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// Close releases the database handle.
func (s *LevelDBSink) Close() error { return s.db.Close() }
