// Package decodecache persists a decoded module's function address ranges
// and rendered CFG dumps, keyed by the hash of the image bytes that
// produced them, so re-running the pipeline against an unchanged binary is a
// cache hit instead of a full re-decode. Storage is an ethdb.Database opened
// over a pebble key-value store, addressed by a crypto.Keccak256Hash.
// Persistence failures here are logged and swallowed, never fatal — a cache
// is an optimization, not a source of truth. An Entry also has a Slots field
// for a stack-slot layout; the decode command in cmd/bin2ir leaves it empty.
package decodecache

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/pebble"
	"github.com/ethereum/go-ethereum/log"
)

// FunctionSnapshot records one decoded function's address range. Validating
// a cache hit (Entry.Fresh) compares only the image length, not these ranges.
type FunctionSnapshot struct {
	Address    uint64 `json:"address"`
	AddressEnd uint64 `json:"address_end"`
}

// SlotSnapshot records one interned stack slot from internal/stackpass.
type SlotSnapshot struct {
	FunctionAddress uint64 `json:"function_address"`
	Offset          int64  `json:"offset"`
	Bits            int    `json:"bits"`
	Name            string `json:"name"`
}

// Entry is the cached shape of one decoded image, plus its rendered CFG
// dumps. The dumps let a fresh hit bypass the decoder entirely rather than
// just reporting that a prior decode happened.
type Entry struct {
	ImageLength int64              `json:"image_length"`
	Functions   []FunctionSnapshot `json:"functions"`
	Slots       []SlotSnapshot     `json:"slots"`
	JSON        []byte             `json:"json,omitempty"`
	DOT         string             `json:"dot,omitempty"`
}

// Cache is a content-addressed store of Entry values.
type Cache struct {
	db ethdb.Database
}

// Open opens (creating if absent) a pebble-backed cache rooted at dir.
func Open(dir string) (*Cache, error) {
	kv, err := pebble.New(dir, 64, 64, "bin2ir/decodecache", false)
	if err != nil {
		return nil, err
	}
	return &Cache{db: rawdb.NewDatabase(kv)}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// KeyForImage derives the cache key for a raw image's bytes.
func KeyForImage(image []byte) common.Hash {
	return crypto.Keccak256Hash(image)
}

// Get returns the cached entry for hash and true on a hit. Any decode error
// on a corrupt record is treated as a miss and logged, never returned to the
// caller — a cache is never allowed to turn a successful prior decode into a
// hard failure of the current one.
func (c *Cache) Get(hash common.Hash) (Entry, bool) {
	if c == nil || c.db == nil {
		return Entry{}, false
	}
	raw, err := c.db.Get(hash.Bytes())
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Warn("decodecache: dropping corrupt cache entry", "hash", hash, "err", err)
		return Entry{}, false
	}
	return e, true
}

// Put stores e under hash, best-effort: a write failure is logged, not
// returned, since losing a cache entry never invalidates the decode that
// just produced it.
func (c *Cache) Put(hash common.Hash, e Entry) {
	if c == nil || c.db == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		log.Warn("decodecache: failed to marshal cache entry", "hash", hash, "err", err)
		return
	}
	if err := c.db.Put(hash.Bytes(), raw); err != nil {
		log.Warn("decodecache: failed to persist cache entry", "hash", hash, "err", err)
	}
}

// Fresh reports whether a cached entry still matches an image of the given
// length — a cheap validation against the live image before trusting a hit.
func (e Entry) Fresh(imageLength int) bool {
	return e.ImageLength == int64(imageLength)
}
