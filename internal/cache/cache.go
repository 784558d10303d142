// Package cache is a small bbolt-backed store for resolved media info and watch history.
// Resolved stream URLs are signed and short-lived, so cached entries carry a save timestamp and
// are treated as absent once stale.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	mcedia "github.com/tobyprime/Mcedia-sub001"
)

var Buckets = struct {
	Metadata  []byte
	MediaInfo []byte
	History   []byte
}{
	Metadata:  []byte("__metadata__"),
	MediaInfo: []byte("media_info"),
	History:   []byte("history"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

// DefaultMaxAge bounds how long a cached resolution stays usable.
const DefaultMaxAge = 30 * time.Minute

type entry struct {
	Info    *mcedia.MediaInfo `json:"info"`
	SavedAt time.Time         `json:"saved_at"`
}

// HistoryEntry is one watched URL, in insertion order.
type HistoryEntry struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	WatchedAt time.Time `json:"watched_at"`
}

type Cache struct {
	db *bbolt.DB
}

func Open(path string) (_ *Cache, err error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists(Buckets.MediaInfo); err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists(Buckets.History); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes != nil {
			if err = json.Unmarshal(versionBytes, &version); err != nil {
				return err
			}
		}
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores a successful resolution keyed by the raw URL it started from.
func (c *Cache) Put(rawURL string, info *mcedia.MediaInfo) error {
	data, err := json.Marshal(entry{Info: info, SavedAt: time.Now()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.MediaInfo).Put([]byte(rawURL), data)
	})
}

// Get returns the cached resolution for a raw URL, or (nil, nil) on a miss. Entries older than
// maxAge are misses.
func (c *Cache) Get(rawURL string, maxAge time.Duration) (*mcedia.MediaInfo, error) {
	var info *mcedia.MediaInfo
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(Buckets.MediaInfo).Get([]byte(rawURL))
		if data == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			// A corrupt entry is just a miss.
			return nil
		}
		if time.Since(e.SavedAt) > maxAge {
			return nil
		}
		info = e.Info
		return nil
	})
	return info, err
}

// AppendHistory records a watched URL.
func (c *Cache) AppendHistory(rawURL string, info *mcedia.MediaInfo) error {
	e := HistoryEntry{URL: rawURL, WatchedAt: time.Now()}
	if info != nil {
		e.Title = info.Title
		e.Platform = info.Platform
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.History)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// History returns the most recent entries, newest first, up to limit (0 = all).
func (c *Cache) History(limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := c.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(Buckets.History).Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
