package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/awsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketCollections = []byte("collections")
	bucketDocuments   = []byte("documents")
	bucketAccount     = []byte("account")

	allBuckets = [][]byte{bucketCollections, bucketDocuments, bucketAccount}
)

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore implements domain.SnapshotStore using BoltDB.
type SnapshotStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewSnapshotStore opens the cache for one endpoint+project pair under
// baseCacheDir. An empty baseCacheDir gives a memory-only store.
func NewSnapshotStore(baseCacheDir, endpoint, project string) (*SnapshotStore, error) {
	if baseCacheDir == "" {
		return &SnapshotStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if endpoint != "" {
		dir = filepath.Join(baseCacheDir, hashTarget(endpoint, project))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "awsync.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashTarget(endpoint, project string) string {
	normalized := strings.TrimRight(strings.ToLower(endpoint), "/") + "|" + project
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// hashQueries keys a filter set; order matters since it changes the result
func hashQueries(queries []string) string {
	hash := sha256.Sum256([]byte(strings.Join(queries, "\x00")))
	return hex.EncodeToString(hash[:8])
}

func collectionPrefix(databaseID, collectionID string) string {
	return fmt.Sprintf("db:%s:coll:%s:", databaseID, collectionID)
}

func listKey(databaseID, collectionID string, queries []string) string {
	return collectionPrefix(databaseID, collectionID) + "q:" + hashQueries(queries)
}

func documentKey(databaseID, collectionID, documentID string) string {
	return collectionPrefix(databaseID, collectionID) + "doc:" + documentID
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *SnapshotStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *SnapshotStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *SnapshotStore) delete(bucket []byte, key string) {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *SnapshotStore) deletePrefix(bucket []byte, prefix string) {
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// Collect first; deleting while iterating skips keys
		var keys [][]byte
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Collections (key: db:{db}:coll:{coll}:q:{hash}) ===

func (s *SnapshotStore) GetDocumentList(databaseID, collectionID string, queries []string) (domain.DocumentList, bool) {
	var list domain.DocumentList
	ok := s.get(bucketCollections, listKey(databaseID, collectionID, queries), &list)
	return list, ok
}

func (s *SnapshotStore) SaveDocumentList(databaseID, collectionID string, queries []string, list domain.DocumentList) error {
	return s.set(bucketCollections, listKey(databaseID, collectionID, queries), list)
}

// === Documents (key: db:{db}:coll:{coll}:doc:{id}) ===

func (s *SnapshotStore) GetDocument(databaseID, collectionID, documentID string) (*domain.Document, bool) {
	var doc domain.Document
	if !s.get(bucketDocuments, documentKey(databaseID, collectionID, documentID), &doc) {
		return nil, false
	}
	return &doc, true
}

func (s *SnapshotStore) SaveDocument(doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document has no ID", domain.ErrInvalidTarget)
	}
	return s.set(bucketDocuments, documentKey(doc.DatabaseID, doc.CollectionID, doc.ID), doc)
}

// === Account ===

func (s *SnapshotStore) GetAccount() (*domain.User, bool) {
	var user domain.User
	if !s.get(bucketAccount, "current", &user) {
		return nil, false
	}
	return &user, true
}

func (s *SnapshotStore) SaveAccount(user *domain.User) error {
	return s.set(bucketAccount, "current", user)
}

// === Cascade Invalidation (hierarchical prefix deletion) ===

// InvalidateDocument drops one cached document
func (s *SnapshotStore) InvalidateDocument(databaseID, collectionID, documentID string) {
	s.delete(bucketDocuments, documentKey(databaseID, collectionID, documentID))
}

// InvalidateCollection drops every cached listing and document of a collection
func (s *SnapshotStore) InvalidateCollection(databaseID, collectionID string) {
	prefix := collectionPrefix(databaseID, collectionID)
	s.deletePrefix(bucketCollections, prefix)
	s.deletePrefix(bucketDocuments, prefix)
}

func (s *SnapshotStore) InvalidateAccount() {
	s.delete(bucketAccount, "current")
}

func (s *SnapshotStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}
