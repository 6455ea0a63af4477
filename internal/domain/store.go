package domain

// SnapshotStore persists the last known snapshots between runs (BoltDB + memory).
// Sync units read it to show cached state before the first fetch lands.
type SnapshotStore interface {
	// === Collections ===
	GetDocumentList(databaseID, collectionID string, queries []string) (DocumentList, bool)
	SaveDocumentList(databaseID, collectionID string, queries []string, list DocumentList) error

	// === Documents ===
	GetDocument(databaseID, collectionID, documentID string) (*Document, bool)
	SaveDocument(doc *Document) error

	// === Account ===
	GetAccount() (*User, bool)
	SaveAccount(user *User) error

	// === Invalidation ===
	InvalidateDocument(databaseID, collectionID, documentID string)
	InvalidateCollection(databaseID, collectionID string)
	InvalidateAccount()
	InvalidateAll()

	Close() error
}
