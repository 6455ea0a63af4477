package domain

import (
	"context"
)

// DocumentRepository provides read access to database documents
type DocumentRepository interface {
	// ListDocuments returns the documents of a collection matching the queries.
	// Queries are Appwrite JSON query strings (see Equal, Limit, ...).
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (DocumentList, error)

	// GetDocument returns a single document by ID
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*Document, error)
}

// AccountRepository provides access to the authenticated account
type AccountRepository interface {
	// GetAccount returns the current user. Fails with ErrUnauthorized when
	// there is no active session.
	GetAccount(ctx context.Context) (*User, error)
}

// Subscriber opens live event feeds on realtime channels
type Subscriber interface {
	// Subscribe registers fn for every event published on channel and returns
	// a release function. Release is safe to call more than once.
	Subscribe(channel string, fn func(Event)) func()
}

// AuthResult contains the result of a successful login
type AuthResult struct {
	Session string // Session secret sent as X-Appwrite-Session
	UserID  string // Account identifier
	Email   string // Login email
}

// AuthFlow performs an interactive login against an Appwrite project.
// Implementations handle their own user interaction.
type AuthFlow interface {
	Run(ctx context.Context, endpoint, projectID string) (*AuthResult, error)
}
