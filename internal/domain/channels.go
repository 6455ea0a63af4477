package domain

import "fmt"

// AccountChannel carries events for the authenticated account
const AccountChannel = "account"

// CollectionChannel returns the channel for every document in a collection
func CollectionChannel(databaseID, collectionID string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents", databaseID, collectionID)
}

// DocumentChannel returns the channel for a single document
func DocumentChannel(databaseID, collectionID, documentID string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents.%s", databaseID, collectionID, documentID)
}
