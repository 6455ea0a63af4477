package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// System attribute keys carried on every Appwrite document
const (
	attrID           = "$id"
	attrCollectionID = "$collectionId"
	attrDatabaseID   = "$databaseId"
	attrCreatedAt    = "$createdAt"
	attrUpdatedAt    = "$updatedAt"
	attrPermissions  = "$permissions"
)

// Document is a single record stored in a collection
type Document struct {
	ID           string   // Unique document identifier ($id)
	CollectionID string   // Parent collection ($collectionId)
	DatabaseID   string   // Parent database ($databaseId)
	CreatedAt    string   // ISO 8601 creation time
	UpdatedAt    string   // ISO 8601 last update time
	Permissions  []string // Permission strings, e.g. read("any")

	// Data holds user-defined attributes keyed by attribute name
	Data map[string]any
}

// UnmarshalJSON splits the flat Appwrite document into system fields and Data.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = Document{Data: make(map[string]any)}
	for key, value := range raw {
		var err error
		switch key {
		case attrID:
			err = json.Unmarshal(value, &d.ID)
		case attrCollectionID:
			err = json.Unmarshal(value, &d.CollectionID)
		case attrDatabaseID:
			err = json.Unmarshal(value, &d.DatabaseID)
		case attrCreatedAt:
			err = json.Unmarshal(value, &d.CreatedAt)
		case attrUpdatedAt:
			err = json.Unmarshal(value, &d.UpdatedAt)
		case attrPermissions:
			err = json.Unmarshal(value, &d.Permissions)
		default:
			var v any
			err = json.Unmarshal(value, &v)
			d.Data[key] = v
		}
		if err != nil {
			return fmt.Errorf("document attribute %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON writes the document back in the flat Appwrite shape.
func (d Document) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d.Data)+6)
	for k, v := range d.Data {
		flat[k] = v
	}
	flat[attrID] = d.ID
	flat[attrCollectionID] = d.CollectionID
	flat[attrDatabaseID] = d.DatabaseID
	flat[attrCreatedAt] = d.CreatedAt
	flat[attrUpdatedAt] = d.UpdatedAt
	perms := d.Permissions
	if perms == nil {
		perms = []string{}
	}
	flat[attrPermissions] = perms
	return json.Marshal(flat)
}

// Clone returns a copy that shares no maps or slices with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Permissions != nil {
		c.Permissions = append([]string(nil), d.Permissions...)
	}
	if d.Data != nil {
		c.Data = make(map[string]any, len(d.Data))
		for k, v := range d.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// AttributeKeys returns the user-defined attribute names in sorted order
func (d *Document) AttributeKeys() []string {
	keys := make([]string, 0, len(d.Data))
	for k := range d.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary returns a short one-line description built from string attributes
func (d *Document) Summary() string {
	var parts []string
	for _, k := range d.AttributeKeys() {
		if s, ok := d.Data[k].(string); ok && s != "" {
			parts = append(parts, s)
		}
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " · ")
}

// DocumentList is one page of documents plus the server-side match count
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// Clone returns a deep copy of the list
func (l DocumentList) Clone() DocumentList {
	c := DocumentList{Total: l.Total}
	if l.Documents != nil {
		c.Documents = make([]Document, len(l.Documents))
		for i := range l.Documents {
			c.Documents[i] = *l.Documents[i].Clone()
		}
	}
	return c
}

// IndexOf returns the position of the document with the given ID, or -1
func (l DocumentList) IndexOf(id string) int {
	for i := range l.Documents {
		if l.Documents[i].ID == id {
			return i
		}
	}
	return -1
}

// User is the authenticated account
type User struct {
	ID                string         `json:"$id"`
	CreatedAt         string         `json:"$createdAt"`
	UpdatedAt         string         `json:"$updatedAt"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Phone             string         `json:"phone"`
	Status            bool           `json:"status"`
	Labels            []string       `json:"labels"`
	EmailVerification bool           `json:"emailVerification"`
	PhoneVerification bool           `json:"phoneVerification"`
	Registration      string         `json:"registration"`
	AccessedAt        string         `json:"accessedAt"`
	Prefs             map[string]any `json:"prefs"`
}

// DisplayName returns the name, falling back to the email and then the ID
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}
