package couch

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// DocIDPrefix is the mandatory ID prefix for documents in the
// authentication database.
const DocIDPrefix = "org.couchdb.user:"

// DefaultPasswordIterations matches the server's default PBKDF2 cost.
const DefaultPasswordIterations = 10

// AuthDatabase is the authentication database, conventionally _users.
// It behaves like any database except that document IDs carry the
// org.couchdb.user: prefix, which the accessors add automatically.
type AuthDatabase struct {
	Database
}

// UserDocID returns the full document ID for a user name.
func UserDocID(name string) string {
	if strings.HasPrefix(name, DocIDPrefix) {
		return name
	}
	return DocIDPrefix + name
}

// UserDoc addresses a user document by bare user name or full ID.
func (a *AuthDatabase) UserDoc(name string) *DocumentRef {
	return a.Doc(UserDocID(name))
}

// GetUser fetches a user document by bare user name or full ID.
func (a *AuthDatabase) GetUser(ctx context.Context, name string) (Document, error) {
	return a.UserDoc(name).Get(ctx)
}

// Register creates a user document with the given name and password.
// The password is hashed client-side with PBKDF2-SHA1 so it never
// crosses the wire in clear text. Extra fields from data are merged
// into the document.
func (a *AuthDatabase) Register(ctx context.Context, name, password string, data map[string]any) (UpdateResult, error) {
	doc := Document{
		"_id":   UserDocID(name),
		"name":  name,
		"type":  "user",
		"roles": []string{},
	}
	for k, v := range data {
		doc[k] = v
	}
	if err := setPassword(doc, password); err != nil {
		return UpdateResult{}, err
	}
	return a.UserDoc(name).Update(ctx, doc)
}

// UpdatePassword rehashes and replaces the password on an existing
// user document.
func (a *AuthDatabase) UpdatePassword(ctx context.Context, name, password string) (UpdateResult, error) {
	ref := a.UserDoc(name)
	doc, err := ref.Get(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := setPassword(doc, password); err != nil {
		return UpdateResult{}, err
	}
	return ref.Update(ctx, doc)
}

// RemoveUser deletes a user document.
func (a *AuthDatabase) RemoveUser(ctx context.Context, name string) (UpdateResult, error) {
	ref := a.UserDoc(name)
	rev, err := ref.Rev(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	return ref.Delete(ctx, rev, false)
}

func setPassword(doc Document, password string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating password salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(saltHex), DefaultPasswordIterations, sha1.Size, sha1.New)
	delete(doc, "password")
	doc["password_scheme"] = "pbkdf2"
	doc["iterations"] = DefaultPasswordIterations
	doc["salt"] = saltHex
	doc["derived_key"] = hex.EncodeToString(key)
	return nil
}
