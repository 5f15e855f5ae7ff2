// Package docstore is the document-store collaborator behind the engine:
// point reads, newest-first equality queries, and etag-conditional replace
// over schemaless JSON documents. The Redis implementation is the default
// backend; the Store interface exists so a different document database can
// be swapped in without touching engine code.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// Field names every document carries.
const (
	// FieldID identifies a document within its collection.
	FieldID = "id"
	// FieldETag is the opaque concurrency token, rewritten by the store on
	// every write.
	FieldETag = "_etag"
)

var (
	// ErrNotFound means no document matched the id or query.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrPreconditionFailed means the etag supplied to Replace no longer
	// matches the stored document; a concurrent writer won.
	ErrPreconditionFailed = errors.New("docstore: etag precondition failed")
	// ErrPartitionChanged means a replace attempted to move a document to a
	// different partition key value.
	ErrPartitionChanged = errors.New("docstore: partition key value may not change")
	// ErrNotIndexed means FindNewest was asked about a field the collection
	// does not index.
	ErrNotIndexed = errors.New("docstore: field not indexed")
	// ErrUnknownCollection means the collection was never registered.
	ErrUnknownCollection = errors.New("docstore: unknown collection")
	// ErrUnavailable wraps backend transport faults.
	ErrUnavailable = errors.New("docstore: backend unavailable")
)

// Document is a schemaless record.
type Document map[string]any

// Clone returns a shallow copy. Engine code tops documents with scalar
// fields only, so a shallow copy is sufficient for write isolation.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Collection describes how documents of one kind are stored.
type Collection struct {
	Name string
	// PartitionField, when set, is pinned across replaces.
	PartitionField string
	// IndexFields are equality-queryable through FindNewest, newest write
	// first.
	IndexFields []string
}

// Store is the minimal surface the engine needs from a document database.
// All methods are single round-trips; retry and timeout policy belongs to
// the backing client.
type Store interface {
	// Get returns the document with the given id.
	Get(ctx context.Context, collection, id string) (Document, error)

	// FindNewest returns the most recently inserted document whose indexed
	// field equals value.
	FindNewest(ctx context.Context, collection, field, value string) (Document, error)

	// Insert writes a new document, assigning an id when absent, and
	// returns the document's etag.
	Insert(ctx context.Context, collection string, doc Document) (string, error)

	// Replace overwrites the document with doc's id. A non-empty
	// expectedETag makes the write conditional: it fails with
	// ErrPreconditionFailed unless the stored etag still matches. An empty
	// expectedETag replaces unconditionally (last write wins); callers that
	// care about lost updates must pass the etag they read. The partition
	// field value is pinned either way. Returns the new etag.
	Replace(ctx context.Context, collection string, doc Document, expectedETag string) (string, error)
}

// Encode converts a typed value into a Document through its JSON form.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode fills a typed value from a Document through its JSON form.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
