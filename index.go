package searchable

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/nlstn/go-searchable/internal/index"
)

// Index answers a search term with record ids, best match first.
type Index interface {
	Search(ctx context.Context, term string) ([]interface{}, error)
}

// IndexFunc adapts a function to Index.
type IndexFunc func(ctx context.Context, term string) ([]interface{}, error)

// Search calls f(ctx, term).
func (f IndexFunc) Search(ctx context.Context, term string) ([]interface{}, error) {
	return f(ctx, term)
}

// DocumentIndex is an Index over the search_documents table, holding the text
// of one kind of record. Several kinds can share a database.
//
// A term matches a record when its text contains every word of the term,
// ignoring case. Records are ranked by how often the first word occurs.
type DocumentIndex struct {
	store *index.Store
	kind  string
	limit int
}

// NewDocumentIndex returns an index for records of kind stored in db.
// Call Migrate once before use.
func NewDocumentIndex(db *gorm.DB, kind string) *DocumentIndex {
	return &DocumentIndex{store: index.NewStore(db), kind: kind}
}

// SetLogger sets the logger used for index operations; nil restores slog.Default().
func (d *DocumentIndex) SetLogger(logger *slog.Logger) {
	d.store.SetLogger(logger)
}

// SetLimit caps the number of ids returned per search; 0 disables the cap.
func (d *DocumentIndex) SetLimit(limit int) {
	d.limit = limit
}

// Migrate creates the documents table
func (d *DocumentIndex) Migrate(ctx context.Context) error {
	return d.store.Migrate(ctx)
}

// Put indexes text for the record with the given id
func (d *DocumentIndex) Put(ctx context.Context, recordID, text string) error {
	return d.store.Put(ctx, d.kind, recordID, text)
}

// Delete removes the record with the given id from the index
func (d *DocumentIndex) Delete(ctx context.Context, recordID string) error {
	return d.store.Delete(ctx, d.kind, recordID)
}

// Search implements Index.
func (d *DocumentIndex) Search(ctx context.Context, term string) ([]interface{}, error) {
	ids, err := d.store.Search(ctx, d.kind, term, d.limit)
	if err != nil {
		return nil, err
	}
	return Values(ids), nil
}
