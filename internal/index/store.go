package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one indexed record: the searchable text of a record of some kind.
type Document struct {
	ID        uint   `gorm:"primaryKey"`
	Kind      string `gorm:"size:64;not null;uniqueIndex:idx_search_documents_kind_record"`
	RecordID  string `gorm:"size:191;not null;uniqueIndex:idx_search_documents_kind_record"`
	Content   string `gorm:"not null"`
	Folded    string `gorm:"not null;default:''"`
	Checksum  int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the index table name stable regardless of the naming strategy
func (Document) TableName() string {
	return "search_documents"
}

// Store persists documents through GORM and answers term lookups with record ids.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a store on db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, logger: slog.Default()}
}

// SetLogger sets the logger; nil restores slog.Default()
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// Migrate creates or updates the documents table
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to migrate search documents: %w", err)
	}
	return nil
}

// Put indexes content for a record, replacing any previous content.
// A document whose content is unchanged is left as is, keeping its UpdatedAt.
func (s *Store) Put(ctx context.Context, kind, recordID, content string) error {
	if kind == "" || recordID == "" {
		return fmt.Errorf("kind and record id are required")
	}

	doc := Document{
		Kind:     kind,
		RecordID: recordID,
		Content:  content,
		Folded:   Fold(content),
		Checksum: Checksum(content),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "record_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "folded", "checksum", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "search_documents.checksum <> excluded.checksum OR search_documents.folded <> excluded.folded"},
		}},
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to index %s %s: %w", kind, recordID, err)
	}

	s.logger.Debug("Indexed document", "kind", kind, "record_id", recordID)
	return nil
}

// Delete removes a record from the index. Deleting an unknown record is not an error.
func (s *Store) Delete(ctx context.Context, kind, recordID string) error {
	err := s.db.WithContext(ctx).
		Where("kind = ? AND record_id = ?", kind, recordID).
		Delete(&Document{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove %s %s from index: %w", kind, recordID, err)
	}
	return nil
}

// Search returns the record ids of kind whose content contains every
// whitespace-separated word of term, ignoring case. Results are ranked by
// how often the first word occurs, then by indexing order. limit <= 0 means no limit.
//
// Matching runs against the folded column, so case is compared with Unicode
// rules rather than the database's ASCII-only LOWER.
func (s *Store) Search(ctx context.Context, kind, term string, limit int) ([]string, error) {
	words := strings.Fields(Fold(term))
	if len(words) == 0 {
		return nil, nil
	}

	tx := s.db.WithContext(ctx).Model(&Document{}).Where("kind = ?", kind)
	for _, word := range words {
		tx = tx.Where("folded LIKE ? ESCAPE '\\'", "%"+escapeLike(word)+"%")
	}

	first := words[0]
	tx = tx.Clauses(clause.OrderBy{Expression: clause.Expr{
		SQL:  "(LENGTH(folded) - LENGTH(REPLACE(folded, ?, ''))) / LENGTH(?) DESC, id ASC",
		Vars: []interface{}{first, first},
	}})
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var ids []string
	if err := tx.Pluck("record_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", kind, err)
	}

	s.logger.Debug("Searched index", "kind", kind, "term", term, "hits", len(ids))
	return ids, nil
}

// Fold returns the case-folded form of text that documents and terms are compared in.
func Fold(text string) string {
	return cases.Fold().String(text)
}

// Checksum returns the content hash stored with a document.
// The xxhash sum is stored as int64 since database/sql drivers reject uint64 values above MaxInt64.
func Checksum(content string) int64 {
	return int64(xxhash.Sum64String(content))
}

// escapeLike escapes LIKE wildcards so words match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
