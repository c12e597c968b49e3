// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes discovered article records in SQLite so earlier
// harvests can be browsed offline. Lookups are plain term filters ordered
// by publication date; there is no relevance ranking.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

const defaultLimit = 20

// Store is the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			author_names TEXT NOT NULL DEFAULT '',
			abstract TEXT,
			categories TEXT NOT NULL,
			primary_category TEXT,
			published TEXT,
			updated TEXT,
			doi TEXT,
			journal_ref TEXT,
			comment TEXT,
			abs_url TEXT,
			pdf_url TEXT,
			source_url TEXT,
			indexed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_primary ON articles(primary_category)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return s.addColumnIfMissing("articles", "author_names", `TEXT NOT NULL DEFAULT ''`)
}

// addColumnIfMissing upgrades catalogs created before the column existed.
func (s *Store) addColumnIfMissing(table, column, decl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scanning %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("adding %s.%s: %w", table, column, err)
	}
	return nil
}

// Upsert inserts or refreshes the records in one transaction.
func (s *Store) Upsert(ctx context.Context, recs []types.ArticleRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range recs {
		authors, err := json.Marshal(r.Authors)
		if err != nil {
			return fmt.Errorf("encoding authors for %s: %w", r.ID, err)
		}
		query, args, err := sq.Insert("articles").
			Columns("id", "title", "authors", "author_names", "abstract", "categories", "primary_category",
				"published", "updated", "doi", "journal_ref", "comment",
				"abs_url", "pdf_url", "source_url", "indexed_at").
			Values(r.ID, r.Title, string(authors), authorNames(r.Authors), r.Abstract, padCategories(r.Categories), r.PrimaryCategory,
				formatTime(r.Published), formatTime(r.Updated), r.DOI, r.JournalRef, r.Comment,
				r.AbsURL, r.PDFURL, r.SourceURL, now).
			Suffix(`ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				authors = excluded.authors,
				author_names = excluded.author_names,
				abstract = excluded.abstract,
				categories = excluded.categories,
				primary_category = excluded.primary_category,
				published = excluded.published,
				updated = excluded.updated,
				doi = excluded.doi,
				journal_ref = excluded.journal_ref,
				comment = excluded.comment,
				abs_url = excluded.abs_url,
				pdf_url = excluded.pdf_url,
				source_url = excluded.source_url,
				indexed_at = excluded.indexed_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("building upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Filter narrows a catalog lookup.
type Filter struct {
	// Terms must all appear in the title, abstract, author names, or
	// categories (case-insensitive).
	Terms []string
	// Category, when set, must be one of the record's categories.
	Category string
	Limit    int
}

// Search returns matching records, newest first.
func (s *Store) Search(ctx context.Context, f Filter) ([]types.ArticleRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	b := sq.Select("id", "title", "authors", "abstract", "categories", "primary_category",
		"published", "updated", "doi", "journal_ref", "comment", "abs_url", "pdf_url", "source_url").
		From("articles").
		OrderBy("published DESC", "id").
		Limit(uint64(limit))

	for _, term := range f.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		b = b.Where(sq.Or{
			sq.Expr(`lower(title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`lower(abstract) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`lower(author_names) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`lower(categories) LIKE ? ESCAPE '\'`, pattern),
		})
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		b = b.Where(sq.Expr(`categories LIKE ? ESCAPE '\'`, "% "+escapeLike(cat)+" %"))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building search: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	var out []types.ArticleRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one record by identifier. ok is false when absent.
func (s *Store) Get(ctx context.Context, id string) (rec types.ArticleRecord, ok bool, err error) {
	query, args, err := sq.Select("id", "title", "authors", "abstract", "categories", "primary_category",
		"published", "updated", "doi", "journal_ref", "comment", "abs_url", "pdf_url", "source_url").
		From("articles").
		Where(sq.Eq{"id": types.NormalizeID(id)}).
		ToSql()
	if err != nil {
		return rec, false, fmt.Errorf("building lookup: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return rec, false, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return rec, false, rows.Err()
	}
	rec, err = scanRecord(rows)
	return rec, err == nil, err
}

// Count returns the number of indexed records.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("articles").ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (types.ArticleRecord, error) {
	var (
		r                                       types.ArticleRecord
		authors, cats                           string
		abstract, primary, published, updated   sql.NullString
		doi, journal, comment, abs, pdf, source sql.NullString
	)
	if err := rows.Scan(&r.ID, &r.Title, &authors, &abstract, &cats, &primary,
		&published, &updated, &doi, &journal, &comment, &abs, &pdf, &source); err != nil {
		return r, fmt.Errorf("scanning article: %w", err)
	}
	if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
		return r, fmt.Errorf("decoding authors for %s: %w", r.ID, err)
	}
	r.Categories = strings.Fields(cats)
	r.Abstract = abstract.String
	r.PrimaryCategory = primary.String
	r.Published = parseTime(published.String)
	r.Updated = parseTime(updated.String)
	r.DOI = doi.String
	r.JournalRef = journal.String
	r.Comment = comment.String
	r.AbsURL = abs.String
	r.PDFURL = pdf.String
	r.SourceURL = source.String
	return r, nil
}

// authorNames joins the names for term matching, without the JSON keys
// and affiliations of the authors column.
func authorNames(authors []types.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, "; ")
}

// padCategories stores categories space-separated with a leading and
// trailing space so a single LIKE can match a whole tag.
func padCategories(cats []string) string {
	return " " + strings.Join(cats, " ") + " "
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
