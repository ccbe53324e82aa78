package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/models"
)

const documentColumns = `id, title, subject, color, font_size, type, parent_id, favorite, html, date`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	var favorite int
	err := row.Scan(&d.ID, &d.Title, &d.Subject, &d.Color, &d.FontSize, &d.Type, &d.ParentID, &favorite, &d.HTML, &d.Date)
	if err != nil {
		return nil, err
	}
	d.Favorite = favorite != 0
	return &d, nil
}

// Save inserts a document and evicts the oldest entries beyond the cap.
// A duplicate id is a conflict.
func (s *Store) Save(doc models.Document) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := insertDocument(tx, doc); err != nil {
		return err
	}
	if err := prune(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertDocument(tx execer, doc models.Document) error {
	favorite := 0
	if doc.Favorite {
		favorite = 1
	}
	_, err := tx.Exec(`
		INSERT INTO documents (id, title, subject, color, font_size, type, parent_id, favorite, html, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.Subject, doc.Color, doc.FontSize, doc.Type, doc.ParentID, favorite, doc.HTML, doc.Date)
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", doc.ID, apperr.ErrConflict)
	}
	return nil
}

// prune keeps only the MaxDocuments most recent records.
func prune(tx execer) error {
	_, err := tx.Exec(`
		DELETE FROM documents WHERE id NOT IN (
			SELECT id FROM documents ORDER BY date DESC, id LIMIT ?
		)
	`, MaxDocuments)
	if err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(id string) (*models.Document, error) {
	row := s.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get %s: %w", id, err)
	}
	return doc, nil
}

// List returns all documents ordered by descending date. When
// favoritesOnly is set, non-favorites are filtered out.
func (s *Store) List(favoritesOnly bool) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	if favoritesOnly {
		query += ` WHERE favorite = 1`
	}
	query += ` ORDER BY date DESC, id`

	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// UpdateHTML replaces a document's markup and title (re-derived from the
// new markup by the caller).
func (s *Store) UpdateHTML(id, html, title string) error {
	res, err := s.conn.Exec(`UPDATE documents SET html = ?, title = ? WHERE id = ?`, html, title, id)
	if err != nil {
		return fmt.Errorf("history: update %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Rename changes a document's title.
func (s *Store) Rename(id, title string) error {
	res, err := s.conn.Exec(`UPDATE documents SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("history: rename %s: %w", id, err)
	}
	return requireRow(res, id)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(id string) (bool, error) {
	res, err := s.conn.Exec(`UPDATE documents SET favorite = 1 - favorite WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("history: toggle favorite %s: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return false, err
	}
	var favorite int
	if err := s.conn.QueryRow(`SELECT favorite FROM documents WHERE id = ?`, id).Scan(&favorite); err != nil {
		return false, fmt.Errorf("history: read favorite %s: %w", id, err)
	}
	return favorite != 0, nil
}

// Duplicate copies a document under a new id with a fresh date. The copy
// is never a favorite and keeps the original's parent reference.
func (s *Store) Duplicate(id, newID string, now time.Time) (*models.Document, error) {
	src, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	dup := *src
	dup.ID = newID
	dup.Title = src.Title + " (copie)"
	dup.Date = now
	dup.Favorite = false
	if err := s.Save(dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// Delete removes a document. Children keep their parentId; dangling parent
// references are allowed and never dereferenced.
func (s *Store) Delete(id string) error {
	res, err := s.conn.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Count returns the number of stored documents.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
