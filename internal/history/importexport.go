package history

import (
	"fmt"

	"github.com/starford/fiche/internal/models"
)

// ImportResult summarises an import merge.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Import merges an exported record array into the store. Records missing
// an id or markup are dropped, ids already present are skipped (existing
// records win), and the merged set is re-capped to the MaxDocuments most
// recent entries.
func (s *Store) Import(records []models.Document) (ImportResult, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return ImportResult{}, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing := map[string]struct{}{}
	rows, err := tx.Query(`SELECT id FROM documents`)
	if err != nil {
		return ImportResult{}, fmt.Errorf("history: import: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ImportResult{}, err
		}
		existing[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for _, rec := range records {
		if rec.ID == "" || rec.HTML == "" {
			res.Skipped++
			continue
		}
		if _, dup := existing[rec.ID]; dup {
			res.Skipped++
			continue
		}
		if err := insertDocument(tx, rec); err != nil {
			return ImportResult{}, err
		}
		existing[rec.ID] = struct{}{}
		res.Added++
	}

	if err := prune(tx); err != nil {
		return ImportResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("history: commit import: %w", err)
	}

	n, err := s.Count()
	if err != nil {
		return ImportResult{}, err
	}
	res.Total = n
	return res, nil
}

// Export returns every stored record, newest first, for serialization as
// a JSON array.
func (s *Store) Export() ([]models.Document, error) {
	return s.List(false)
}
