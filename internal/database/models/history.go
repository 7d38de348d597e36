package models

import (
	"database/sql"
	"time"
)

// HistoryEntry records one source that was added for watching, so a party
// can find things again after the in-memory registry is gone.
type HistoryEntry struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	MagnetURL string    `json:"magnet_url"`
	TotalSize int64     `json:"total_size"`
	AddedAt   time.Time `json:"added_at"`
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Record(title, magnetURL string, totalSize int64) error {
	_, err := r.db.Exec(`
        INSERT INTO watch_history (title, magnet_url, total_size, added_at)
        VALUES (?, ?, ?, ?)`,
		title, magnetURL, totalSize, time.Now().UTC(),
	)
	return err
}

func (r *HistoryRepository) Recent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
        SELECT id, title, magnet_url, total_size, added_at
        FROM watch_history
        ORDER BY added_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.MagnetURL, &e.TotalSize, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
