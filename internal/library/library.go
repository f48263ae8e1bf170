// Package library keeps a sqlite index of castable video files found under
// the configured media directories.
package library

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/wysentanu/localcast/internal/media"
)

// Entry is an indexed video file.
type Entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Year       int       `json:"year,omitempty"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	AddedAt    time.Time `json:"added_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Library owns the index database. Methods are safe for concurrent use;
// database/sql serializes access to the sqlite handle.
type Library struct {
	db    *sql.DB
	paths []string
	log   zerolog.Logger
}

// Open opens or creates the index at dbPath. mediaPaths are the directories
// Scan walks.
func Open(dbPath string, mediaPaths []string, logger zerolog.Logger) (*Library, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("library: open %s: %w", dbPath, err)
	}

	l := &Library{
		db:    db,
		paths: mediaPaths,
		log:   logger.With().Str("component", "library").Logger(),
	}
	if err := l.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("library: init schema: %w", err)
	}
	return l, nil
}

func (l *Library) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		year INTEGER,
		path TEXT UNIQUE NOT NULL,
		size INTEGER,
		added_at DATETIME,
		modified_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_videos_title ON videos(title);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *Library) Close() error {
	return l.db.Close()
}

// Scan walks the media directories, indexes new or changed video files, and
// drops entries whose files are gone. Returns how many entries survived.
func (l *Library) Scan(ctx context.Context) (int, error) {
	for _, dir := range l.paths {
		if err := l.scanDirectory(ctx, dir); err != nil {
			return 0, err
		}
	}
	if err := l.prune(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return 0, err
	}
	l.log.Info().Int("entries", count).Msg("scan complete")
	return count, nil
}

func (l *Library) scanDirectory(ctx context.Context, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable paths are skipped, not fatal.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !media.IsSupported(path) {
			return nil
		}
		return l.index(ctx, path, info)
	})
}

func (l *Library) index(ctx context.Context, path string, info os.FileInfo) error {
	id := generateID(path)

	var modified time.Time
	err := l.db.QueryRowContext(ctx, `SELECT modified_at FROM videos WHERE id = ?`, id).Scan(&modified)
	if err == nil && modified.Equal(info.ModTime()) {
		return nil
	}

	title, year := ParseFilename(filepath.Base(path))
	_, err = l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO videos (id, title, year, path, size, added_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, title, year, path, info.Size(), time.Now(), info.ModTime(),
	)
	if err != nil {
		return fmt.Errorf("library: index %s: %w", path, err)
	}
	l.log.Debug().Str("path", path).Str("title", title).Msg("indexed")
	return nil
}

// prune removes entries whose backing file no longer exists.
func (l *Library) prune(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx, `SELECT id, path FROM videos`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := l.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns all entries ordered by title.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, title, year, path, size, added_at, modified_at
		FROM videos ORDER BY title, year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var year sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Title, &year, &e.Path, &e.Size, &e.AddedAt, &e.ModifiedAt); err != nil {
			return nil, err
		}
		e.Year = int(year.Int64)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get looks an entry up by ID.
func (l *Library) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var year sql.NullInt64
	err := l.db.QueryRowContext(ctx, `
		SELECT id, title, year, path, size, added_at, modified_at
		FROM videos WHERE id = ?`, id).
		Scan(&e.ID, &e.Title, &year, &e.Path, &e.Size, &e.AddedAt, &e.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library: no entry %s", id)
	}
	if err != nil {
		return nil, err
	}
	e.Year = int(year.Int64)
	return &e, nil
}

func generateID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

var (
	yearRe  = regexp.MustCompile(`[\.\s\(]*((?:19|20)\d{2})[\.\s\)]*`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParseFilename extracts a display title and optional year from a release
// style filename like "Some.Movie.2019.1080p.mkv".
func ParseFilename(filename string) (string, int) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	var year int
	if m := yearRe.FindStringSubmatch(name); len(m) > 1 {
		year, _ = strconv.Atoi(m[1])
		name = yearRe.ReplaceAllString(name, " ")
	}

	name = strings.ReplaceAll(name, ".", " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = spaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if name == "" {
		name = filename
	}
	return name, year
}
