package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"mtfcrawler/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS posts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  url TEXT NOT NULL UNIQUE,
  title TEXT,
  cleanedText TEXT,
  youtubeLink TEXT,
  manufacturerLinks TEXT NOT NULL DEFAULT '[]',
  downloadedAt TEXT,
  postHash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'discovered',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
CREATE INDEX IF NOT EXISTS idx_posts_postHash ON posts(postHash);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  postId INTEGER NOT NULL,
  filename TEXT NOT NULL,
  fileType TEXT NOT NULL,
  sha256 TEXT NOT NULL,
  filePath TEXT NOT NULL,
  url TEXT NOT NULL,
  fileSize INTEGER NOT NULL DEFAULT 0,
  downloadedAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(postId, sha256),
  FOREIGN KEY(postId) REFERENCES posts(id)
);

CREATE TABLE IF NOT EXISTS materials (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  postId INTEGER NOT NULL,
  materialName TEXT NOT NULL,
  brand TEXT,
  propertiesJson TEXT NOT NULL,
  originalValuesJson TEXT NOT NULL,
  normalizedValuesJson TEXT NOT NULL,
  qualityRating TEXT NOT NULL,
  sourceFileHash TEXT NOT NULL,
  sheetPosition TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(postId) REFERENCES posts(id)
);
CREATE INDEX IF NOT EXISTS idx_materials_postId ON materials(postId);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  postId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(postId) REFERENCES posts(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertPost(post internal.PostRow) (internal.PostRow, error) {
	linksJSON, _ := json.Marshal(post.ManufacturerLinks)
	_, err := d.conn.Exec(`
INSERT INTO posts (url, title, cleanedText, youtubeLink, manufacturerLinks, downloadedAt, postHash, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  title=excluded.title,
  cleanedText=excluded.cleanedText,
  youtubeLink=excluded.youtubeLink,
  manufacturerLinks=excluded.manufacturerLinks,
  downloadedAt=excluded.downloadedAt,
  postHash=excluded.postHash,
  updatedAt=CURRENT_TIMESTAMP
`, post.URL, post.Title, post.CleanedText, post.YouTubeLink, string(linksJSON), post.DownloadedAt, post.PostHash, post.Status)
	if err != nil {
		return internal.PostRow{}, err
	}

	row, err := d.GetPostByURL(post.URL)
	if err != nil {
		return internal.PostRow{}, err
	}
	if row == nil {
		return internal.PostRow{}, errors.New("failed to upsert post")
	}
	return *row, nil
}

func (d *DB) GetPostByURL(url string) (*internal.PostRow, error) {
	var row internal.PostRow
	var linksJSON string
	err := d.conn.QueryRow(`
SELECT id, url, title, cleanedText, youtubeLink, manufacturerLinks, downloadedAt, postHash, status
FROM posts WHERE url = ?
`, url).Scan(
		&row.ID, &row.URL, &row.Title, &row.CleanedText, &row.YouTubeLink, &linksJSON, &row.DownloadedAt, &row.PostHash, &row.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(linksJSON), &row.ManufacturerLinks)
	return &row, nil
}

func (d *DB) GetPostByID(id int) (*internal.PostRow, error) {
	var row internal.PostRow
	var linksJSON string
	err := d.conn.QueryRow(`
SELECT id, url, title, cleanedText, youtubeLink, manufacturerLinks, downloadedAt, postHash, status
FROM posts WHERE id = ?
`, id).Scan(
		&row.ID, &row.URL, &row.Title, &row.CleanedText, &row.YouTubeLink, &linksJSON, &row.DownloadedAt, &row.PostHash, &row.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(linksJSON), &row.ManufacturerLinks)
	return &row, nil
}

func (d *DB) ListPostsByStatus(status string, limit int) ([]internal.PostRow, error) {
	rows, err := d.conn.Query(`
SELECT id, url, title, cleanedText, youtubeLink, manufacturerLinks, downloadedAt, postHash, status
FROM posts WHERE status = ? ORDER BY id ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PostRow
	for rows.Next() {
		var row internal.PostRow
		var linksJSON string
		if err := rows.Scan(&row.ID, &row.URL, &row.Title, &row.CleanedText, &row.YouTubeLink, &linksJSON, &row.DownloadedAt, &row.PostHash, &row.Status); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(linksJSON), &row.ManufacturerLinks)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdatePostStatus(postID int, status string) error {
	_, err := d.conn.Exec(`UPDATE posts SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, postID)
	return err
}

func (d *DB) UpsertFile(postID int, file internal.SourceFile) error {
	_, err := d.conn.Exec(`
INSERT INTO files (postId, filename, fileType, sha256, filePath, url, fileSize, downloadedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(postId, sha256) DO UPDATE SET
  filename=excluded.filename,
  fileType=excluded.fileType,
  filePath=excluded.filePath,
  url=excluded.url,
  fileSize=excluded.fileSize,
  downloadedAt=excluded.downloadedAt
`, postID, file.Filename, file.FileType, file.SHA256Hash, file.FilePath, file.URL, file.FileSize, file.DownloadedAt)
	return err
}

func (d *DB) ListFilesByPost(postID int) ([]internal.SourceFile, error) {
	rows, err := d.conn.Query(`
SELECT filename, fileType, sha256, filePath, url, fileSize, downloadedAt
FROM files WHERE postId = ? ORDER BY id ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SourceFile
	for rows.Next() {
		var f internal.SourceFile
		if err := rows.Scan(&f.Filename, &f.FileType, &f.SHA256Hash, &f.FilePath, &f.URL, &f.FileSize, &f.DownloadedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReplaceMaterials swaps a post's material records atomically so reprocessing
// never leaves a mix of old and new rows.
func (d *DB) ReplaceMaterials(postID int, materials []internal.MaterialRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM materials WHERE postId = ?`, postID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO materials (postId, materialName, brand, propertiesJson, originalValuesJson, normalizedValuesJson, qualityRating, sourceFileHash, sheetPosition)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range materials {
		propsJSON, _ := json.Marshal(m.Properties)
		originalJSON, _ := json.Marshal(m.OriginalValues)
		normalizedJSON, _ := json.Marshal(m.NormalizedValues)
		if _, err := stmt.Exec(
			postID, m.MaterialName, m.Brand,
			string(propsJSON), string(originalJSON), string(normalizedJSON),
			string(m.QualityRating), m.SourceFileHash, m.SheetPosition,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListMaterialsByPost(postID int) ([]internal.MaterialRecord, error) {
	rows, err := d.conn.Query(`
SELECT materialName, brand, propertiesJson, originalValuesJson, normalizedValuesJson, qualityRating, sourceFileHash, sheetPosition
FROM materials WHERE postId = ? ORDER BY id ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MaterialRecord
	for rows.Next() {
		var m internal.MaterialRecord
		var propsJSON, originalJSON, normalizedJSON, rating string
		if err := rows.Scan(&m.MaterialName, &m.Brand, &propsJSON, &originalJSON, &normalizedJSON, &rating, &m.SourceFileHash, &m.SheetPosition); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(propsJSON), &m.Properties)
		_ = json.Unmarshal([]byte(originalJSON), &m.OriginalValues)
		_ = json.Unmarshal([]byte(normalizedJSON), &m.NormalizedValues)
		m.QualityRating = internal.QualityRating(rating)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, postID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, postId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, postID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustPostByURL(url string) (internal.PostRow, error) {
	row, err := d.GetPostByURL(url)
	if err != nil {
		return internal.PostRow{}, err
	}
	if row == nil {
		return internal.PostRow{}, fmt.Errorf("post not found: url=%s", url)
	}
	return *row, nil
}
