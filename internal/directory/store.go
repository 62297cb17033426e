// Package directory is the student directory service the kiosk looks
// identities up in: a SQLite store, a YAML roster importer and an HTTP API.
package directory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clive/kiosk-go/internal/model"
)

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// Open creates or opens the SQLite database at the given path and runs schema
// initialization in WAL mode.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS students (
  okul_no TEXT PRIMARY KEY,
  ad TEXT NOT NULL,
  soyad TEXT NOT NULL,
  sinif TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_students_sinif ON students(sinif);
`
	_, err := db.Exec(schema)
	return err
}

// StudentStore reads and writes student rows.
type StudentStore struct {
	db *DB
}

func NewStudentStore(db *DB) *StudentStore {
	return &StudentStore{db: db}
}

// Get fetches a student by school number. It returns nil, nil when absent.
func (s *StudentStore) Get(id string) (*model.IdentityRecord, error) {
	var rec model.IdentityRecord
	err := s.db.QueryRow(`
		SELECT okul_no, ad, soyad, sinif FROM students WHERE okul_no = ?
	`, id).Scan(&rec.ID, &rec.GivenName, &rec.FamilyName, &rec.ClassName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &rec, nil
}

// Upsert inserts or updates students in a single transaction and returns
// how many rows were written.
func (s *StudentStore) Upsert(students []model.IdentityRecord) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO students (okul_no, ad, soyad, sinif, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(okul_no) DO UPDATE SET
			ad = excluded.ad,
			soyad = excluded.soyad,
			sinif = excluded.sinif,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, st := range students {
		if _, err := stmt.Exec(st.ID, st.GivenName, st.FamilyName, st.ClassName, now, now); err != nil {
			return 0, fmt.Errorf("upsert student %s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(students), nil
}

// Delete removes a student. Deleting an unknown id is not an error.
func (s *StudentStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM students WHERE okul_no = ?`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Count returns the number of students.
func (s *StudentStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// List returns students ordered by class then school number.
func (s *StudentStore) List() ([]model.IdentityRecord, error) {
	rows, err := s.db.Query(`SELECT okul_no, ad, soyad, sinif FROM students ORDER BY sinif, okul_no`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []model.IdentityRecord
	for rows.Next() {
		var rec model.IdentityRecord
		if err := rows.Scan(&rec.ID, &rec.GivenName, &rec.FamilyName, &rec.ClassName); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
