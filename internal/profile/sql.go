package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"careercoach/internal/types"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql with the sqlite or postgres driver
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and creates the schema. driver is "sqlite"
// (a file path DSN) or "postgres" (a connection URL).
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
			dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		// One writer at a time avoids SQLITE_BUSY under concurrent uploads
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	blobType := "BLOB"
	if s.driver == "postgres" {
		blobType = "BYTEA"
	}
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		career_path TEXT NOT NULL DEFAULT '',
		resume_media_type TEXT,
		resume_fingerprint TEXT,
		resume_filename TEXT,
		resume_blob_key TEXT,
		resume_text TEXT,
		resume_content ` + blobType + `,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping verifies database connectivity
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// GetProfile returns the profile of userID including its résumé reference
func (s *SQLStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := s.rebind(`
		SELECT user_id, name, avatar_url, career_path,
		       resume_media_type, resume_fingerprint, resume_filename, resume_blob_key, resume_text, resume_content,
		       created_at, updated_at
		FROM profiles WHERE user_id = ?`)

	var p Profile
	var mediaType, fingerprint, filename, blobKey, text sql.NullString
	var content []byte
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.AvatarURL, &p.CareerPath,
		&mediaType, &fingerprint, &filename, &blobKey, &text, &content,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	if fingerprint.Valid && fingerprint.String != "" {
		p.Resume = &types.ResumeRef{
			Content:     content,
			MediaType:   mediaType.String,
			Fingerprint: fingerprint.String,
			Text:        text.String,
			Filename:    filename.String,
			BlobKey:     blobKey.String,
		}
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// SaveProfile upserts the profile fields of p
func (s *SQLStore) SaveProfile(ctx context.Context, p *Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("save profile: user id is required")
	}
	now := s.now().Unix()
	query := s.rebind(`
	INSERT INTO profiles (user_id, name, avatar_url, career_path, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		name = excluded.name,
		avatar_url = excluded.avatar_url,
		career_path = excluded.career_path,
		updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, p.UserID, p.Name, p.AvatarURL, p.CareerPath, now, now); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SaveResume replaces the résumé of userID. The original bytes are kept in
// the database only when no blob key points at them.
func (s *SQLStore) SaveResume(ctx context.Context, userID string, ref *types.ResumeRef) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("save resume: user id is required")
	}
	if ref == nil {
		return fmt.Errorf("save resume: reference is required")
	}
	var content []byte
	if ref.BlobKey == "" {
		content = ref.Content
	}

	now := s.now().Unix()
	query := s.rebind(`
	INSERT INTO profiles (user_id, resume_media_type, resume_fingerprint, resume_filename, resume_blob_key,
	                      resume_text, resume_content, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		resume_media_type = excluded.resume_media_type,
		resume_fingerprint = excluded.resume_fingerprint,
		resume_filename = excluded.resume_filename,
		resume_blob_key = excluded.resume_blob_key,
		resume_text = excluded.resume_text,
		resume_content = excluded.resume_content,
		updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		userID, ref.MediaType, ref.Fingerprint, ref.Filename, ref.BlobKey,
		ref.Text, content, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert resume: %w", err)
	}
	return nil
}

// GetResumeReference returns the résumé of userID, or nil if none was uploaded
func (s *SQLStore) GetResumeReference(ctx context.Context, userID string) (*types.ResumeRef, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return p.Resume, nil
}

// DeleteProfile removes userID. Deleting an unknown user is not an error.
func (s *SQLStore) DeleteProfile(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM profiles WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
