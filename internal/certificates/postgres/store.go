// Package postgres implements the certificate repositories backed by
// PostgreSQL via database/sql and the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
	"github.com/code-networkershome/certificate-generator/internal/editor"
)

// Store implements the certificate storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ certificates.TemplateRepository = (*Store)(nil)
var _ certificates.CertificateRepository = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS templates (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			thumbnail     TEXT NOT NULL DEFAULT '',
			html          TEXT NOT NULL,
			css           TEXT NOT NULL DEFAULT '',
			canvas_width  DOUBLE PRECISION NOT NULL DEFAULT 0,
			canvas_height DOUBLE PRECISION NOT NULL DEFAULT 0,
			active        BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS certificates (
			id               TEXT PRIMARY KEY,
			certificate_id   TEXT NOT NULL UNIQUE,
			template_id      TEXT NOT NULL REFERENCES templates (id),
			owner_id         TEXT NOT NULL DEFAULT '',
			certificate_data JSONB NOT NULL,
			pdf_path         TEXT NOT NULL DEFAULT '',
			png_path         TEXT NOT NULL DEFAULT '',
			jpg_path         TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			generated_at     TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS certificates_generated_at_idx
			ON certificates (generated_at DESC);

		CREATE INDEX IF NOT EXISTS certificates_owner_idx
			ON certificates (owner_id);
	`)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// GetTemplate returns an active template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (certificates.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, thumbnail, html, css, canvas_width, canvas_height, active, created_at
		FROM templates
		WHERE id = $1 AND active
	`, id)

	var tpl certificates.Template
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Thumbnail, &tpl.HTML, &tpl.CSS,
		&tpl.CanvasWidth, &tpl.CanvasHeight, &tpl.Active, &tpl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return certificates.Template{}, fmt.Errorf("%w: %s", certificates.ErrTemplateNotFound, id)
	}
	if err != nil {
		return certificates.Template{}, err
	}
	return tpl, nil
}

// ListActiveTemplates returns active templates ordered by name.
func (s *Store) ListActiveTemplates(ctx context.Context) ([]certificates.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, thumbnail, html, css, canvas_width, canvas_height, active, created_at
		FROM templates
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []certificates.Template
	for rows.Next() {
		var tpl certificates.Template
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Thumbnail, &tpl.HTML, &tpl.CSS,
			&tpl.CanvasWidth, &tpl.CanvasHeight, &tpl.Active, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

// UpsertTemplate inserts or replaces a template by id.
func (s *Store) UpsertTemplate(ctx context.Context, tpl certificates.Template) error {
	if tpl.ID == "" {
		return fmt.Errorf("%w: template id is required", certificates.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, thumbnail, html, css, canvas_width, canvas_height, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			thumbnail = EXCLUDED.thumbnail,
			html = EXCLUDED.html,
			css = EXCLUDED.css,
			canvas_width = EXCLUDED.canvas_width,
			canvas_height = EXCLUDED.canvas_height,
			active = EXCLUDED.active
	`, tpl.ID, tpl.Name, tpl.Description, tpl.Thumbnail, tpl.HTML, tpl.CSS,
		tpl.CanvasWidth, tpl.CanvasHeight, tpl.Active, tpl.CreatedAt)
	return err
}

// InsertCertificate stores one generated certificate record.
func (s *Store) InsertCertificate(ctx context.Context, cert certificates.Certificate) error {
	dataJSON, err := json.Marshal(cert.Data)
	if err != nil {
		return fmt.Errorf("postgres: encode certificate data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates
			(id, certificate_id, template_id, owner_id, certificate_data, pdf_path, png_path, jpg_path, status, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, cert.ID, cert.CertificateID, cert.TemplateID, cert.Owner, dataJSON,
		cert.PDFPath, cert.PNGPath, cert.JPGPath, cert.Status, cert.GeneratedAt)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", certificates.ErrCertificateExists, cert.CertificateID)
	}
	return err
}

// CertificateIDExists reports whether the public certificate id is taken.
func (s *Store) CertificateIDExists(ctx context.Context, certificateID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM certificates WHERE certificate_id = $1)
	`, certificateID).Scan(&exists)
	return exists, err
}

// ListRecentCertificates returns up to limit records, newest first. An empty
// owner matches every record.
func (s *Store) ListRecentCertificates(ctx context.Context, owner string, limit int) ([]certificates.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, certificate_id, template_id, owner_id, certificate_data, pdf_path, png_path, jpg_path, status, generated_at
		FROM certificates
		WHERE $1 = '' OR owner_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []certificates.Certificate
	for rows.Next() {
		var (
			cert    certificates.Certificate
			dataRaw []byte
		)
		if err := rows.Scan(&cert.ID, &cert.CertificateID, &cert.TemplateID, &cert.Owner, &dataRaw,
			&cert.PDFPath, &cert.PNGPath, &cert.JPGPath, &cert.Status, &cert.GeneratedAt); err != nil {
			return nil, err
		}
		if len(dataRaw) > 0 {
			data := editor.NewFieldMap()
			if err := json.Unmarshal(dataRaw, data); err == nil {
				cert.Data = data
			}
		}
		result = append(result, cert)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
