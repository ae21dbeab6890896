package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

const upsertRecord = `
	INSERT INTO parsed_data (
		identifier, platform, link, name, price, description, region,
		date_of_publication, status, object_type, additional_information, upload_date
	) VALUES (
		:identifier, :platform, :link, :name, :price, :description, :region,
		:date_of_publication, :status, :object_type, :additional_information, :upload_date
	)
	ON CONFLICT (platform, identifier) DO UPDATE SET
		link                   = EXCLUDED.link,
		name                   = EXCLUDED.name,
		price                  = EXCLUDED.price,
		description            = EXCLUDED.description,
		region                 = EXCLUDED.region,
		date_of_publication    = EXCLUDED.date_of_publication,
		status                 = EXCLUDED.status,
		object_type            = EXCLUDED.object_type,
		additional_information = EXCLUDED.additional_information,
		upload_date            = EXCLUDED.upload_date
`

// PostgresWriter persists reconciled records to PostgreSQL.
type PostgresWriter struct {
	db *sqlx.DB
}

// OpenPostgres connects to PostgreSQL, retrying the initial ping, runs the
// schema migration and returns a ready-to-use PostgresWriter.
func OpenPostgres(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := NewPostgresWriter(db)
	if err := pw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

// NewPostgresWriter wraps an open connection.
func NewPostgresWriter(db *sqlx.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// Migrate creates the parsed_data table and its indexes if absent.
func (pw *PostgresWriter) Migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parsed_data (
			id                     SERIAL PRIMARY KEY,
			identifier             VARCHAR NOT NULL,
			platform               VARCHAR NOT NULL,
			link                   VARCHAR,
			name                   VARCHAR,
			price                  VARCHAR,
			description            TEXT,
			region                 VARCHAR,
			date_of_publication    VARCHAR,
			status                 VARCHAR,
			object_type            VARCHAR,
			additional_information TEXT,
			upload_date            TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS ix_parsed_data_identifier ON parsed_data(identifier);
		CREATE INDEX IF NOT EXISTS ix_parsed_data_platform   ON parsed_data(platform);
		CREATE UNIQUE INDEX IF NOT EXISTS ux_parsed_data_key ON parsed_data(platform, identifier);
	`)
	return err
}

// Upsert writes every record in one transaction, inserting new keys and
// overwriting existing ones. Any failure rolls the whole batch back.
func (pw *PostgresWriter) Upsert(ctx context.Context, records []models.Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, upsertRecord)
	if err != nil {
		return fmt.Errorf("postgres: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		// The key columns are NOT NULL; a null key part is stored as "".
		k := rec.Key()
		rec.Platform = models.Str(k.Platform)
		rec.Identifier = models.Str(k.Identifier)

		if _, err = stmt.ExecContext(ctx, rec); err != nil {
			return fmt.Errorf("postgres: upsert %s/%s: %w", k.Platform, k.Identifier, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// CountByPlatform returns the number of stored rows per platform.
func (pw *PostgresWriter) CountByPlatform(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Platform string `db:"platform"`
		Count    int    `db:"count"`
	}
	err := pw.db.SelectContext(ctx, &rows, `
		SELECT platform, COUNT(*) AS count
		FROM parsed_data
		GROUP BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by platform: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Platform] = r.Count
	}
	return counts, nil
}

// FetchAll retrieves all stored rows, most recent upload first.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]models.StoredRecord, error) {
	var out []models.StoredRecord
	err := pw.db.SelectContext(ctx, &out, `
		SELECT id, identifier, platform, link, name, price, description, region,
		       date_of_publication, status, object_type, additional_information, upload_date
		FROM parsed_data
		ORDER BY upload_date DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	return out, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
