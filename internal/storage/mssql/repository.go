package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/storage"
)

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// SaveNotified inserts or refreshes an archived listing. A listing is
// keyed by (Title, Link), the same identity the dedup state uses.
func (r *Repository) SaveNotified(ctx context.Context, listing *storage.NotifiedListing) (isNew bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO TblNotifiedListings AS target
		USING (SELECT @Title AS Title, @Link AS Link) AS source
		ON target.[Title] = source.Title AND target.[Link] = source.Link
		WHEN MATCHED THEN
			UPDATE SET
				[Author] = @Author,
				[DateRaw] = @DateRaw,
				[PostedAt] = @PostedAt,
				[Description] = @Description,
				[CheckSum] = @CheckSum,
				[NotifiedAt] = @NotifiedAt
		WHEN NOT MATCHED THEN
			INSERT ([Domain], [Title], [Link], [Author], [DateRaw], [PostedAt], [Description], [CheckSum], [NotifiedAt])
			VALUES (@Domain, @Title, @Link, @Author, @DateRaw, @PostedAt, @Description, @CheckSum, @NotifiedAt)
		OUTPUT $action;
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	postedAt := sql.NullTime{Time: listing.PostedAt, Valid: !listing.PostedAt.IsZero()}

	var action string
	err = stmt.QueryRowContext(ctx,
		sql.Named("Domain", listing.Domain),
		sql.Named("Title", listing.Title),
		sql.Named("Link", listing.Link),
		sql.Named("Author", listing.Author),
		sql.Named("DateRaw", listing.DateRaw),
		sql.Named("PostedAt", postedAt),
		sql.Named("Description", listing.Description),
		sql.Named("CheckSum", listing.CheckSum),
		sql.Named("NotifiedAt", listing.NotifiedAt),
	).Scan(&action)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return action == "INSERT", nil
}

// CountByDomain returns how many listings were archived for a domain.
func (r *Repository) CountByDomain(ctx context.Context, domain string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM TblNotifiedListings WHERE [Domain] = @Domain`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var count int
	if err := stmt.QueryRowContext(ctx, sql.Named("Domain", domain)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
