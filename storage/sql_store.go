package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"housing-listings/apperrors"
	"housing-listings/models"
	"housing-listings/utils"
)

const (
	insertListingSQL = `
		INSERT INTO zillow_listings
			(zpid, status, sold_price, address, latitude, longitude, image_url, detail_url, sold_date, broker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectListingsSQL = `
		SELECT id, COALESCE(zpid, ''), COALESCE(status, ''), COALESCE(sold_price, ''),
		       COALESCE(address, ''), COALESCE(latitude, 0), COALESCE(longitude, 0),
		       COALESCE(image_url, ''), COALESCE(detail_url, ''), COALESCE(sold_date, ''),
		       COALESCE(broker, '')
		FROM zillow_listings
		ORDER BY id`

	insertUserListingSQL = `
		INSERT INTO listings (title, description, latitude, longitude)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	selectUserListingsSQL = `
		SELECT id, COALESCE(title, ''), COALESCE(description, ''),
		       COALESCE(latitude, 0), COALESCE(longitude, 0)
		FROM listings
		ORDER BY id`
)

// Options configures Open.
type Options struct {
	Driver string // sqlite or postgres
	DSN    string // file path (or :memory:) for sqlite, connection string for postgres

	// InsertConcurrency bounds the per-row fan-out of InsertListings.
	InsertConcurrency int
	// InsertRateLimitMs spaces consecutive row inserts; 0 disables it.
	InsertRateLimitMs int
	// PingAttempts is how many times a postgres connection is pinged before
	// giving up.
	PingAttempts int
	Logger       *utils.Logger
}

// SQLStore is a Store on top of database/sql.
type SQLStore struct {
	db          *sql.DB
	dialect     dialect
	concurrency int
	rateLimitMs int
	logger      *utils.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the configured database. The schema is not touched;
// callers run EnsureSchema once per process start.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var db *sql.DB
	switch d.name {
	case "sqlite":
		db, err = openSQLite(d.driver, opts.DSN)
	default:
		db, err = openPostgres(ctx, d.driver, opts, logger)
	}
	if err != nil {
		return nil, apperrors.Storage("open "+d.name, err)
	}

	return &SQLStore{
		db:          db,
		dialect:     d,
		concurrency: opts.InsertConcurrency,
		rateLimitMs: opts.InsertRateLimitMs,
		logger:      logger,
	}, nil
}

func openSQLite(driver, path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; one connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, driver string, opts Options, logger *utils.Logger) (*sql.DB, error) {
	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	retry := &utils.RetryConfig{
		MaxAttempts: opts.PingAttempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Logger:      logger,
	}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates both tables if they are missing. Safe to call on
// every start.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.Storage("ensure schema", err)
		}
	}
	s.logger.Debug("[store] schema ready (%s)", s.dialect.name)
	return nil
}

// InsertListings inserts every row independently through a bounded worker
// pool and waits for all of them. A failing row is logged and skipped; an
// error is returned only when no row could be inserted.
func (s *SQLStore) InsertListings(ctx context.Context, listings []*models.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	query := s.dialect.rebind(insertListingSQL)
	pool := utils.NewWorkerPool(s.concurrency, s.rateLimitMs)

	var (
		inserted int64
		mu       sync.Mutex
		errs     []error
	)
	for _, l := range listings {
		l := l
		pool.Submit(func() {
			err := ctx.Err()
			if err == nil {
				_, err = s.db.ExecContext(ctx, query,
					l.ExternalID, l.Status, l.SoldPrice, l.Address, l.Latitude, l.Longitude,
					l.ImageURL, l.DetailURL, l.SoldDate, l.Broker)
			}
			if err != nil {
				s.logger.Error("[store] insert zpid=%s failed: %v", l.ExternalID, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			atomic.AddInt64(&inserted, 1)
		})
	}
	pool.Wait()

	if inserted == 0 {
		return 0, apperrors.Storage("insert listings", errors.Join(errs...))
	}
	if len(errs) > 0 {
		s.logger.Warn("[store] inserted %d of %d listings (%d failed)",
			inserted, len(listings), len(errs))
	}
	return int(inserted), nil
}

// ListScrapedListings returns every stored scraped listing.
func (s *SQLStore) ListScrapedListings(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, selectListingsSQL)
	if err != nil {
		return nil, apperrors.Storage("list scraped listings", err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.ExternalID, &l.Status, &l.SoldPrice, &l.Address, &l.Latitude,
			&l.Longitude, &l.ImageURL, &l.DetailURL, &l.SoldDate, &l.Broker,
		); err != nil {
			return nil, apperrors.Storage("scan scraped listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list scraped listings", err)
	}
	return listings, nil
}

// InsertUserListing stores one user listing and returns its surrogate id.
func (s *SQLStore) InsertUserListing(ctx context.Context, l *models.UserListing) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(insertUserListingSQL),
		l.Title, l.Description, l.Latitude, l.Longitude,
	).Scan(&id)
	if err != nil {
		return 0, apperrors.Storage("insert user listing", err)
	}
	return id, nil
}

// ListUserListings returns all user listings in no particular order.
func (s *SQLStore) ListUserListings(ctx context.Context) ([]*models.UserListing, error) {
	rows, err := s.db.QueryContext(ctx, selectUserListingsSQL)
	if err != nil {
		return nil, apperrors.Storage("list user listings", err)
	}
	defer rows.Close()

	listings := make([]*models.UserListing, 0)
	for rows.Next() {
		l := &models.UserListing{}
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.Latitude, &l.Longitude); err != nil {
			return nil, apperrors.Storage("scan user listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list user listings", err)
	}
	return listings, nil
}

// Close releases the connection pool. Only the first call has an effect.
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
