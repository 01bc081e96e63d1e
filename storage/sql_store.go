package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"mallcatalog/models"
	"mallcatalog/utils"
)

// SQL dialects understood by NewSQLStore
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		position       INTEGER   NOT NULL,
		mall_id        TEXT      NOT NULL,
		id             TEXT      NOT NULL,
		mall_name      TEXT      NOT NULL,
		mall_url       TEXT      NOT NULL,
		region         TEXT      NOT NULL DEFAULT '',
		name           TEXT      NOT NULL,
		vendor         TEXT      NOT NULL DEFAULT '',
		price          BIGINT    NOT NULL,
		original_price BIGINT    NOT NULL DEFAULT 0,
		image_url      TEXT      NOT NULL DEFAULT '',
		product_url    TEXT      NOT NULL,
		category       TEXT      NOT NULL,
		tags           TEXT      NOT NULL DEFAULT '[]',
		available      BOOLEAN   NOT NULL,
		featured       BOOLEAN   NOT NULL DEFAULT FALSE,
		click_count    BIGINT    NOT NULL DEFAULT 0,
		first_seen     TIMESTAMP NOT NULL,
		last_updated   TIMESTAMP NOT NULL,
		PRIMARY KEY (mall_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	`CREATE INDEX IF NOT EXISTS idx_products_price    ON products (price)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		singleton INTEGER PRIMARY KEY,
		revision  BIGINT  NOT NULL
	)`,
}

const productColumns = `position, mall_id, id, mall_name, mall_url, region, name, vendor, price,
	original_price, image_url, product_url, category, tags, available, featured, click_count,
	first_seen, last_updated`

// SQLStore keeps the catalog as rows of a products table, guarded by a revision counter
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *utils.Logger
}

// NewSQLStore opens the database, pings it and creates the tables if needed
func NewSQLStore(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	if driver == DriverSQLite {
		// one connection: sqlite serializes writers anyway and ":memory:" is per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, logger: logger}
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Connected to %s catalog store", driver)
	return s, nil
}

// CreateTables creates the products and catalog_meta tables if they don't exist
func (s *SQLStore) CreateTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders into the driver's form
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
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

func (s *SQLStore) Load(ctx context.Context) (*models.Catalog, string, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: s.driver == DriverPostgres})
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revision, err := readRevision(ctx, tx)
	if err != nil {
		return nil, "", err
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY position`)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	catalog := &models.Catalog{}
	for rows.Next() {
		var (
			p        models.ProductRecord
			position int
			tags     string
		)
		err := rows.Scan(&position, &p.MallID, &p.ID, &p.MallName, &p.MallURL, &p.Region, &p.Name,
			&p.Vendor, &p.Price, &p.OriginalPrice, &p.ImageURL, &p.ProductURL, &p.Category, &tags,
			&p.Available, &p.Featured, &p.ClickCount, &p.FirstSeen, &p.LastUpdated)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan product: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, "", fmt.Errorf("bad tags for %s/%s: %w", p.MallID, p.ID, err)
		}
		catalog.Products = append(catalog.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to read products: %w", err)
	}

	return catalog, strconv.FormatInt(revision, 10), nil
}

func readRevision(ctx context.Context, tx *sql.Tx) (int64, error) {
	var revision int64
	err := tx.QueryRowContext(ctx, `SELECT revision FROM catalog_meta WHERE singleton = 1`).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog revision: %w", err)
	}
	return revision, nil
}

// Save bumps the revision only if it still equals the given one, then replaces every row
// in the same transaction
func (s *SQLStore) Save(ctx context.Context, catalog *models.Catalog, revision string) (string, error) {
	expected := int64(0)
	if revision != "" {
		var err error
		if expected, err = strconv.ParseInt(revision, 10, 64); err != nil {
			return "", fmt.Errorf("bad revision %q: %w", revision, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if expected == 0 {
		// first save: make sure the meta row exists, losing racers fail the update below
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO catalog_meta (singleton, revision) VALUES (1, 0) ON CONFLICT (singleton) DO NOTHING`))
		if err != nil {
			return "", fmt.Errorf("failed to init catalog revision: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE catalog_meta SET revision = revision + 1 WHERE singleton = 1 AND revision = ?`), expected)
	if err != nil {
		return "", fmt.Errorf("failed to bump catalog revision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to bump catalog revision: %w", err)
	}
	if affected != 1 {
		err = ErrConflict
		return "", err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return "", fmt.Errorf("failed to clear products: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range catalog.Products {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		var encoded []byte
		if encoded, err = json.Marshal(tags); err != nil {
			return "", fmt.Errorf("failed to encode tags: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			i, p.MallID, p.ID, p.MallName, p.MallURL, p.Region, p.Name, p.Vendor, p.Price,
			p.OriginalPrice, p.ImageURL, p.ProductURL, p.Category, string(encoded), p.Available,
			p.Featured, p.ClickCount, p.FirstSeen.UTC(), p.LastUpdated.UTC(),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert %s/%s: %w", p.MallID, p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Stored %d products at revision %d", len(catalog.Products), expected+1)
	return strconv.FormatInt(expected+1, 10), nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
