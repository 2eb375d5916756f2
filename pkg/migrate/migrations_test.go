package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

func readMigrations(t *testing.T) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var sb strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		sb.Write(b)
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	fsys, err := Source("")
	require.NoError(t, err)
	require.NoError(t, ValidateFS(fsys))

	embeddedFiles, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embeddedFiles, len(onDisk))
}

func TestValidateFSRejectsUnbalancedStatements(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_init.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
	}
	require.ErrorContains(t, ValidateFS(fsys), "StatementBegin")
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301100500")
	require.NoError(t, err)
	require.Equal(t, int64(20260301100500), v)

	_, err = ParseVersion("42")
	require.Error(t, err)
}

func TestMigrationsDeclareIntegrityConstraints(t *testing.T) {
	all := readMigrations(t)

	for _, want := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_active ON users (lower(email)) WHERE status <> 'deleted'",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_refresh_tokens_token_hash ON refresh_tokens (token_hash)",
		"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_user_product_variant",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_wishlist_items_user_product",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_product_user",
		"CHECK (rating BETWEEN 1 AND 5)",
		"CREATE TABLE IF NOT EXISTS outbox_events",
	} {
		require.Contains(t, all, want)
	}
}

func TestMigrationsDropWhatTheyCreate(t *testing.T) {
	all := readMigrations(t)
	for _, table := range []string{
		"users", "refresh_tokens", "categories", "products", "product_images",
		"cart_items", "wishlist_items", "addresses", "payment_methods",
		"orders", "order_items", "reviews", "contact_messages", "store_settings", "outbox_events",
	} {
		require.Contains(t, all, "CREATE TABLE IF NOT EXISTS "+table+" (")
		require.Contains(t, all, "DROP TABLE IF EXISTS "+table+";")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.ErrorContains(t, ValidateDir(dir), "invalid migration filename")
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_init.sql"), []byte("-- +goose Up\n"), 0o644))
	require.ErrorContains(t, ValidateDir(dir), "-- +goose Down")
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "  Add Coupons Table! ", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_add_coupons_table.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "add coupons table", now)
	require.ErrorContains(t, err, "already exists")

	_, err = createSQLMigration(dir, "add coupon codes", now)
	require.ErrorContains(t, err, "does not sort after")

	later, err := createSQLMigration(dir, "add coupon codes", now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120001_add_coupon_codes.sql"), later)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "!!!", now.Add(time.Hour))
	require.Error(t, err)
}
