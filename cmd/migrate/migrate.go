package migrate

import (
	"fmt"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	saleMigrationSource = "modules/sale/database/postgresql/migrations"
	saleMigrationTable  = "sale_schema_migrations"
)

var supportedDrivers = map[string]struct{}{
	"postgres":   {},
	"postgresql": {},
}

type sourceOptions struct {
	DatabaseURL string
	Sale        bool
	SaleSource  string
}

// databaseURL returns --database, or the sale Postgres config when unset.
func (o sourceOptions) databaseURL() (*url.URL, error) {
	raw := o.DatabaseURL
	if raw == "" {
		raw = config.Load().Modules.Sale.Postgres.MigrateURL()
	}
	databaseURL, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database URL")
	}
	if _, ok := supportedDrivers[databaseURL.Scheme]; !ok {
		return nil, errors.Errorf("unsupported database driver: %s", databaseURL.Scheme)
	}
	return databaseURL, nil
}

func cloneURLWithQuery(u *url.URL, newQuery url.Values) *url.URL {
	clone := *u
	query := clone.Query()
	for key, values := range newQuery {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	clone.RawQuery = query.Encode()
	return &clone
}

// newMigrate opens the migration source of one module against its own
// migrations table.
func newMigrate(module string, databaseURL *url.URL, sourcePath string, migrationTable string) (*migrate.Migrate, error) {
	target := cloneURLWithQuery(databaseURL, url.Values{"x-migrations-table": {migrationTable}})
	m, err := migrate.New("file://"+sourcePath, target.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Migrate instance for %s", module)
	}
	m.Log = &consoleLogger{
		prefix: fmt.Sprintf("[%s] ", module),
	}
	return m, nil
}
