// Package databricks opens warehouse sessions against a Databricks SQL
// warehouse.
package databricks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"

	"github.com/finchat/finchat/internal/warehouse"
)

type Config struct {
	ServerHostname string
	HTTPPath       string
	AccessToken    string
	Port           int
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ServerHostname) == "" {
		return fmt.Errorf("databricks server hostname is required")
	}
	if strings.TrimSpace(c.HTTPPath) == "" {
		return fmt.Errorf("databricks http path is required")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("databricks access token is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("databricks port must be > 0")
	}
	return nil
}

// SessionFactory opens a dedicated connection for every statement.
type SessionFactory struct {
	cfg Config
}

func NewSessionFactory(cfg Config) (*SessionFactory, error) {
	cfg.ServerHostname = strings.TrimSpace(cfg.ServerHostname)
	cfg.HTTPPath = strings.TrimSpace(cfg.HTTPPath)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SessionFactory{cfg: cfg}, nil
}

func (f *SessionFactory) OpenSession(ctx context.Context) (warehouse.Session, error) {
	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(f.cfg.ServerHostname),
		dbsql.WithPort(f.cfg.Port),
		dbsql.WithHTTPPath(f.cfg.HTTPPath),
		dbsql.WithAccessToken(f.cfg.AccessToken),
	)
	if err != nil {
		return nil, fmt.Errorf("create databricks connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect databricks: %w", err)
	}
	return db, nil
}
