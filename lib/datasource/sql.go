package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/logging"
	"github.com/steinarvk/whizdex/lib/recquery"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var supportedDrivers = map[string]string{
	"sqlite3":  "sqlite",
	"postgres": "postgresql",
}

var tableNameRegexp = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLSource reads records from a table per collection. Each table must have
// a "seq" column giving the input order and a "record_data" column holding
// one JSON object per row.
type SQLSource struct {
	db     *sql.DB
	limits config.Limits
}

type SQLParams struct {
	Driver string
	DSN    string

	// Zero means the backoff defaults.
	MaxPingElapsed time.Duration
}

func OpenSQL(ctx context.Context, params SQLParams, limits config.Limits) (*SQLSource, error) {
	logger := logging.FromContext(ctx)

	dbSystem, ok := supportedDrivers[params.Driver]
	if !ok {
		return nil, dexerror.New(
			dexerror.WithKind(dexerror.KindConfig),
			dexerror.WithErrorID("unsupported_sql_driver"),
			dexerror.WithPublicMessage(fmt.Sprintf("unsupported SQL driver %q", params.Driver)),
			dexerror.WithPublicData("driver", params.Driver),
		)
	}

	db, err := otelsql.Open(params.Driver, params.DSN, otelsql.WithAttributes(
		attribute.String("db.system", dbSystem),
	))
	if err != nil {
		return nil, sourceError(params.Driver, "unable to open database", err)
	}

	bo := backoff.NewExponentialBackOff()
	if params.MaxPingElapsed > 0 {
		bo.MaxElapsedTime = params.MaxPingElapsed
	}

	attempt := 0
	if err := backoff.Retry(func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			logger.Debug("database ping failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, backoff.WithContext(bo, ctx)); err != nil {
		db.Close()
		return nil, sourceError(params.Driver, "unable to reach database", err)
	}

	logger.Info("opened SQL data source", zap.String("driver", params.Driver), zap.Int("ping_attempts", attempt))

	return NewSQLSource(db, limits), nil
}

func NewSQLSource(db *sql.DB, limits config.Limits) *SQLSource {
	return &SQLSource{db: db, limits: limits}
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

func (s *SQLSource) Records(ctx context.Context, name string) ([]recquery.Record, error) {
	if !tableNameRegexp.MatchString(name) {
		return nil, dexerror.Precondition("invalid_table_name", name, "invalid table name")
	}

	// Table names cannot be bind parameters.
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT seq, record_data FROM %s ORDER BY seq", name))
	if err != nil {
		return nil, sourceError(name, "query failed", err)
	}
	defer rows.Close()

	c := newCollector(ctx, name, s.limits)

	for rows.Next() {
		var seq int64
		var data string
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, sourceError(name, "scan failed", err)
		}
		if err := c.add(fmt.Sprintf("%s seq=%d", name, seq), []byte(data)); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, sourceError(name, "error reading rows", err)
	}

	return c.result(), nil
}
