package remote

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/gobuffalo/pop/v6"
	instrumentedsql "github.com/luna-duclos/instrumentedsql"
	"github.com/sirupsen/logrus"

	"github.com/sgroupald/sgroupald/internal/driver/config"
)

const instrumentedMysqlDriverName = "sgroupald-instrumented-mysql"

var registerInstrumentedDriverOnce sync.Once

// logrusSQLLogger adapts the shared logrus logger to
// instrumentedsql.Logger, so every remote query is logged with its
// duration the way keto wraps its own SQL driver for tracing.
type logrusSQLLogger struct{ l *logrus.Logger }

func (a logrusSQLLogger) Log(_ context.Context, msg string, keyvals ...interface{}) {
	a.l.WithField("component", "remote-sql").WithFields(keyvalsToFields(keyvals)).Debug(msg)
}

func keyvalsToFields(keyvals []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields[key] = keyvals[i+1]
	}
	return fields
}

// registerInstrumentedDriver registers the mysql driver wrapped by
// instrumentedsql once per process, the way keto wraps its own SQL
// driver for tracing before ever opening a *sql.DB.
func registerInstrumentedDriver(log *logrus.Logger) {
	registerInstrumentedDriverOnce.Do(func() {
		sql.Register(instrumentedMysqlDriverName, instrumentedsql.WrapDriver(
			mysqldriver.MySQLDriver{},
			instrumentedsql.WithLogger(logrusSQLLogger{l: log}),
		))
	})
}

// connectionPool lazily opens and caches one *pop.Connection per
// configured remote, reused across queries.
type connectionPool struct {
	mu      sync.Mutex
	conns   map[string]*pop.Connection
	remotes map[string]config.RemoteConfig
	log     *logrus.Logger
}

func newConnectionPool(remotes map[string]config.RemoteConfig, log *logrus.Logger) *connectionPool {
	registerInstrumentedDriver(log)
	return &connectionPool{
		conns:   map[string]*pop.Connection{},
		remotes: remotes,
		log:     log,
	}
}

func (p *connectionPool) get(remoteID string) (*pop.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[remoteID]; ok {
		return conn, nil
	}
	cfg, ok := p.remotes[remoteID]
	if !ok {
		return nil, fmt.Errorf("no remote configured with id %q", remoteID)
	}
	if cfg.Driver != "mysql" {
		return nil, fmt.Errorf("remote %q: unsupported driver %q", remoteID, cfg.Driver)
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	conn, err := pop.NewConnection(&pop.ConnectionDetails{
		Dialect:  "mysql",
		Driver:   instrumentedMysqlDriverName,
		Database: cfg.Host,
		Host:     cfg.Host,
		Port:     fmt.Sprintf("%d", port),
		User:     cfg.User,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("building connection for remote %q: %w", remoteID, err)
	}
	if err := conn.Open(); err != nil {
		return nil, fmt.Errorf("opening connection for remote %q: %w", remoteID, err)
	}
	p.conns[remoteID] = conn
	return conn, nil
}

// runSelect executes a select-only SQL fragment against remoteID and
// returns the scalar values of its single result column.
func (p *connectionPool) runSelect(ctx context.Context, remoteID, selectSQL string) ([]string, error) {
	conn, err := p.get(remoteID)
	if err != nil {
		return nil, err
	}
	withCtx := conn.WithContext(ctx)
	var values []string
	if err := withCtx.Store.Select(&values, selectSQL); err != nil {
		return nil, fmt.Errorf("remote %q query failed: %w", remoteID, err)
	}
	return values, nil
}

// Close releases every pooled connection.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for id, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing remote %q: %w", id, err)
		}
	}
	return firstErr
}
