package accumulate

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SqlLitePreparedStore keeps pending transactions in a sqlite database so
// they survive a restart of the signing service.
type SqlLitePreparedStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ PreparedStore = &SqlLitePreparedStore{}

func NewSqlLitePreparedStore(path string) (store *SqlLitePreparedStore, err error) {
	globalLog.Info().Msgf("opening sqlite db at: '%s'", path)

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		err = errors.Wrap(err, "failed to open database")
		return
	}
	// each connection to ":memory:" is a separate database
	sqldb.SetMaxOpenConns(1)

	if err = sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to ping database")
		return
	}

	store = &SqlLitePreparedStore{db: sqldb}
	if err = store.initTables(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to init tables")
		return
	}

	return
}

func (s *SqlLitePreparedStore) initTables() (err error) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS prepared (
			request_id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prepared_created_at ON prepared(created_at)`,
	}

	for i, query := range queries {
		_, err = s.db.Exec(query)
		if err != nil {
			err = errors.Wrapf(err, "failed to execute query: %d", i)
			return
		}
	}

	return
}

func (s *SqlLitePreparedStore) Put(p *PreparedTransaction) (err error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "unable to marshal prepared transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT INTO prepared (request_id, created_at, payload) VALUES (?, ?, ?)",
		p.RequestID,
		p.CreatedAt.UnixNano(),
		payload,
	)
	return errors.WithStack(err)
}

// Take reads and deletes the row in one transaction.
func (s *SqlLitePreparedStore) Take(requestID string) (p *PreparedTransaction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRow("SELECT payload FROM prepared WHERE request_id = ?", requestID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "request id %s", requestID)
	} else if err != nil {
		return nil, errors.WithStack(err)
	}

	res, err := tx.Exec("DELETE FROM prepared WHERE request_id = ?", requestID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, errors.Wrapf(ErrNotFound, "request id %s", requestID)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.WithStack(err)
	}

	p = &PreparedTransaction{}
	if err = json.Unmarshal(payload, p); err != nil {
		return nil, errors.Wrapf(err, "unable to unmarshal prepared transaction %s", requestID)
	}

	return
}

func (s *SqlLitePreparedStore) Sweep(createdBefore time.Time) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM prepared WHERE created_at < ?", createdBefore.UnixNano())
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

func (s *SqlLitePreparedStore) Len() (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.QueryRow("SELECT COUNT(*) FROM prepared").Scan(&n)
	return n, errors.WithStack(err)
}

func (s *SqlLitePreparedStore) Close() error {
	return errors.WithStack(s.db.Close())
}
