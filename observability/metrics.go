// Package observability records endpoint timings in SQLite.
//
// Datapoints are buffered in memory and written in batches by a background
// goroutine, so recording never blocks on the database. When the buffer is
// full the batch is flushed inline.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/parsekit/dbopen"
)

// Metric is a single datapoint.
type Metric struct {
	Name      string
	Timestamp time.Time
	Value     float64
	Labels    map[string]string
	Unit      string
}

// Recorder buffers metrics and flushes them to SQLite.
type Recorder struct {
	db            *sql.DB
	logger        *slog.Logger
	bufferSize    int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []*Metric
	closed bool

	stop chan struct{}
	done chan struct{}
	now  func() time.Time
}

// Open opens (creating if needed) the metrics database at path.
func Open(path string) (*sql.DB, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	return db, nil
}

// NewRecorder starts a recorder writing to db, which must carry Schema.
// Zero bufferSize and flushInterval default to 100 and 5s.
func NewRecorder(db *sql.DB, bufferSize int, flushInterval time.Duration, logger *slog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:            db,
		logger:        logger,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		buffer:        make([]*Metric, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		now:           time.Now,
	}
	go r.flushLoop()
	return r
}

// Record queues m. Metrics recorded after Close are dropped.
func (r *Recorder) Record(m *Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.buffer = append(r.buffer, m)
	if len(r.buffer) >= r.bufferSize {
		r.flushLocked()
	}
}

// Flush writes buffered metrics now.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

// Filter selects metrics in Query. Zero fields do not filter.
type Filter struct {
	Name  string
	Since time.Time
	Limit int
}

// Query returns stored metrics, newest first.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]*Metric, error) {
	q := "SELECT name, ts, value, labels, unit FROM metrics WHERE 1=1"
	var args []any
	if f.Name != "" {
		q += " AND name = ?"
		args = append(args, f.Name)
	}
	if !f.Since.IsZero() {
		q += " AND ts >= ?"
		args = append(args, f.Since.UnixMilli())
	}
	q += " ORDER BY ts DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []*Metric
	for rows.Next() {
		var (
			m      Metric
			ts     int64
			labels sql.NullString
		)
		if err := rows.Scan(&m.Name, &ts, &m.Value, &labels, &m.Unit); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.Timestamp = time.UnixMilli(ts)
		if labels.Valid {
			json.Unmarshal([]byte(labels.String), &m.Labels)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Cleanup deletes metrics older than retention and returns the count removed.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention).UnixMilli()
	res, err := dbopen.Exec(ctx, r.db, "DELETE FROM metrics WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup metrics: %w", err)
	}
	return res.RowsAffected()
}

// Close flushes what is buffered and stops the background goroutine. It does
// not close the database.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done
	return nil
}

func (r *Recorder) flushLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.Flush()
			return
		case <-ticker.C:
			r.Flush()
		}
	}
}

func (r *Recorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}
	batch := r.buffer
	r.buffer = make([]*Metric, 0, r.bufferSize)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("metrics: begin tx", "error", err, "dropped", len(batch))
		return
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (name, ts, value, labels, unit) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		r.logger.Error("metrics: prepare", "error", err, "dropped", len(batch))
		return
	}
	defer stmt.Close()

	for _, m := range batch {
		var labels sql.NullString
		if len(m.Labels) > 0 {
			if b, err := json.Marshal(m.Labels); err == nil {
				labels = sql.NullString{String: string(b), Valid: true}
			}
		}
		if _, err := stmt.ExecContext(ctx, m.Name, m.Timestamp.UnixMilli(), m.Value, labels, m.Unit); err != nil {
			r.logger.Error("metrics: insert", "error", err, "metric", m.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("metrics: commit", "error", err, "dropped", len(batch))
	}
}
