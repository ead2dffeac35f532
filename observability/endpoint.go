package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/parsekit/kit"
	"github.com/hazyhaar/parsekit/parser"
)

// EndpointDuration is the metric recorded by Instrument.
const EndpointDuration = "endpoint_duration_ms"

// Instrument records the duration of every call of the named endpoint, labelled
// with the transport and the outcome ("ok" or the error category name).
func Instrument(rec *Recorder, name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			outcome := "ok"
			if err != nil {
				outcome = parser.CategoryOf(err).Name
			}
			rec.Record(&Metric{
				Name:      EndpointDuration,
				Timestamp: start,
				Value:     float64(time.Since(start).Microseconds()) / 1000,
				Unit:      "milliseconds",
				Labels: map[string]string{
					"endpoint":  name,
					"transport": kit.Transport(ctx),
					"outcome":   outcome,
				},
			})
			return resp, err
		}
	}
}

// Summary aggregates EndpointDuration per endpoint and outcome.
type Summary struct {
	Endpoint string  `json:"endpoint"`
	Outcome  string  `json:"outcome"`
	Count    int64   `json:"count"`
	AvgMs    float64 `json:"avg_ms"`
	MaxMs    float64 `json:"max_ms"`
}

// Summarize aggregates endpoint timings recorded since the given time.
func (r *Recorder) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT json_extract(labels, '$.endpoint'), json_extract(labels, '$.outcome'),
		       COUNT(*), AVG(value), MAX(value)
		FROM metrics
		WHERE name = ? AND ts >= ?
		GROUP BY 1, 2
		ORDER BY 1, 2`, EndpointDuration, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("summarize metrics: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Endpoint, &s.Outcome, &s.Count, &s.AvgMs, &s.MaxMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
