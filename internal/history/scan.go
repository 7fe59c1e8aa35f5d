package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tagprint/internal/delivery"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const outcomeColumns = `job_id, unit_id, kind, transport, printer, reason, artifact_path, bytes, started_at, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row rowScanner) (delivery.Outcome, error) {
	var (
		o                                      delivery.Outcome
		unit, transport, printer, reason, path sql.NullString
		kind, started                          string
		durationMS                             int64
	)
	if err := row.Scan(&o.JobID, &unit, &kind, &transport, &printer, &reason, &path, &o.Bytes, &started, &durationMS); err != nil {
		return delivery.Outcome{}, err
	}
	o.UnitID = unit.String
	o.Kind = delivery.Kind(kind)
	o.Transport = transport.String
	o.Printer = printer.String
	o.Reason = reason.String
	o.Path = path.String
	o.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := time.Parse(timeLayout, started); err == nil {
		o.StartedAt = ts
	}
	return o, nil
}

func scanOutcomes(rows *sql.Rows) ([]delivery.Outcome, error) {
	var outcomes []delivery.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return outcomes, nil
}

func nullableString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}
