package analytics

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"

	U "rfpflow/util"
)

const DefaultTable = "rfp_queries_responses_timestamps"

// UsageRecord is one append-only row of the usage log. Rows are immutable
// once inserted.
type UsageRecord struct {
	Query     string
	Response  string
	SessionID string
	Timestamp string
}

func (r *UsageRecord) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"query":      r.Query,
		"response":   r.Response,
		"session_id": r.SessionID,
		"timestamp":  r.Timestamp,
	}
	return row, "", nil
}

// Recorder streams usage rows into the analytics table. Recording is
// best-effort telemetry; callers log failures and move on.
type Recorder struct {
	inserter *bigquery.Inserter
}

func New(client *bigquery.Client, dataset, table string) *Recorder {
	if table == "" {
		table = DefaultTable
	}
	return &Recorder{inserter: client.Dataset(dataset).Table(table).Inserter()}
}

func (r *Recorder) Record(ctx context.Context, query, answer, session string, ts time.Time) error {
	record := &UsageRecord{
		Query:     query,
		Response:  answer,
		SessionID: session,
		Timestamp: U.FormatTimestampUTC(ts),
	}
	return errors.Wrap(r.inserter.Put(ctx, record), "failed to insert usage record")
}
