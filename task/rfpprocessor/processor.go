package rfpprocessor

import (
	"bytes"
	"context"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfpflow/filestore"
	"rfpflow/model/model"
	U "rfpflow/util"
)

const (
	queryColumn         = "requirements"
	queryColumnFallback = "Bank Requirements"
	responseColumn      = "Response"
	processedPrefix     = "processed_"

	// ResponseNotReceived is the row placeholder when the answer service
	// fails. One bad row must not fail the whole document.
	ResponseNotReceived = "Error: No response received from the Discovery Engine API"
)

// AnswerCache is the durable exact-match cache keyed by query content hash.
type AnswerCache interface {
	Lookup(ctx context.Context, key string) model.LookupResult
	Store(ctx context.Context, key, query, answer string, embedding []float32) error
}

// AnswerClient resolves a query against the external answer service.
type AnswerClient interface {
	Ask(ctx context.Context, query, session string) (*model.ServiceAnswer, error)
}

type Embedder interface {
	Embed(ctx context.Context, query string) ([]float32, error)
}

type UsageRecorder interface {
	Record(ctx context.Context, query, answer, session string, ts time.Time) error
}

// Processor reads an uploaded workbook sheet by sheet, resolves every
// requirement row through the cache-then-service pipeline and writes the
// annotated workbook back next to the original.
type Processor struct {
	files    filestore.FileManager
	cache    AnswerCache
	answers  AnswerClient
	embedder Embedder
	recorder UsageRecorder
}

func New(files filestore.FileManager, cache AnswerCache, answers AnswerClient,
	embedder Embedder, recorder UsageRecorder) *Processor {
	return &Processor{
		files:    files,
		cache:    cache,
		answers:  answers,
		embedder: embedder,
		recorder: recorder,
	}
}

// ProcessObject handles one storage notification. Rows are processed
// strictly sequentially. The annotated workbook is flushed to
// processed_<name> once per completed sheet, so a crash mid-sheet loses
// only that sheet. An unreadable workbook is the only fatal failure.
func (p *Processor) ProcessObject(ctx context.Context, bucket, name string) error {
	logCtx := log.WithFields(log.Fields{
		"run_id": uuid.New().String(),
		"bucket": bucket,
		"file":   name,
	})

	rc, err := p.files.Get(bucket, name)
	if err != nil {
		return errors.Wrap(err, "failed to fetch workbook")
	}
	defer rc.Close()

	workbook, err := excelize.OpenReader(rc)
	if err != nil {
		return errors.Wrapf(err, "unreadable workbook %s", name)
	}

	processedName := processedPrefix + name
	for _, sheet := range workbook.GetSheetList() {
		sheetLogCtx := logCtx.WithField("sheet", sheet)
		if err := p.processSheet(ctx, sheetLogCtx, workbook, sheet); err != nil {
			return err
		}

		buf, err := workbook.WriteToBuffer()
		if err != nil {
			return errors.Wrapf(err, "failed to serialize workbook %s", processedName)
		}
		if err := p.files.Create(bucket, processedName, bytes.NewReader(buf.Bytes())); err != nil {
			return errors.Wrap(err, "failed to write processed workbook")
		}
		sheetLogCtx.WithField("processed_file", processedName).Info("Processed sheet flushed")
	}
	return nil
}

func (p *Processor) processSheet(ctx context.Context, logCtx *log.Entry,
	workbook *excelize.File, sheet string) error {

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return errors.Wrapf(err, "failed to read rows of sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil
	}

	header := rows[0]
	queryIdx := columnIndex(header, queryColumn)
	if queryIdx < 0 {
		queryIdx = columnIndex(header, queryColumnFallback)
	}
	if queryIdx < 0 {
		logCtx.Warn("No requirements column on sheet. Skipping.")
		return nil
	}

	responseIdx := columnIndex(header, responseColumn)
	if responseIdx < 0 {
		// Append past the widest row, not just the header, so ragged rows
		// keep their trailing cells.
		responseIdx = len(header)
		for _, row := range rows {
			if len(row) > responseIdx {
				responseIdx = len(row)
			}
		}
		cell, err := excelize.CoordinatesToCellName(responseIdx+1, 1)
		if err != nil {
			return err
		}
		if err := workbook.SetCellValue(sheet, cell, responseColumn); err != nil {
			return err
		}
	}

	for i := 1; i < len(rows); i++ {
		var query string
		if queryIdx < len(rows[i]) {
			query = rows[i][queryIdx]
		}
		if query == "" {
			// Validation short-circuit, not an error. The row keeps no
			// Response value.
			logCtx.WithField("row", i+1).Debug("No query provided in row")
			continue
		}

		answer := p.resolve(ctx, logCtx.WithField("row", i+1), query)

		cell, err := excelize.CoordinatesToCellName(responseIdx+1, i+1)
		if err != nil {
			return err
		}
		if err := workbook.SetCellValue(sheet, cell, answer); err != nil {
			return err
		}
	}
	return nil
}

// resolve runs one row through the pipeline: cache lookup by content hash,
// on miss a single answer service attempt, then best-effort usage record
// and write-through. Every failure past the service call is contained.
func (p *Processor) resolve(ctx context.Context, logCtx *log.Entry, query string) string {
	key := U.HashKeyUsingSha256Checksum(query)

	result := p.cache.Lookup(ctx, key)
	switch result.Status {
	case model.LookupHit:
		logCtx.Debug("Using cached response")
		return result.Entry.Response
	case model.LookupBackendError:
		// Outage, not a miss. Still falls through to the service so one
		// cache incident does not blank the whole document.
		logCtx.WithError(result.Err).Error("Query cache backend unavailable. Falling through to answer service.")
	}

	answer, err := p.answers.Ask(ctx, query, "")
	if err != nil {
		logCtx.WithError(err).Error("Answer service call failed")
		return ResponseNotReceived
	}

	if err := p.recorder.Record(ctx, query, answer.Text, answer.Session, time.Now()); err != nil {
		logCtx.WithError(err).Error("Failed to record usage")
	}

	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		logCtx.WithError(err).Error("Failed to embed query. Skipping cache write.")
		return answer.Text
	}
	if err := p.cache.Store(ctx, key, query, answer.Text, embedding); err != nil {
		logCtx.WithError(err).Error("Failed to write cache entry")
	}
	return answer.Text
}

func columnIndex(header []string, label string) int {
	for i, cell := range header {
		if cell == label {
			return i
		}
	}
	return -1
}
