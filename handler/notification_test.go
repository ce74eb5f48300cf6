package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeProcessor struct {
	calls  int
	bucket string
	name   string
	err    error
}

func (p *fakeProcessor) ProcessObject(ctx context.Context, bucket, name string) error {
	p.calls++
	p.bucket = bucket
	p.name = name
	return p.err
}

func newTestRouter(processor ObjectProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, processor)
	return r
}

func pushBody(notification string) []byte {
	data := base64.StdEncoding.EncodeToString([]byte(notification))
	return []byte(fmt.Sprintf(`{"message":{"data":"%s","messageId":"42"},"subscription":"rfp-uploads-sub"}`, data))
}

func TestNotificationHandlerProcessesObject(t *testing.T) {
	processor := &fakeProcessor{}
	router := newTestRouter(processor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications",
		bytes.NewReader(pushBody(`{"bucket":"rfp-bucket","name":"input.xlsx"}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, processor.calls)
	assert.Equal(t, "rfp-bucket", processor.bucket)
	assert.Equal(t, "input.xlsx", processor.name)
}

func TestNotificationHandlerRejectsMalformedEnvelope(t *testing.T) {
	processor := &fakeProcessor{}
	router := newTestRouter(processor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewReader([]byte("not json")))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, processor.calls)
}

func TestNotificationHandlerRejectsNonStorageMessage(t *testing.T) {
	processor := &fakeProcessor{}
	router := newTestRouter(processor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications",
		bytes.NewReader(pushBody(`{"unrelated":"payload"}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, processor.calls)
}

func TestNotificationHandlerReportsDocumentFailure(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("unreadable workbook")}
	router := newTestRouter(processor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications",
		bytes.NewReader(pushBody(`{"bucket":"rfp-bucket","name":"input.xlsx"}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, processor.calls)
}

func TestStatusHandler(t *testing.T) {
	router := newTestRouter(&fakeProcessor{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
