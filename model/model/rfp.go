package model

import (
	"time"
)

// CacheEntry is one persisted document of the query cache collection.
// Timestamp is server assigned on write, never client supplied.
type CacheEntry struct {
	Query     string    `firestore:"query" json:"query"`
	Response  string    `firestore:"response" json:"response"`
	Timestamp time.Time `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	Embedding []float32 `firestore:"embedding" json:"embedding"`
}

type LookupStatus int

// Cache lookup outcomes. A miss is a normal outcome. A backend error is
// kept distinct from a miss so callers can tell an outage from absence.
const (
	LookupHit LookupStatus = iota
	LookupMiss
	LookupBackendError
)

type LookupResult struct {
	Status LookupStatus
	Entry  *CacheEntry
	Err    error
}

// ServiceAnswer is the parsed result of one answer service call.
// Session is an opaque continuation token, empty when the service
// did not open one.
type ServiceAnswer struct {
	Text    string
	Session string
}

// StorageNotification is the object change event that triggers a run.
type StorageNotification struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
