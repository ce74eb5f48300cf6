package filestore

import (
	"io"
)

// FileManager abstracts the object store holding incoming and processed
// workbooks. Buckets are named per call because the trigger event carries
// the bucket of the uploaded object.
type FileManager interface {
	Get(bucket, name string) (io.ReadCloser, error)
	Create(bucket, name string, reader io.ReadSeeker) error
}
