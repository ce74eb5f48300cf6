package gcstorage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"rfpflow/filestore"
)

var _ filestore.FileManager = (*GCSDriver)(nil)

type GCSDriver struct {
	client *storage.Client
}

func New() (*GCSDriver, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSDriver{client: client}, nil
}

func (gcsd *GCSDriver) Get(bucket, name string) (io.ReadCloser, error) {
	ctx := context.Background()
	obj := gcsd.client.Bucket(bucket).Object(name)
	rc, err := obj.NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open reader for gs://%s/%s", bucket, name)
	}
	return rc, nil
}

func (gcsd *GCSDriver) Create(bucket, name string, reader io.ReadSeeker) error {
	ctx := context.Background()
	obj := gcsd.client.Bucket(bucket).Object(name)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, reader); err != nil {
		return errors.Wrapf(err, "failed to write gs://%s/%s", bucket, name)
	}
	return w.Close()
}
