package ml

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

var ErrModelNotFound = errors.New("model artifact not found")

// ArtifactStore keeps the serialized pipeline in an object storage bucket
// under a fixed key. Uploads overwrite; there is no versioning.
type ArtifactStore struct {
	bucket *blob.Bucket
}

func NewArtifactStore(bucket *blob.Bucket) *ArtifactStore {
	return &ArtifactStore{bucket: bucket}
}

// OpenArtifactStore opens the bucket at url (s3://, file:// or mem://).
func OpenArtifactStore(ctx context.Context, url string) (*ArtifactStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "open model bucket %s", url)
	}
	return NewArtifactStore(bucket), nil
}

func (s *ArtifactStore) Close() error {
	return s.bucket.Close()
}

func (s *ArtifactStore) Upload(ctx context.Context, key string, model *Pipeline) error {
	var buf bytes.Buffer
	if err := model.Save(&buf); err != nil {
		return err
	}
	err := s.bucket.WriteAll(ctx, key, buf.Bytes(), &blob.WriterOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "upload model to %s", key)
	}
	return nil
}

func (s *ArtifactStore) LoadModel(ctx context.Context, key string) (*Pipeline, error) {
	payload, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(ErrModelNotFound, "key %s", key)
		}
		return nil, errors.Wrapf(err, "download model %s", key)
	}
	return Load(bytes.NewReader(payload))
}
