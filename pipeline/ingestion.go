// Package pipeline reads the labeled breast cancer dataset for training and
// for sample generation.
package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// OpenCSV returns a reader tolerant of a leading UTF-8 byte order mark and of
// rows with differing field counts.
func OpenCSV(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	return reader
}

type FetchOptions struct {
	Attempts uint
	Delay    time.Duration
	Logger   *zap.Logger
}

// Fetch downloads key from bucket to localPath unless localPath already
// exists. Transient failures are retried; the final failure is returned.
func Fetch(ctx context.Context, bucket *blob.Bucket, key, localPath string, opts FetchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(localPath); err == nil {
		logger.Debug("dataset already present", zap.String("path", localPath))
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat %s", localPath)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", localPath)
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}

	logger.Info("downloading dataset", zap.String("key", key), zap.String("path", localPath))
	err := retry.Do(
		func() error { return download(ctx, bucket, key, localPath) },
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return gcerrors.Code(err) != gcerrors.NotFound
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("dataset download failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "download %s", key)
	}
	logger.Info("download successful", zap.String("path", localPath))
	return nil
}

func download(ctx context.Context, bucket *blob.Bucket, key, localPath string) error {
	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return err
	}
	defer reader.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}
