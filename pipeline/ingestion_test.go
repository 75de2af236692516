package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"
)

func TestFetchDownloadsMissingFile(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	if err := bucket.WriteAll(ctx, "clean-data.csv", []byte("diagnosis,f1\nM,1\n"), nil); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "data", "clean-data.csv")
	if err := Fetch(ctx, bucket, "clean-data.csv", path, FetchOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "diagnosis,f1\nM,1\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestFetchKeepsExistingFile(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	path := filepath.Join(t.TempDir(), "clean-data.csv")
	if err := os.WriteFile(path, []byte("local"), 0o600); err != nil {
		t.Fatal(err)
	}
	// the bucket is empty, so any download attempt would fail
	if err := Fetch(ctx, bucket, "clean-data.csv", path, FetchOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchMissingObjectFails(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	path := filepath.Join(t.TempDir(), "clean-data.csv")
	start := time.Now()
	err := Fetch(ctx, bucket, "clean-data.csv", path, FetchOptions{Attempts: 5, Delay: time.Second})
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("not found should not be retried")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("no partial file should be left behind")
	}
}
