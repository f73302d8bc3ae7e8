package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const noSuchKeyBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

// newTestS3 points a path-style client at an httptest server standing in
// for the bucket "wordlists".
func newTestS3(t *testing.T, handler http.HandlerFunc) *S3Storage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
		Retryer:      aws.NopRetryer{},
	})
	s := NewS3StorageWithClient(client, "wordlists")
	s.baseDelay = time.Millisecond
	return s
}

func TestS3Storage_Open(t *testing.T) {
	content := "verbs,,\nはやい,fast/quick,早い\n"
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/wordlists/vocab/n5.csv" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, noSuchKeyBody)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, content)
	})

	body, err := s.Open(context.Background(), "vocab/n5.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("content mismatch: got %q, want %q", got, content)
	}
}

func TestS3Storage_OpenNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, noSuchKeyBody)
	})

	_, err := s.Open(context.Background(), "missing.csv")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", calls.Load())
	}
}

func TestS3Storage_OpenRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "a,b\n")
	})

	body, err := s.Open(context.Background(), "flaky.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	body.Close()
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}
}

func TestS3Storage_OpenGivesUp(t *testing.T) {
	var calls atomic.Int32
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.Open(context.Background(), "down.csv")
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
	if calls.Load() != int32(s.maxRetries+1) {
		t.Errorf("expected %d requests, got %d", s.maxRetries+1, calls.Load())
	}
}

func TestS3Storage_Download(t *testing.T) {
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "SQLite format 3\x00")
	})

	dst := filepath.Join(t.TempDir(), "sub", "words.db")
	if err := s.Download(context.Background(), "words.db", dst); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if !strings.HasPrefix(string(got), "SQLite format 3") {
		t.Errorf("unexpected content %q", got)
	}
}

func TestS3Storage_Exists(t *testing.T) {
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/wordlists/present.csv" {
			w.Header().Set("Content-Length", "0")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ctx := context.Background()
	exists, err := s.Exists(ctx, "present.csv")
	if err != nil || !exists {
		t.Errorf("expected (true, nil), got (%v, %v)", exists, err)
	}
	exists, err = s.Exists(ctx, "absent.csv")
	if err != nil || exists {
		t.Errorf("expected (false, nil), got (%v, %v)", exists, err)
	}
}
