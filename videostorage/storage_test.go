// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package videostorage

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
)

type fakeS3 struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (s3 *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	s3.mu.Lock()
	defer s3.mu.Unlock()
	if s3.fail {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
		return
	}
	s3.deleted = append(s3.deleted, r.URL.Path)
	w.WriteHeader(http.StatusNoContent)
}

func (s3 *fakeS3) paths() []string {
	s3.mu.Lock()
	defer s3.mu.Unlock()
	return append([]string(nil), s3.deleted...)
}

func newTestStorage(t *testing.T, s3 *fakeS3) (recordings, previews *Storage) {
	server := httptest.NewServer(s3)
	t.Cleanup(server.Close)

	recordings, previews, err := Open(zaptest.NewLogger(t), Config{
		Endpoint:      strings.TrimPrefix(server.URL, "http://"),
		AccessKey:     "access",
		SecretKey:     "secret",
		Region:        "us-east-1",
		Bucket:        "videos",
		PreviewBucket: "previews",
	})
	require.NoError(t, err)
	return recordings, previews
}

func TestDelete(t *testing.T) {
	ctx := testcontext.New(t)

	s3 := &fakeS3{}
	recordings, previews := newTestStorage(t, s3)

	require.NoError(t, recordings.Delete(ctx, "s3://archive/2026/01/clip.mp4"))
	require.NoError(t, recordings.Delete(ctx, "clip.mp4"))
	require.NoError(t, previews.Delete(ctx, "3b241101-e2bb-4255-8caf-4136c566a962"))

	require.Equal(t, []string{
		"/archive/2026/01/clip.mp4",
		"/videos/clip.mp4",
		"/previews/3b241101-e2bb-4255-8caf-4136c566a962",
	}, s3.paths())
}

func TestDeleteInvalidLocation(t *testing.T) {
	ctx := testcontext.New(t)

	s3 := &fakeS3{}
	recordings, _ := newTestStorage(t, s3)

	for _, location := range []string{"", "s3://", "s3://bucket", "ftp://host/file"} {
		err := recordings.Delete(ctx, location)
		require.Error(t, err, location)
		require.True(t, Error.Has(err), location)
	}
	require.Empty(t, s3.paths())
}

func TestDeleteFailure(t *testing.T) {
	ctx := testcontext.New(t)

	s3 := &fakeS3{fail: true}
	recordings, _ := newTestStorage(t, s3)

	err := recordings.Delete(ctx, "clip.mp4")
	require.Error(t, err)
	require.True(t, Error.Has(err))
}
