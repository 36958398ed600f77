package nextcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"bare host gets https", "cloud.example.com", "https://cloud.example.com"},
		{"explicit https kept", "https://cloud.example.com", "https://cloud.example.com"},
		{"explicit http kept", "http://cloud.example.com", "http://cloud.example.com"},
		{"trailing slash stripped", "https://cloud.example.com/", "https://cloud.example.com"},
		{"webdav path stripped", "https://cloud.example.com/remote.php/webdav", "https://cloud.example.com"},
		{"dav path stripped", "https://cloud.example.com/remote.php/dav/files/alice", "https://cloud.example.com"},
		{"webdav path case-insensitive", "https://cloud.example.com/Remote.php/WebDAV/", "https://cloud.example.com"},
		{"bare host with webdav path", "cloud.example.com/remote.php/webdav/", "https://cloud.example.com"},
		{"trailing webdav segment stripped", "https://cloud.example.com/webdav", "https://cloud.example.com"},
		{"webdav hostname preserved", "webdav.example.com", "https://webdav.example.com"},
		{"webdav hostname with scheme preserved", "https://webdav.example.com/", "https://webdav.example.com"},
		{"non-trailing webdav segment preserved", "https://example.com/nextcloud/webdav-docs", "https://example.com/nextcloud/webdav-docs"},
		{"port preserved", "cloud.example.com:8443", "https://cloud.example.com:8443"},
		{"sub-path preserved", "https://example.com/nextcloud", "https://example.com/nextcloud"},
		{"surrounding whitespace trimmed", "  cloud.example.com  ", "https://cloud.example.com"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeServerURL(tt.raw))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		timedOut bool
		expected Classification
	}{
		{"zero is success", 0, false, Success},
		{"124 is timeout", 124, false, Timeout},
		{"6 is auth failure", 6, false, AuthFailure},
		{"4 is config failure", 4, false, ConfigFailure},
		{"1 is transient", 1, false, TransientFailure},
		{"255 is transient", 255, false, TransientFailure},
		{"negative is transient", -1, false, TransientFailure},
		{"deadline kill is timeout regardless of code", -1, true, Timeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.exitCode, tt.timedOut))
		})
	}
}

func TestClassificationRetryable(t *testing.T) {
	assert.True(t, TransientFailure.Retryable())
	assert.True(t, Timeout.Retryable())
	assert.False(t, AuthFailure.Retryable())
	assert.False(t, ConfigFailure.Retryable())
	assert.False(t, Success.Retryable())
}

func TestFilterOutput(t *testing.T) {
	raw := "Connecting to server\n" +
		"Uploading photo-001.jpg\n" +
		"ERROR: transfer interrupted\n" +
		"\n" +
		"3 files failed\n" +
		"Sync run completed\n" +
		"Summary: 120 files, 3 errors\n" +
		"Reconciling local state\n"

	t.Run("non-debug keeps only interesting lines", func(t *testing.T) {
		lines := FilterOutput(raw, false)
		assert.Equal(t, []string{
			"ERROR: transfer interrupted",
			"",
			"3 files failed",
			"Sync run completed",
			"Summary: 120 files, 3 errors",
		}, lines)
	})

	t.Run("debug passes everything through", func(t *testing.T) {
		lines := FilterOutput(raw, true)
		assert.Len(t, lines, 8)
	})

	t.Run("empty output yields nothing", func(t *testing.T) {
		assert.Nil(t, FilterOutput("", false))
	})
}

// writeStubClient creates an executable script standing in for nextcloudcmd.
func writeStubClient(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub client scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "nextcloudcmd-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

type recordingToucher struct {
	touches int
}

func (r *recordingToucher) Touch() { r.touches++ }

func TestClientSync(t *testing.T) {
	t.Run("successful run touches health marker", func(t *testing.T) {
		toucher := &recordingToucher{}
		client := NewClient(t.TempDir(), "cloud.example.com", "alice", "s3cret", toucher)
		client.Binary = writeStubClient(t, "echo 'Sync run completed'\nexit 0\n")

		result := client.Sync(context.Background())

		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, Success, result.Classification)
		assert.Contains(t, result.Output, "Sync run completed")
		assert.Equal(t, 1, toucher.touches)
	})

	t.Run("auth failure classified without touching marker", func(t *testing.T) {
		toucher := &recordingToucher{}
		client := NewClient(t.TempDir(), "cloud.example.com", "alice", "wrong", toucher)
		client.Binary = writeStubClient(t, "exit 6\n")

		result := client.Sync(context.Background())

		assert.Equal(t, 6, result.ExitCode)
		assert.Equal(t, AuthFailure, result.Classification)
		assert.Zero(t, toucher.touches)
	})

	t.Run("hung client killed by timeout", func(t *testing.T) {
		client := NewClient(t.TempDir(), "cloud.example.com", "alice", "s3cret", nil)
		client.Binary = writeStubClient(t, "sleep 30\n")
		client.Timeout = 100 * time.Millisecond

		start := time.Now()
		result := client.Sync(context.Background())

		assert.Equal(t, Timeout, result.Classification)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("forked helper cannot hold the attempt past its deadline", func(t *testing.T) {
		// The deadline kill reaches only the client itself; a descendant
		// inheriting the output pipe must not keep Sync blocked.
		client := NewClient(t.TempDir(), "cloud.example.com", "alice", "s3cret", nil)
		client.Binary = writeStubClient(t, "sleep 30 &\nwait\n")
		client.Timeout = 100 * time.Millisecond

		start := time.Now()
		result := client.Sync(context.Background())

		assert.Equal(t, Timeout, result.Classification)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("missing binary is transient", func(t *testing.T) {
		client := NewClient(t.TempDir(), "cloud.example.com", "alice", "s3cret", nil)
		client.Binary = filepath.Join(t.TempDir(), "does-not-exist")

		result := client.Sync(context.Background())

		assert.Equal(t, -1, result.ExitCode)
		assert.Equal(t, TransientFailure, result.Classification)
	})
}

func TestClientArgs(t *testing.T) {
	client := NewClient("/data", "cloud.example.com", "alice", "p@ss word;rm -rf", nil)

	args := client.args()

	// Credentials travel as discrete argv entries, never through a shell.
	assert.Contains(t, args, "p@ss word;rm -rf")
	assert.Contains(t, args, "--non-interactive")
	assert.Contains(t, args, "--silent")
	assert.Equal(t, "https://cloud.example.com", args[len(args)-1])
	assert.Equal(t, "/data", args[len(args)-2])

	client.Debug = true
	assert.NotContains(t, client.args(), "--silent")
}

func TestProbeWithRetry(t *testing.T) {
	t.Run("healthy server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/status.php", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.NoError(t, ProbeWithRetry(context.Background(), server.URL))
	})

	t.Run("client errors are acceptable", func(t *testing.T) {
		// 401 from status.php still proves the server is reachable.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		assert.NoError(t, ProbeWithRetry(context.Background(), server.URL))
	})
}

func TestProbe(t *testing.T) {
	t.Run("server error reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		assert.Error(t, probe(context.Background(), server.URL+"/status.php"))
	})

	t.Run("unreachable server reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		assert.Error(t, probe(context.Background(), server.URL+"/status.php"))
	})
}
