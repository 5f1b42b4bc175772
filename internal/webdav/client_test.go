package webdav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestUpload(t *testing.T) {
	var gotPath, gotBody, gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	local := writeTempFile(t, "ABCD1234.zip", "zip bytes")
	client := NewClient(server.URL, "alice", "secret").WithRetryDelay(0)

	if err := client.Upload(context.Background(), local, "ABCD1234.zip"); err != nil {
		t.Fatalf("Upload() returned error: %v", err)
	}
	if gotPath != "/ABCD1234.zip" {
		t.Errorf("uploaded to %q", gotPath)
	}
	if gotBody != "zip bytes" {
		t.Errorf("uploaded body %q", gotBody)
	}
	if gotUser != "alice" {
		t.Errorf("basic auth user %q", gotUser)
	}
}

func TestUploadRetriesThreeTimes(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	local := writeTempFile(t, "x.prop", "content")
	client := NewClient(server.URL, "", "").WithRetryDelay(0)

	err := client.Upload(context.Background(), local, "x.prop")
	if err == nil {
		t.Fatal("expected Upload() to fail")
	}
	if attempts != 3 {
		t.Errorf("server saw %d attempts, expected 3", attempts)
	}
}

func TestUploadRecoversOnSecondAttempt(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	local := writeTempFile(t, "x.zip", "content")
	client := NewClient(server.URL, "", "").WithRetryDelay(0)

	if err := client.Upload(context.Background(), local, "x.zip"); err != nil {
		t.Fatalf("Upload() returned error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, expected 2", attempts)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/KEY1.zip" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("stored bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	dest := filepath.Join(t.TempDir(), "KEY1.zip")

	if err := client.Download(context.Background(), "KEY1.zip", dest); err != nil {
		t.Fatalf("Download() returned error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != "stored bytes" {
		t.Errorf("downloaded %q", data)
	}

	if err := client.Download(context.Background(), "missing.zip", dest); err == nil {
		t.Error("expected Download() of a missing file to fail")
	}
}

func TestPropfile(t *testing.T) {
	got := Propfile(1714000000, "9e107d9d372bb6826bd81d3542a419d6")
	expected := `<properties version="1"><mtime>1714000000</mtime><hash>9e107d9d372bb6826bd81d3542a419d6</hash></properties>`
	if got != expected {
		t.Errorf("Propfile() = %q, expected %q", got, expected)
	}
}

func TestFileMD5(t *testing.T) {
	// The well-known digest of "The quick brown fox jumps over the lazy dog".
	path := writeTempFile(t, "fox.txt", "The quick brown fox jumps over the lazy dog")
	got, err := FileMD5(path)
	if err != nil {
		t.Fatalf("FileMD5() returned error: %v", err)
	}
	if got != "9e107d9d372bb6826bd81d3542a419d6" {
		t.Errorf("FileMD5() = %q", got)
	}

	if _, err := FileMD5(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
