package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRenderHTMLSendsWaitDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(4 << 10); err != nil {
			t.Fatalf("unexpected parse error: %v", err)
		}
		if got := r.FormValue("waitDelay"); got != "1.5s" {
			t.Fatalf("expected waitDelay 1.5s, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 1500*time.Millisecond)
	data, err := client.RenderHTML(context.Background(), "<html><body>ok</body></html>")
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
}

func TestRenderHTMLErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("chromium crashed"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	if _, err := client.RenderHTML(context.Background(), "<html></html>"); err == nil {
		t.Fatalf("expected render error")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, 0).Ping(context.Background()); err != nil {
		t.Fatalf("ping error: %v", err)
	}
}
