package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name        string
		htmlContent string
		wantContent string
		wantErr     bool
		statusCode  int
	}{
		{
			name: "successful extraction",
			htmlContent: `<!DOCTYPE html>
				<html>
				<head><title>Procurement Notice</title></head>
				<body>
					<article>
						<h1>Marine Survey Services</h1>
						<p>The office invites proposals for a coastal marine survey.</p>
						<p>Closing date is listed below.</p>
					</article>
				</body>
				</html>`,
			wantContent: "Marine Survey Services",
			statusCode:  http.StatusOK,
		},
		{
			name: "extraction with minimal content",
			htmlContent: `<!DOCTYPE html>
				<html>
				<body>
					<p>Short notice text</p>
				</body>
				</html>`,
			wantContent: "Short notice text",
			statusCode:  http.StatusOK,
		},
		{
			name:        "server error",
			htmlContent: "error",
			wantErr:     true,
			statusCode:  http.StatusInternalServerError,
		},
		{
			name:        "not found",
			htmlContent: "not found",
			wantErr:     true,
			statusCode:  http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.statusCode == http.StatusOK {
					w.Header().Set("Content-Type", "text/html")
				}
				_, _ = w.Write([]byte(tt.htmlContent))
			}))
			defer server.Close()

			extractor := NewExtractor(10*time.Second, "tenderscope/1.0")

			content, err := extractor.Extract(context.Background(), server.URL)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Contains(t, content, tt.wantContent)
		})
	}
}

func TestExtractor_Extract_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>Too late</body></html>"))
	}))
	defer server.Close()

	extractor := NewExtractor(100*time.Millisecond, "tenderscope/1.0")

	_, err := extractor.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestExtractor_Extract_InvalidURL(t *testing.T) {
	extractor := NewExtractor(time.Second, "tenderscope/1.0")

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty url", url: ""},
		{name: "invalid scheme", url: "not-a-url"},
		{name: "unreachable host", url: "http://localhost:99999/test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Extract(context.Background(), tt.url)
			require.Error(t, err)
		})
	}
}

func TestExtractor_Extract_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html><body>Content</body></html>"))
		}
	}))
	defer server.Close()

	extractor := NewExtractor(5*time.Second, "tenderscope/1.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.Extract(ctx, server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
