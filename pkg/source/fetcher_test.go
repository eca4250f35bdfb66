package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "tenderscope/1.0")
	body, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
}

func TestFetcher_Get_NonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte{'c', 'a', 'f', 0xe9}) // "café" in latin-1
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "tenderscope/1.0")
	body, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", string(body))
}

func TestFetcher_Get_RetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "tenderscope/1.0")
	body, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "recovered")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetcher_Get_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "tenderscope/1.0")
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code 404")
}

func TestFetcher_Get_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("too late"))
	}))
	defer server.Close()

	f := NewFetcher(50*time.Millisecond, "tenderscope/1.0")
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
}

func TestFetcher_Document(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/x">link text</a></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "tenderscope/1.0")
	doc, err := f.Document(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "link text", doc.Find("a").Text())
}
