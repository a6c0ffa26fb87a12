package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/fetcher"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

func newClient(cfg fetcher.Config) *fetcher.Client {
	return fetcher.New(cfg, logger.NewNoOp())
}

func TestFetch_ReturnsBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	body, err := newClient(fetcher.Config{}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html><body>ok</body></html>", body)
}

func TestFetch_SetsDefaultHeaders(t *testing.T) {
	t.Parallel()

	var userAgent, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newClient(fetcher.Config{UserAgent: "rental-monitor-test/1.0"}).
		Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "rental-monitor-test/1.0", userAgent)
	assert.Contains(t, accept, "text/html")
}

func TestFetch_StatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient(fetcher.Config{}).Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var statusErr *fetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, server.URL, statusErr.URL)
}

func TestFetch_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const maxInFlight = 2

	var current, peak int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(fetcher.Config{MaxInFlight: maxInFlight})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Fetch(context.Background(), server.URL)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(maxInFlight))
	assert.Positive(t, atomic.LoadInt64(&peak))
}

func TestFetch_ContextCanceledWhileQueued(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	client := newClient(fetcher.Config{MaxInFlight: 1})

	// Occupy the only slot.
	go func() {
		_, _ = client.Fetch(context.Background(), server.URL)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
