package fetch

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

const detailPageHTML = `<html><body>
<div class="item"><strong>Seller Notes</strong><ul><li>Clean title</li></ul></div>
<div class="item">
	<strong>Listing Details</strong>
	<ul>
		<li>Chassis: SALZA2BX4MH123456</li>
		<li>19,500 Miles Shown</li>
		<li>2.0-Liter Turbocharged Inline-Four</li>
	</ul>
</div>
</body></html>`

func newTestDetailFetcher() *DetailFetcher {
	f := NewDetailFetcher(nil, nil)
	f.sleep = func(context.Context, time.Duration) error { return nil }
	f.jitter = func() time.Duration { return 0 }
	return f
}

func TestMileage_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailPageHTML))
	}))
	defer server.Close()

	m, err := newTestDetailFetcher().Mileage(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 19500, *m)
}

func TestMileage_NoListingDetailsSection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="item"><strong>Other</strong></div></body></html>`))
	}))
	defer server.Close()

	m, err := newTestDetailFetcher().Mileage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMileage_ExhaustsRetriesOnServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m, err := newTestDetailFetcher().Mileage(context.Background(), server.URL)
	require.NoError(t, err, "an unreachable page is absorbed, not surfaced")
	assert.Nil(t, m)
	assert.EqualValues(t, DefaultMaxRetries, requests.Load())
}

func TestMileage_RecoversAfterForbidden(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(detailPageHTML))
	}))
	defer server.Close()

	m, err := newTestDetailFetcher().Mileage(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 19500, *m)
	assert.EqualValues(t, 2, requests.Load())
}

func TestMileage_RedirectLoopAbortsImmediately(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	m, err := newTestDetailFetcher().Mileage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Nil(t, m)
	// One logical attempt: the redirect chain is not retried.
	assert.LessOrEqual(t, requests.Load(), int32(maxRedirects+1))
}

func TestMileage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestDetailFetcher().Mileage(ctx, server.URL)
	assert.Error(t, err)
}

func TestParseListingDetailsMileage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want *int
	}{
		{
			name: "k suffix",
			html: `<div class="item"><strong>Listing Details</strong><ul><li>19k Miles</li></ul></div>`,
			want: intPtr(19000),
		},
		{
			name: "skips non-mileage items",
			html: `<div class="item"><strong>Listing Details</strong><ul><li>V8 Engine</li><li>200 Miles</li></ul></div>`,
			want: intPtr(200),
		},
		{
			name: "no ul",
			html: `<div class="item"><strong>Listing Details</strong></div>`,
			want: nil,
		},
		{
			name: "empty page",
			html: `<html></html>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListingDetailsMileage(tt.html)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func intPtr(v int) *int { return &v }
