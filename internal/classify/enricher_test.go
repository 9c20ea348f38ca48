package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/auction-tracker/internal/observability"
	"github.com/jonathan/auction-tracker/internal/ratelimit"
)

// fakeClient returns scripted responses in order and records how many
// external calls were made.
type fakeClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) GenerateJSON(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEnricher(client *fakeClient) *Enricher {
	e := NewEnricher(nil, ratelimit.NewIntervalLimiter(0), observability.NewRecorder())
	if client != nil {
		e.client = client
	}
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestSplitMakeModel_KnownMakeBypassesClassifier(t *testing.T) {
	client := &fakeClient{}
	e := newTestEnricher(client)

	mm := e.SplitMakeModel(context.Background(), "2021 Land Rover Range Rover Evoque")
	assert.Equal(t, "Land Rover", mm.Make)
	assert.Equal(t, "Range Rover Evoque", mm.Model)
	assert.Zero(t, client.callCount())
	assert.Zero(t, e.FallbackCalls())
}

func TestSplitMakeModel_UnknownMakeFallsBack(t *testing.T) {
	client := &fakeClient{responses: []string{`{"make":"Czinger","model":"21C"}`}}
	e := newTestEnricher(client)

	mm := e.SplitMakeModel(context.Background(), "2022 Czinger 21C")
	assert.Equal(t, "Czinger", mm.Make)
	assert.Equal(t, "21C", mm.Model)
	assert.Equal(t, 1, client.callCount())
	assert.EqualValues(t, 1, e.FallbackCalls())
}

func TestExtractMakeModel_CacheIdempotence(t *testing.T) {
	client := &fakeClient{responses: []string{`{"make":"Czinger","model":"21C"}`}}
	e := newTestEnricher(client)

	first := e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")
	second := e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.callCount(), "second call must be served from cache")
	assert.EqualValues(t, 2, e.FallbackCalls(), "usage counter counts cache hits too")
}

func TestExtractMakeModel_UnknownOutcomeIsCached(t *testing.T) {
	client := &fakeClient{responses: []string{"garbage", "garbage", "garbage"}}
	e := newTestEnricher(client)

	mm := e.ExtractMakeModel(context.Background(), "Set of BBS Wheels")
	assert.False(t, mm.Known())
	assert.Equal(t, 3, client.callCount(), "retries exhaust the attempt budget")

	// The negative outcome is served from cache with no further calls.
	mm = e.ExtractMakeModel(context.Background(), "Set of BBS Wheels")
	assert.False(t, mm.Known())
	assert.Equal(t, 3, client.callCount())
}

func TestExtractMakeModel_NotAVehicle(t *testing.T) {
	client := &fakeClient{responses: []string{`{"make":null,"model":null}`}}
	e := newTestEnricher(client)

	mm := e.ExtractMakeModel(context.Background(), "Porsche Factory Literature")
	assert.False(t, mm.Known())
	assert.Equal(t, 1, client.callCount(), "a valid null response is not retried")
}

func TestExtractMakeModel_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{
		errs:      []error{errors.New("503"), nil},
		responses: []string{"", `{"make":"Czinger","model":"21C"}`},
	}
	e := newTestEnricher(client)

	mm := e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")
	assert.True(t, mm.Known())
	assert.Equal(t, 2, client.callCount())
}

func TestExtractMakeModel_NoClientDegradesToUnknown(t *testing.T) {
	e := newTestEnricher(nil)
	require.False(t, e.Configured())

	mm := e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")
	assert.False(t, mm.Known())
}

func TestIdentifyTransmission_Manual(t *testing.T) {
	client := &fakeClient{responses: []string{`{"transmission":"manual"}`}}
	e := newTestEnricher(client)

	manual := e.IdentifyTransmission(context.Background(), "2005 Honda S2000", "six-speed")
	require.NotNil(t, manual)
	assert.True(t, *manual)
}

func TestIdentifyTransmission_Automatic(t *testing.T) {
	client := &fakeClient{responses: []string{`{"transmission":"automatic"}`}}
	e := newTestEnricher(client)

	manual := e.IdentifyTransmission(context.Background(), "2021 Lexus LS", "smooth shifting")
	require.NotNil(t, manual)
	assert.False(t, *manual)
}

func TestIdentifyTransmission_MalformedThenRecognized(t *testing.T) {
	client := &fakeClient{responses: []string{"no idea", `{"transmission":"manual"}`}}
	e := newTestEnricher(client)

	manual := e.IdentifyTransmission(context.Background(), "1994 Toyota Supra", "")
	require.NotNil(t, manual)
	assert.True(t, *manual)
	assert.Equal(t, 2, client.callCount())
}

func TestIdentifyTransmission_UnknownCached(t *testing.T) {
	client := &fakeClient{responses: []string{"no idea", "still no idea", "nope"}}
	e := newTestEnricher(client)

	manual := e.IdentifyTransmission(context.Background(), "1994 Toyota Supra", "")
	assert.Nil(t, manual)
	assert.Equal(t, 3, client.callCount())

	manual = e.IdentifyTransmission(context.Background(), "1994 Toyota Supra", "")
	assert.Nil(t, manual)
	assert.Equal(t, 3, client.callCount(), "cached unknown must not re-call")
}

func TestReset(t *testing.T) {
	client := &fakeClient{responses: []string{`{"make":"Czinger","model":"21C"}`, `{"make":"Czinger","model":"21C"}`}}
	e := newTestEnricher(client)

	e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")
	assert.EqualValues(t, 1, e.FallbackCalls())

	e.Reset()
	assert.Zero(t, e.FallbackCalls())

	// The cache is gone too: the same input calls out again.
	e.ExtractMakeModel(context.Background(), "2022 Czinger 21C")
	assert.Equal(t, 2, client.callCount())
}

func TestCacheKeyNormalization(t *testing.T) {
	assert.Equal(t, CacheKey("2005  Honda\tS2000"), CacheKey("2005 honda s2000"))
	assert.NotEqual(t, CacheKey("a", "b"), CacheKey("ab"))
}
