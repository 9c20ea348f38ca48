// Package classify implements the fallback classifier used when
// deterministic field parsing cannot produce a required listing attribute.
// All external calls go through a run-scoped cache and a global rate
// limiter; inconclusive responses degrade to an explicit unknown outcome,
// never to an error.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonathan/auction-tracker/internal/llm"
	"github.com/jonathan/auction-tracker/internal/observability"
	"github.com/jonathan/auction-tracker/internal/parsing"
	"github.com/jonathan/auction-tracker/internal/prompts"
	"github.com/jonathan/auction-tracker/internal/ratelimit"
	"github.com/jonathan/auction-tracker/internal/schemas"
)

// makeModelSchema constrains the shape of the make/model classifier
// response: both keys present, each a string or null.
const makeModelSchema = `{
	"type": "object",
	"properties": {
		"make":  {"type": ["string", "null"]},
		"model": {"type": ["string", "null"]}
	},
	"required": ["make", "model"]
}`

// defaultMaxAttempts bounds retries of one classification call on
// transient failures or malformed responses.
const defaultMaxAttempts = 3

// defaultBackoffBase is the first retry delay; it doubles per attempt.
const defaultBackoffBase = 500 * time.Millisecond

// MakeModel is the outcome of a make/model classification. Empty fields
// mean the input is not a vehicle listing (or the classifier gave up).
type MakeModel struct {
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Known reports whether both make and model were recognized.
func (m MakeModel) Known() bool {
	return m.Make != "" && m.Model != ""
}

// Enricher is the run-scoped classifier client. It owns the fallback
// caches and usage counter for one pipeline run; concurrent or repeated
// runs construct independent Enrichers rather than sharing globals.
type Enricher struct {
	client  llm.Client
	limiter *ratelimit.IntervalLimiter
	perf    *observability.Recorder

	makeModelCache    *Cache[MakeModel]
	transmissionCache *Cache[*bool]

	fallbackCalls atomic.Int64
	maxAttempts   int
	backoffBase   time.Duration
	sleep         func(context.Context, time.Duration) error
}

// NewEnricher creates a classifier client for one run. client may be nil
// when no API key is configured; every classification then degrades to
// unknown without external calls.
func NewEnricher(client llm.Client, limiter *ratelimit.IntervalLimiter, perf *observability.Recorder) *Enricher {
	return &Enricher{
		client:            client,
		limiter:           limiter,
		perf:              perf,
		makeModelCache:    NewCache[MakeModel](),
		transmissionCache: NewCache[*bool](),
		maxAttempts:       defaultMaxAttempts,
		backoffBase:       defaultBackoffBase,
		sleep:             sleepCtx,
	}
}

// Configured reports whether an external classifier is available.
func (e *Enricher) Configured() bool {
	return e.client != nil
}

// FallbackCalls returns how many times the classifier was consulted this
// run (cache hits included).
func (e *Enricher) FallbackCalls() int64 {
	return e.fallbackCalls.Load()
}

// Reset clears the run-scoped caches and usage counter so the Enricher can
// be reused for an independent run.
func (e *Enricher) Reset() {
	e.makeModelCache = NewCache[MakeModel]()
	e.transmissionCache = NewCache[*bool]()
	e.fallbackCalls.Store(0)
}

// SplitMakeModel splits a listing title into make and model, trying the
// known-make dictionary first and the classifier only when that fails.
// "2021 Land Rover Range Rover Evoque" resolves deterministically without
// any external call.
func (e *Enricher) SplitMakeModel(ctx context.Context, title string) MakeModel {
	if make, model := parsing.SplitMakeModel(title); make != "" {
		return MakeModel{Make: make, Model: model}
	}
	return e.ExtractMakeModel(ctx, title)
}

// ExtractMakeModel classifies a raw title into make and model via the
// external service, with cache lookup, rate limiting, schema-checked
// parsing, and bounded retry. A zero MakeModel means "not a vehicle" or
// "could not classify"; that outcome is cached like any other.
func (e *Enricher) ExtractMakeModel(ctx context.Context, title string) MakeModel {
	e.fallbackCalls.Add(1)
	if e.perf != nil {
		defer e.perf.Start("ai.make_model")()
	}

	key := CacheKey(title)
	if cached, ok := e.makeModelCache.Get(key); ok {
		return cached
	}
	if e.client == nil {
		e.makeModelCache.Put(key, MakeModel{})
		return MakeModel{}
	}

	prompt := prompts.Format(prompts.MustGet("classify.json", "make-model"),
		map[string]string{"Title": title})

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				break
			}
		}
		text, err := e.generate(ctx, prompt)
		if err != nil {
			fmt.Printf("Warning: classifier call failed: %v\n", err)
			continue
		}
		mm, ok := parseMakeModelResponse(text)
		if !ok {
			continue
		}
		e.makeModelCache.Put(key, mm)
		return mm
	}

	e.makeModelCache.Put(key, MakeModel{})
	return MakeModel{}
}

// IdentifyTransmission classifies a listing as manual or automatic from
// its title and excerpt. Returns a pointer to true for manual, false for
// automatic, and nil when the classifier could not decide; the nil outcome
// is cached for the rest of the run.
func (e *Enricher) IdentifyTransmission(ctx context.Context, title, excerpt string) *bool {
	e.fallbackCalls.Add(1)
	if e.perf != nil {
		defer e.perf.Start("ai.identify_transmission")()
	}

	key := CacheKey(title, excerpt)
	if cached, ok := e.transmissionCache.Get(key); ok {
		return cached
	}
	if e.client == nil {
		e.transmissionCache.Put(key, nil)
		return nil
	}

	prompt := prompts.Format(prompts.MustGet("classify.json", "transmission"),
		map[string]string{"Title": title, "Excerpt": excerpt})

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				break
			}
		}
		text, err := e.generate(ctx, prompt)
		if err != nil {
			fmt.Printf("Warning: classifier call failed: %v\n", err)
			continue
		}
		result := ParseTransmissionResponse(text)
		if result.Kind != ParseRecognized {
			continue
		}
		manual := result.Label == LabelManual
		e.transmissionCache.Put(key, &manual)
		return &manual
	}

	e.transmissionCache.Put(key, nil)
	return nil
}

// generate performs one rate-limited inference request.
func (e *Enricher) generate(ctx context.Context, prompt string) (string, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	return e.client.GenerateJSON(ctx, prompt)
}

// backoff sleeps before retry attempt n (1-based), doubling the base delay
// per attempt.
func (e *Enricher) backoff(ctx context.Context, attempt int) error {
	return e.sleep(ctx, e.backoffBase*time.Duration(1<<(attempt-1)))
}

// parseMakeModelResponse interprets the make/model classifier response.
// The model occasionally wraps the object in a one-element array; both
// forms are accepted. Returns ok=false for anything that fails the schema
// check, signalling the caller to retry.
func parseMakeModelResponse(text string) (MakeModel, bool) {
	s := strings.TrimSpace(llm.CleanJSONBlock(text))
	if s == "" {
		return MakeModel{}, false
	}

	if strings.HasPrefix(s, "[") {
		var list []json.RawMessage
		if err := json.Unmarshal([]byte(s), &list); err != nil || len(list) == 0 {
			return MakeModel{}, false
		}
		s = string(list[0])
	}

	if err := schemas.ValidateJSONString(makeModelSchema, s); err != nil {
		return MakeModel{}, false
	}

	var raw struct {
		Make  *string `json:"make"`
		Model *string `json:"model"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return MakeModel{}, false
	}

	var mm MakeModel
	if raw.Make != nil {
		mm.Make = strings.TrimSpace(*raw.Make)
	}
	if raw.Model != nil {
		mm.Model = strings.TrimSpace(*raw.Model)
	}
	// Both null is a valid "not a vehicle" outcome, not a malformed response.
	return mm, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
