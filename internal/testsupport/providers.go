package testsupport

import (
	"context"
	"sync"
	"sync/atomic"

	"slopreel/internal/providers/image"
	"slopreel/internal/providers/tts"
)

// Gauge tracks how many calls are in flight and the highest value seen.
type Gauge struct {
	current atomic.Int64
	peak    atomic.Int64
}

func (g *Gauge) enter() {
	n := g.current.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *Gauge) leave() { g.current.Add(-1) }

// Peak returns the highest concurrency observed.
func (g *Gauge) Peak() int { return int(g.peak.Load()) }

// Current returns the calls in flight now.
func (g *Gauge) Current() int { return int(g.current.Load()) }

// FakeImages is an image.Generator that records requests. Hook, when set,
// decides the result; otherwise a fixed PNG is returned.
type FakeImages struct {
	Hook  func(ctx context.Context, req image.Request) (image.Result, error)
	Data  []byte
	Gauge Gauge

	mu       sync.Mutex
	requests []image.Request
}

// Generate implements image.Generator.
func (f *FakeImages) Generate(ctx context.Context, req image.Request) (image.Result, error) {
	f.Gauge.enter()
	defer f.Gauge.leave()
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Hook != nil {
		return f.Hook(ctx, req)
	}
	data := f.Data
	if data == nil {
		data = []byte("\x89PNG\r\n\x1a\nfake")
	}
	return image.Result{Bytes: data, MimeType: "image/png"}, nil
}

// Requests returns a copy of the received requests.
func (f *FakeImages) Requests() []image.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]image.Request(nil), f.requests...)
}

// FakeSpeech is a tts.Synthesizer that records requests. Hook, when set,
// decides the result; otherwise a short MP3 without timing is returned.
type FakeSpeech struct {
	Hook  func(ctx context.Context, req tts.Request) (tts.Result, error)
	Gauge Gauge

	mu       sync.Mutex
	requests []tts.Request
}

// Synthesize implements tts.Synthesizer.
func (f *FakeSpeech) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	f.Gauge.enter()
	defer f.Gauge.leave()
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Hook != nil {
		return f.Hook(ctx, req)
	}
	return tts.Result{Bytes: MP3(4), MimeType: "audio/mpeg", DurationSeconds: 1.5}, nil
}

// Requests returns a copy of the received requests.
func (f *FakeSpeech) Requests() []tts.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tts.Request(nil), f.requests...)
}

// RequestFor returns the first request whose Text equals text.
func (f *FakeSpeech) RequestFor(text string) (tts.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Text == text {
			return r, true
		}
	}
	return tts.Request{}, false
}
