package studio

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type lookupFunc func(ctx context.Context, link string) (VideoInfo, error)

func (f lookupFunc) LookupVideo(ctx context.Context, link string) (VideoInfo, error) {
	return f(ctx, link)
}

type writerFunc func(ctx context.Context, info VideoInfo) (string, error)

func (f writerFunc) DescribeVideo(ctx context.Context, info VideoInfo) (string, error) {
	return f(ctx, info)
}

type suggesterFunc func(ctx context.Context, description string) ([]string, error)

func (f suggesterFunc) SuggestPrompts(ctx context.Context, description string) ([]string, error) {
	return f(ctx, description)
}

type imagesFunc func(ctx context.Context, req ImageRequest) ([]Image, error)

func (f imagesFunc) GenerateImages(ctx context.Context, req ImageRequest) ([]Image, error) {
	return f(ctx, req)
}

// countingAdapters fails the test's expectations loudly if any network
// adapter is reached, and counts how often each one was.
type countingAdapters struct {
	lookups     atomic.Int32
	writes      atomic.Int32
	suggestions atomic.Int32
	generations atomic.Int32
}

func (c *countingAdapters) adapters() Adapters {
	return Adapters{
		Lookup: lookupFunc(func(context.Context, string) (VideoInfo, error) {
			c.lookups.Add(1)
			return VideoInfo{Title: "t"}, nil
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) {
			c.writes.Add(1)
			return "generated", nil
		}),
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			c.suggestions.Add(1)
			return []string{"idea"}, nil
		}),
		Images: imagesFunc(func(_ context.Context, req ImageRequest) ([]Image, error) {
			c.generations.Add(1)
			return fakeImages(req.ImageCount), nil
		}),
	}
}

func (c *countingAdapters) total() int32 {
	return c.lookups.Load() + c.writes.Load() + c.suggestions.Load() + c.generations.Load()
}

func fakeImages(n int) []Image {
	out := make([]Image, n)
	for i := range out {
		out[i] = Image{Data: []byte{0x89, 'P', 'N', 'G', byte(i)}, MIMEType: "image/png"}
	}
	return out
}

func waitCall(t *testing.T, c *Call) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("operation did not settle in time")
	}
	return err
}
