package studio

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var blankInputs = []string{"", " ", "\t", "\n  \t"}

func TestAnalyzeLink_BlankLinkMakesNoCall(t *testing.T) {
	for _, link := range blankInputs {
		fake := &countingAdapters{}
		s := NewSession("test", fake.adapters())
		s.SetVideoLink(link)

		err := waitCall(t, s.AnalyzeLink(context.Background()))

		var opErr *OpError
		if !errors.As(err, &opErr) || opErr.Kind != KindValidation {
			t.Fatalf("link %q: expected validation error, got %v", link, err)
		}
		if fake.total() != 0 {
			t.Errorf("link %q: expected no adapter calls, got %d", link, fake.total())
		}
		st, _ := s.Snapshot()
		if st.LinkAnalysis.ErrorMessage() != msgLinkRequired {
			t.Errorf("link %q: unexpected error %q", link, st.LinkAnalysis.ErrorMessage())
		}
		if st.LinkAnalysis.Busy {
			t.Errorf("link %q: expected busy=false", link)
		}
		if st.Suggestion.Err != nil || st.Generation.Err != nil {
			t.Errorf("link %q: other operations' errors should be untouched", link)
		}
	}
}

func TestSuggestAndGenerate_BlankDescriptionMakesNoCall(t *testing.T) {
	for _, desc := range blankInputs {
		fake := &countingAdapters{}
		s := NewSession("test", fake.adapters())
		s.SetDescription(desc)

		waitCall(t, s.SuggestPrompts(context.Background()))
		waitCall(t, s.Generate(context.Background()))

		if fake.total() != 0 {
			t.Errorf("description %q: expected no adapter calls, got %d", desc, fake.total())
		}
		st, _ := s.Snapshot()
		if got := st.Suggestion.ErrorMessage(); got != msgDescriptionForIdeas {
			t.Errorf("description %q: suggestion error = %q", desc, got)
		}
		if got := st.Generation.ErrorMessage(); got != msgDescriptionRequired {
			t.Errorf("description %q: generation error = %q", desc, got)
		}
		if st.LinkAnalysis.Err != nil {
			t.Errorf("description %q: link-analysis error should be untouched", desc)
		}
	}
}

func TestGenerate_ImageCountOutOfRange(t *testing.T) {
	for _, n := range []int{0, -1, 6} {
		fake := &countingAdapters{}
		s := NewSession("test", fake.adapters())
		s.SetDescription("a robot")
		s.SetImageCount(n)

		err := waitCall(t, s.Generate(context.Background()))
		var opErr *OpError
		if !errors.As(err, &opErr) || opErr.Kind != KindValidation {
			t.Errorf("count %d: expected validation error, got %v", n, err)
		}
		if fake.generations.Load() != 0 {
			t.Errorf("count %d: image adapter should not be called", n)
		}
	}
}

func TestAnalyzeLink_ClearsStateBeforeLookupResolves(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewSession("test", Adapters{
		Lookup: lookupFunc(func(ctx context.Context, link string) (VideoInfo, error) {
			close(entered)
			<-release
			return VideoInfo{Title: "Title"}, nil
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) { return "fresh", nil }),
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			return []string{"one", "two"}, nil
		}),
	})

	// Seed a previous link error, suggestions and a description.
	waitCall(t, s.AnalyzeLink(context.Background()))
	s.SetDescription("old description")
	waitCall(t, s.SuggestPrompts(context.Background()))
	if st, _ := s.Snapshot(); len(st.Suggestions) != 2 || st.LinkAnalysis.Err == nil {
		t.Fatalf("setup failed: %+v", st)
	}

	s.SetVideoLink("https://youtu.be/dQw4w9WgXcQ")
	s.mutate(func(st *State) bool { st.Suggestion.Err = NewValidationError("stale"); return true })

	call := s.AnalyzeLink(context.Background())
	<-entered

	st, _ := s.Snapshot()
	if st.Form.Description != "" {
		t.Errorf("expected description cleared, got %q", st.Form.Description)
	}
	if len(st.Suggestions) != 0 {
		t.Errorf("expected suggestions cleared, got %v", st.Suggestions)
	}
	if st.Suggestion.Err != nil {
		t.Errorf("expected suggestion error cleared, got %v", st.Suggestion.Err)
	}
	if !st.LinkAnalysis.Busy || st.LinkAnalysis.Err != nil {
		t.Errorf("expected busy with no error, got %+v", st.LinkAnalysis)
	}

	close(release)
	if err := waitCall(t, call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ = s.Snapshot()
	if st.Form.Description != "fresh" || st.LinkAnalysis.Busy {
		t.Errorf("unexpected final state: %+v", st.LinkAnalysis)
	}
}

func TestAnalyzeLink_NotFound(t *testing.T) {
	var writes atomic.Int32
	s := NewSession("test", Adapters{
		Lookup: lookupFunc(func(context.Context, string) (VideoInfo, error) {
			return VideoInfo{}, StatusError(404, nil)
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) {
			writes.Add(1)
			return "never", nil
		}),
	})
	s.SetDescription("previous")
	s.SetVideoLink("https://www.youtube.com/watch?v=missing0000")

	err := waitCall(t, s.AnalyzeLink(context.Background()))

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	st, _ := s.Snapshot()
	if !strings.Contains(st.LinkAnalysis.ErrorMessage(), "Could not fetch video details") {
		t.Errorf("unexpected message %q", st.LinkAnalysis.ErrorMessage())
	}
	if st.Form.Description != "" {
		t.Errorf("expected empty description, got %q", st.Form.Description)
	}
	if st.LinkAnalysis.Busy {
		t.Error("expected busy=false")
	}
	if writes.Load() != 0 {
		t.Error("text generation must not run after a failed lookup")
	}
}

func TestAnalyzeLink_Success(t *testing.T) {
	var got VideoInfo
	s := NewSession("test", Adapters{
		Lookup: lookupFunc(func(_ context.Context, link string) (VideoInfo, error) {
			return VideoInfo{Title: "Cats doing science", AuthorName: "CatLab"}, nil
		}),
		Writer: writerFunc(func(_ context.Context, info VideoInfo) (string, error) {
			got = info
			return "A playful cat...", nil
		}),
	})
	s.SetVideoLink("https://www.youtube.com/watch?v=abcdefghijk")

	if err := waitCall(t, s.AnalyzeLink(context.Background())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, _ := s.Snapshot()
	if st.Form.Description != "A playful cat..." {
		t.Errorf("expected generated description, got %q", st.Form.Description)
	}
	if got.Title != "Cats doing science" || got.AuthorName != "CatLab" {
		t.Errorf("writer received %+v", got)
	}
	if st.LinkAnalysis.Busy || st.LinkAnalysis.Err != nil {
		t.Errorf("unexpected status %+v", st.LinkAnalysis)
	}
}

func TestAnalyzeLink_MissingTitle(t *testing.T) {
	fake := &countingAdapters{}
	adapters := fake.adapters()
	adapters.Lookup = lookupFunc(func(context.Context, string) (VideoInfo, error) {
		return VideoInfo{AuthorName: "someone"}, nil
	})
	s := NewSession("test", adapters)
	s.SetVideoLink("https://youtu.be/abcdefghijk")

	err := waitCall(t, s.AnalyzeLink(context.Background()))
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != KindMissingTitle {
		t.Fatalf("expected MissingTitle, got %v", err)
	}
	if fake.writes.Load() != 0 {
		t.Error("text generation must not run without a title")
	}
}

func TestAnalyzeLink_WriterFailure(t *testing.T) {
	s := NewSession("test", Adapters{
		Lookup: lookupFunc(func(context.Context, string) (VideoInfo, error) {
			return VideoInfo{Title: "x"}, nil
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) {
			return "", errors.New("model overloaded")
		}),
	})
	s.SetVideoLink("https://youtu.be/abcdefghijk")
	waitCall(t, s.AnalyzeLink(context.Background()))

	st, _ := s.Snapshot()
	if st.LinkAnalysis.ErrorMessage() != "model overloaded" {
		t.Errorf("unexpected error %q", st.LinkAnalysis.ErrorMessage())
	}
	if st.LinkAnalysis.Busy {
		t.Error("expected busy=false")
	}
}

func TestSuggestPrompts_StartClearsPreviousError(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	s := NewSession("test", Adapters{
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("first attempt failed")
			}
			entered <- struct{}{}
			<-release
			return []string{"x", "y", "z"}, nil
		}),
	})
	s.SetDescription("a robot")

	waitCall(t, s.SuggestPrompts(context.Background()))
	if st, _ := s.Snapshot(); st.Suggestion.ErrorMessage() != "first attempt failed" {
		t.Fatalf("setup: unexpected error %q", st.Suggestion.ErrorMessage())
	}

	call := s.SuggestPrompts(context.Background())
	<-entered
	st, _ := s.Snapshot()
	if st.Suggestion.Err != nil || !st.Suggestion.Busy {
		t.Errorf("expected busy with cleared error, got %+v", st.Suggestion)
	}

	close(release)
	waitCall(t, call)
	st, _ = s.Snapshot()
	if len(st.Suggestions) != 3 || st.Suggestions[0] != "x" {
		t.Errorf("unexpected suggestions %v", st.Suggestions)
	}
}

func TestSuggestPrompts_ReplacesListWholesale(t *testing.T) {
	var calls atomic.Int32
	s := NewSession("test", Adapters{
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			if calls.Add(1) == 1 {
				return []string{"a", "b", "c"}, nil
			}
			return []string{"d"}, nil
		}),
	})
	s.SetDescription("a robot")
	waitCall(t, s.SuggestPrompts(context.Background()))
	waitCall(t, s.SuggestPrompts(context.Background()))

	st, _ := s.Snapshot()
	if len(st.Suggestions) != 1 || st.Suggestions[0] != "d" {
		t.Errorf("expected [d], got %v", st.Suggestions)
	}
}

func TestSuggestPrompts_EmptyAdapterErrorUsesFallback(t *testing.T) {
	s := NewSession("test", Adapters{
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			return nil, errors.New("  ")
		}),
	})
	s.SetDescription("a robot")
	waitCall(t, s.SuggestPrompts(context.Background()))

	st, _ := s.Snapshot()
	if st.Suggestion.ErrorMessage() != fallbackSuggestion {
		t.Errorf("expected fallback, got %q", st.Suggestion.ErrorMessage())
	}
}

func TestSelectSuggestion(t *testing.T) {
	s := NewSession("test", Adapters{
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			return []string{"a neon robot", "a robot in the rain"}, nil
		}),
	})
	s.SetDescription("a robot")
	waitCall(t, s.SuggestPrompts(context.Background()))

	if err := s.SelectSuggestion(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := s.Snapshot()
	if st.Form.Description != "a robot in the rain" {
		t.Errorf("unexpected description %q", st.Form.Description)
	}
	if len(st.Suggestions) != 0 {
		t.Errorf("expected suggestions cleared, got %v", st.Suggestions)
	}

	if err := s.SelectSuggestion(0); !errors.Is(err, ErrNoSuchSuggestion) {
		t.Errorf("expected ErrNoSuchSuggestion, got %v", err)
	}
}

func TestGenerate_TwoImagesNoStyles(t *testing.T) {
	var got ImageRequest
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(_ context.Context, req ImageRequest) ([]Image, error) {
			got = req
			return fakeImages(2), nil
		}),
	})
	s.SetDescription("a robot")
	s.SetImageCount(2)

	if err := waitCall(t, s.Generate(context.Background())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.AspectRatio != "16:9" || got.ImageCount != 2 || len(got.Styles) != 0 || got.Description != "a robot" {
		t.Errorf("unexpected request %+v", got)
	}

	st, _ := s.Snapshot()
	if len(st.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(st.Results))
	}
	if st.Results[0].ID == st.Results[1].ID {
		t.Errorf("result ids must be unique: %q", st.Results[0].ID)
	}
	for i, r := range st.Results {
		want := "Generated Thumbnail " + string(rune('1'+i)) + " for: a robot"
		if r.Caption != want {
			t.Errorf("caption %d = %q, want %q", i, r.Caption, want)
		}
	}
}

func TestGenerate_StylesInCatalogOrder(t *testing.T) {
	var got ImageRequest
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(_ context.Context, req ImageRequest) ([]Image, error) {
			got = req
			return fakeImages(req.ImageCount), nil
		}),
	})
	s.SetDescription("a robot")
	s.ToggleStyle("vintage")
	s.ToggleStyle("cinematic")

	waitCall(t, s.Generate(context.Background()))

	if strings.Join(got.Styles, "|") != "Cinematic|Vintage" {
		t.Errorf("unexpected styles %v", got.Styles)
	}
	st, _ := s.Snapshot()
	if !strings.HasSuffix(st.Results[0].Caption, " Cinematic, Vintage") {
		t.Errorf("unexpected caption %q", st.Results[0].Caption)
	}
}

func TestGenerate_FailureClearsPriorResults(t *testing.T) {
	var calls atomic.Int32
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(_ context.Context, req ImageRequest) ([]Image, error) {
			if calls.Add(1) == 1 {
				return fakeImages(req.ImageCount), nil
			}
			return nil, errors.New("quota exceeded")
		}),
	})
	s.SetDescription("a robot")

	waitCall(t, s.Generate(context.Background()))
	if st, _ := s.Snapshot(); len(st.Results) != 1 {
		t.Fatalf("setup: expected 1 result, got %d", len(st.Results))
	}

	waitCall(t, s.Generate(context.Background()))
	st, _ := s.Snapshot()
	if st.Generation.ErrorMessage() != "quota exceeded" {
		t.Errorf("unexpected error %q", st.Generation.ErrorMessage())
	}
	if len(st.Results) != 0 {
		t.Errorf("expected prior results cleared, got %d", len(st.Results))
	}
	if st.Generation.Busy {
		t.Error("expected busy=false")
	}
}

func TestGenerate_ShortResponseFails(t *testing.T) {
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(context.Context, ImageRequest) ([]Image, error) {
			return fakeImages(1), nil
		}),
	})
	s.SetDescription("a robot")
	s.SetImageCount(3)
	waitCall(t, s.Generate(context.Background()))

	st, _ := s.Snapshot()
	if st.Generation.Err == nil || len(st.Results) != 0 {
		t.Errorf("expected failure with no results, got %+v / %d", st.Generation, len(st.Results))
	}
}

func TestGenerate_LongResponseTruncated(t *testing.T) {
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(context.Context, ImageRequest) ([]Image, error) {
			return fakeImages(4), nil
		}),
	})
	s.SetDescription("a robot")
	s.SetImageCount(2)
	waitCall(t, s.Generate(context.Background()))

	if st, _ := s.Snapshot(); len(st.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(st.Results))
	}
}

func TestGenerate_ClearsEveryErrorSurface(t *testing.T) {
	fake := &countingAdapters{}
	s := NewSession("test", fake.adapters())

	waitCall(t, s.AnalyzeLink(context.Background()))
	waitCall(t, s.SuggestPrompts(context.Background()))
	s.mu.Lock()
	s.state.Form.Description = "a robot"
	s.mu.Unlock()

	waitCall(t, s.Generate(context.Background()))

	st, _ := s.Snapshot()
	if st.LinkAnalysis.Err != nil || st.Suggestion.Err != nil || st.Generation.Err != nil {
		t.Errorf("expected all errors cleared, got %q %q %q",
			st.LinkAnalysis.ErrorMessage(), st.Suggestion.ErrorMessage(), st.Generation.ErrorMessage())
	}
}

func TestGenerate_IDsUniqueAcrossGenerations(t *testing.T) {
	fake := &countingAdapters{}
	s := NewSession("test", fake.adapters())
	fixed := s.now()
	s.now = func() time.Time { return fixed }
	s.SetDescription("a robot")
	s.SetImageCount(3)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		waitCall(t, s.Generate(context.Background()))
		st, _ := s.Snapshot()
		for _, r := range st.Results {
			if seen[r.ID] {
				t.Fatalf("duplicate id %q", r.ID)
			}
			seen[r.ID] = true
		}
	}
}

func TestGenerate_SupersededResponseIsDropped(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	releases := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var ctxs [2]context.Context
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(ctx context.Context, req ImageRequest) ([]Image, error) {
			n := calls.Add(1)
			ctxs[n-1] = ctx
			entered <- struct{}{}
			<-releases[n-1]
			return []Image{{Data: []byte{byte(n)}, MIMEType: "image/png"}}, nil
		}),
	})
	s.SetDescription("a robot")

	first := s.Generate(context.Background())
	<-entered
	second := s.Generate(context.Background())
	<-entered

	if ctxs[0].Err() == nil {
		t.Error("expected the superseded call's context to be cancelled")
	}

	close(releases[1])
	if err := waitCall(t, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(releases[0])
	if err := waitCall(t, first); err == nil {
		t.Error("expected the superseded call to report cancellation")
	}

	st, _ := s.Snapshot()
	if len(st.Results) != 1 || st.Results[0].Image.Data[0] != 2 {
		t.Errorf("expected the newer result to survive, got %+v", st.Results)
	}
	if st.Generation.Busy || st.Generation.Err != nil {
		t.Errorf("unexpected status %+v", st.Generation)
	}
}

func TestOperations_RunIndependently(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	s := NewSession("test", Adapters{
		Lookup: lookupFunc(func(context.Context, string) (VideoInfo, error) {
			entered <- struct{}{}
			<-release
			return VideoInfo{Title: "t"}, nil
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) { return "from video", nil }),
		Images: imagesFunc(func(_ context.Context, req ImageRequest) ([]Image, error) {
			entered <- struct{}{}
			<-release
			return fakeImages(req.ImageCount), nil
		}),
	})
	s.SetVideoLink("https://youtu.be/abcdefghijk")
	s.SetDescription("a robot")

	gen := s.Generate(context.Background())
	<-entered
	link := s.AnalyzeLink(context.Background())
	<-entered

	st, _ := s.Snapshot()
	if !st.LinkAnalysis.Busy || !st.Generation.Busy {
		t.Fatalf("expected both operations busy, got %+v %+v", st.LinkAnalysis, st.Generation)
	}

	close(release)
	waitCall(t, gen)
	waitCall(t, link)

	st, _ = s.Snapshot()
	if st.Form.Description != "from video" {
		t.Errorf("expected last write to win, got %q", st.Form.Description)
	}
	if len(st.Results) != 1 {
		t.Errorf("expected generation results, got %d", len(st.Results))
	}
}

func TestToggleStyle_TwiceRestores(t *testing.T) {
	s := NewSession("test", Adapters{})
	s.ToggleStyle("minimalist")

	for _, style := range Styles() {
		before, _ := s.Snapshot()
		s.ToggleStyle(style.ID)
		s.ToggleStyle(style.ID)
		after, _ := s.Snapshot()
		if len(before.Form.SelectedStyles) != len(after.Form.SelectedStyles) {
			t.Fatalf("toggling %q twice changed the selection", style.ID)
		}
		for id := range before.Form.SelectedStyles {
			if !after.HasStyle(id) {
				t.Fatalf("toggling %q twice lost %q", style.ID, id)
			}
		}
	}

	_, v := s.Snapshot()
	s.ToggleStyle("not-a-style")
	if _, v2 := s.Snapshot(); v2 != v {
		t.Error("unknown style ids should be ignored")
	}
}

func TestSetDescription_ClearsErrorsAndSuggestions(t *testing.T) {
	s := NewSession("test", Adapters{
		Suggester: suggesterFunc(func(context.Context, string) ([]string, error) {
			return []string{"x"}, nil
		}),
	})
	waitCall(t, s.Generate(context.Background()))
	s.SetDescription("a robot")
	waitCall(t, s.SuggestPrompts(context.Background()))

	s.SetDescription("a robot, edited")
	st, _ := s.Snapshot()
	if st.Generation.Err != nil || st.Suggestion.Err != nil || len(st.Suggestions) != 0 {
		t.Errorf("unexpected state after edit: %+v %+v %v", st.Generation, st.Suggestion, st.Suggestions)
	}
}

func TestSetVideoLink_ClearsLinkError(t *testing.T) {
	s := NewSession("test", Adapters{})
	waitCall(t, s.AnalyzeLink(context.Background()))
	s.SetVideoLink("https://youtu.be/abcdefghijk")

	if st, _ := s.Snapshot(); st.LinkAnalysis.Err != nil {
		t.Errorf("expected link error cleared, got %q", st.LinkAnalysis.ErrorMessage())
	}
}

func TestWatch_WakesOnMutation(t *testing.T) {
	s := NewSession("test", Adapters{})
	_, v := s.Snapshot()

	go s.SetDescription("hello")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, v2, err := s.Watch(ctx, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2 <= v || st.Form.Description != "hello" {
		t.Errorf("unexpected watch result v=%d desc=%q", v2, st.Form.Description)
	}
}

func TestWatch_ReturnsOnContextEnd(t *testing.T) {
	s := NewSession("test", Adapters{})
	_, v := s.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, v2, err := s.Watch(ctx, v)
	if !errors.Is(err, context.Canceled) || v2 != v {
		t.Errorf("expected cancelled watch at same version, got v=%d err=%v", v2, err)
	}
}

func TestClose_DropsLateCompletions(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewSession("test", Adapters{
		Images: imagesFunc(func(context.Context, ImageRequest) ([]Image, error) {
			close(entered)
			<-release
			return fakeImages(1), nil
		}),
	})
	s.SetDescription("a robot")
	call := s.Generate(context.Background())
	<-entered
	s.Close()
	close(release)
	waitCall(t, call)

	if st, _ := s.Snapshot(); len(st.Results) != 0 {
		t.Error("results must not be applied after Close")
	}
}

// blockedAnalysis starts link analysis with the writer held until release is
// closed.
func blockedAnalysis(t *testing.T, suggester PromptSuggester) (s *Session, call *Call, release chan struct{}) {
	t.Helper()
	release = make(chan struct{})
	entered := make(chan struct{})
	s = NewSession("test", Adapters{
		Lookup: lookupFunc(func(context.Context, string) (VideoInfo, error) {
			return VideoInfo{Title: "Cats"}, nil
		}),
		Writer: writerFunc(func(context.Context, VideoInfo) (string, error) {
			close(entered)
			<-release
			return "generated from video", nil
		}),
		Suggester: suggester,
	})
	s.SetVideoLink("https://youtu.be/abcdefghijk")
	call = s.AnalyzeLink(context.Background())
	<-entered
	return s, call, release
}

func TestAnalyzeLink_SuccessClearsSuggestionsForReplacedText(t *testing.T) {
	s, analysis, release := blockedAnalysis(t, suggesterFunc(func(_ context.Context, desc string) ([]string, error) {
		return []string{"idea for " + desc}, nil
	}))

	s.SetDescription("typed while analyzing")
	waitCall(t, s.SuggestPrompts(context.Background()))
	if st, _ := s.Snapshot(); len(st.Suggestions) != 1 {
		t.Fatalf("setup: suggestions = %v", st.Suggestions)
	}

	close(release)
	if err := waitCall(t, analysis); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := s.Snapshot()
	if st.Form.Description != "generated from video" {
		t.Fatalf("description = %q", st.Form.Description)
	}
	if len(st.Suggestions) != 0 {
		t.Errorf("suggestions for the replaced text survived: %v", st.Suggestions)
	}
}

func TestAnalyzeLink_SuccessDropsSuggestionInFlight(t *testing.T) {
	releaseSuggest := make(chan struct{})
	suggestEntered := make(chan struct{})
	s, analysis, release := blockedAnalysis(t, suggesterFunc(func(_ context.Context, desc string) ([]string, error) {
		close(suggestEntered)
		<-releaseSuggest
		return []string{"late idea for " + desc}, nil
	}))

	s.SetDescription("typed while analyzing")
	pending := s.SuggestPrompts(context.Background())
	<-suggestEntered

	close(release)
	waitCall(t, analysis)
	st, _ := s.Snapshot()
	if st.Suggestion.Busy || st.Suggestion.Err != nil {
		t.Errorf("suggestion status = %+v, want idle", st.Suggestion)
	}

	close(releaseSuggest)
	if err := waitCall(t, pending); !errors.Is(err, context.Canceled) {
		t.Errorf("expected the stale suggestion call to report cancellation, got %v", err)
	}
	if st, _ := s.Snapshot(); len(st.Suggestions) != 0 {
		t.Errorf("stale suggestion response was applied: %v", st.Suggestions)
	}
}

func TestWatch_AheadOfSessionReturnsImmediately(t *testing.T) {
	s := NewSession("test", Adapters{})
	s.SetDescription("a robot")
	_, v := s.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	_, got, err := s.Watch(ctx, v+56)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != v {
		t.Errorf("version = %d, want %d", got, v)
	}
	if time.Since(start) > time.Second {
		t.Error("watch ahead of the session should not block")
	}
}

func TestClosedSession_RejectsWithoutGoingBusy(t *testing.T) {
	fake := &countingAdapters{}
	s := NewSession("test", fake.adapters())
	s.SetVideoLink("https://youtu.be/abcdefghijk")
	s.SetDescription("a robot")
	s.Close()

	for name, start := range map[string]func(context.Context) *Call{
		"analyze":  s.AnalyzeLink,
		"suggest":  s.SuggestPrompts,
		"generate": s.Generate,
	} {
		err := waitCall(t, start(context.Background()))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected cancellation, got %v", name, err)
		}
	}

	st, _ := s.Snapshot()
	if st.AnyBusy() {
		t.Errorf("closed session left busy: %+v %+v %+v", st.LinkAnalysis, st.Suggestion, st.Generation)
	}
	if fake.total() != 0 {
		t.Errorf("expected no adapter calls, got %d", fake.total())
	}
}
