package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fpang/thumbnail-studio/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrNoSuchSuggestion is returned when selecting an index outside the list.
var ErrNoSuchSuggestion = errors.New("no such suggestion")

// metricsNamespace is the EMF namespace for operation metrics.
const metricsNamespace = "ThumbnailStudio"

// Session is the state container of one UI session plus its three operation
// controllers. All transitions happen under mu; adapter calls run outside it.
type Session struct {
	id       string
	adapters Adapters
	now      func() time.Time

	mu        sync.Mutex
	state     State
	version   uint64
	changed   chan struct{}
	inflight  [numOperations]inflight
	lastStamp int64
	closed    bool
}

// inflight is the cancellation token of an operation's current call.
type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewSession creates a session with default form state.
func NewSession(id string, adapters Adapters) *Session {
	return &Session{
		id:       id,
		adapters: adapters,
		now:      time.Now,
		state:    NewState(),
		changed:  make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state and its version.
func (s *Session) Snapshot() (State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.version
}

// Watch blocks until the state version differs from since, then returns the
// new state. A since ahead of the current version (a client that saw an older
// session under the same id) returns at once. On ctx expiry it returns the
// current state with ctx's error.
func (s *Session) Watch(ctx context.Context, since uint64) (State, uint64, error) {
	for {
		s.mu.Lock()
		if s.version != since {
			st, v := s.state.Clone(), s.version
			s.mu.Unlock()
			return st, v, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			st, v := s.Snapshot()
			return st, v, ctx.Err()
		}
	}
}

// Close cancels every in-flight call. Late completions are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for op := range s.inflight {
		s.supersedeLocked(Operation(op))
	}
}

// --- Form State Store ---

// SetVideoLink updates the link field and clears the link-analysis error.
func (s *Session) SetVideoLink(v string) {
	s.mutate(func(st *State) bool { return st.setVideoLink(v) })
}

// SetDescription updates the description and clears the generation error,
// the suggestion error and the suggestion list.
func (s *Session) SetDescription(v string) {
	s.mutate(func(st *State) bool { return st.setDescription(v) })
}

// SetImageCount updates the requested thumbnail count. Range checks happen
// when generation starts.
func (s *Session) SetImageCount(n int) {
	s.mutate(func(st *State) bool { return st.setImageCount(n) })
}

// ToggleStyle adds the style if absent and removes it if present. Unknown ids
// are ignored.
func (s *Session) ToggleStyle(id string) {
	s.mutate(func(st *State) bool { return st.toggleStyle(id) })
}

// SelectSuggestion copies the i-th suggestion into the description and clears
// the list.
func (s *Session) SelectSuggestion(i int) error {
	var ok bool
	s.mutate(func(st *State) bool {
		ok = st.selectSuggestion(i)
		return ok
	})
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchSuggestion, i)
	}
	return nil
}

func (s *Session) mutate(fn func(*State) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn(&s.state) {
		s.bumpLocked()
	}
}

// bumpLocked publishes a new version and wakes every watcher.
func (s *Session) bumpLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// --- Operation Controllers ---

// AnalyzeLink looks up the current video link and replaces the description
// with one generated from the video's metadata.
func (s *Session) AnalyzeLink(ctx context.Context) *Call {
	s.mu.Lock()
	if s.closed {
		return s.closedLocked()
	}
	link := s.state.Form.VideoLink
	if strings.TrimSpace(link) == "" {
		return s.rejectLocked(OpLinkAnalysis, NewValidationError(msgLinkRequired))
	}
	s.state.beginLinkAnalysis()
	opCtx, seq := s.startLocked(ctx, OpLinkAnalysis)
	s.mu.Unlock()

	return s.run(opCtx, OpLinkAnalysis, seq, func(ctx context.Context) (func(*State), *OpError) {
		desc, err := s.analyzeLink(ctx, link)
		if err != nil {
			return nil, err
		}
		return func(st *State) {
			// Suggestions in flight were asked for the replaced text.
			s.supersedeLocked(OpSuggestion)
			st.describeFromVideo(desc)
		}, nil
	})
}

func (s *Session) analyzeLink(ctx context.Context, link string) (string, *OpError) {
	info, err := s.adapters.Lookup.LookupVideo(ctx, link)
	if err != nil {
		return "", AdapterError(err, fallbackLinkAnalysis)
	}
	if strings.TrimSpace(info.Title) == "" {
		return "", NewMissingTitleError()
	}

	log.Debug().
		Str("session", s.id).
		Str("title", info.Title).
		Str("author", info.AuthorName).
		Msg("Video metadata resolved")

	desc, err := s.adapters.Writer.DescribeVideo(ctx, info)
	if err != nil {
		return "", AdapterError(err, fallbackLinkAnalysis)
	}
	return desc, nil
}

// SuggestPrompts asks for creative variations of the current description.
func (s *Session) SuggestPrompts(ctx context.Context) *Call {
	s.mu.Lock()
	if s.closed {
		return s.closedLocked()
	}
	desc := s.state.Form.Description
	if strings.TrimSpace(desc) == "" {
		return s.rejectLocked(OpSuggestion, NewValidationError(msgDescriptionForIdeas))
	}
	s.state.beginSuggestion()
	opCtx, seq := s.startLocked(ctx, OpSuggestion)
	s.mu.Unlock()

	return s.run(opCtx, OpSuggestion, seq, func(ctx context.Context) (func(*State), *OpError) {
		suggestions, err := s.adapters.Suggester.SuggestPrompts(ctx, desc)
		if err != nil {
			return nil, AdapterError(err, fallbackSuggestion)
		}
		return func(st *State) { st.Suggestions = suggestions }, nil
	})
}

// Generate renders thumbnails for the current description, count and styles.
func (s *Session) Generate(ctx context.Context) *Call {
	s.mu.Lock()
	if s.closed {
		return s.closedLocked()
	}
	form := s.state.Form
	if strings.TrimSpace(form.Description) == "" {
		return s.rejectLocked(OpGeneration, NewValidationError(msgDescriptionRequired))
	}
	if form.ImageCount < 1 || form.ImageCount > MaxImageCount {
		return s.rejectLocked(OpGeneration, NewValidationError(msgImageCountRange))
	}
	req := ImageRequest{
		Description: form.Description,
		ImageCount:  form.ImageCount,
		AspectRatio: AspectRatio,
		Styles:      StyleNames(form.SelectedStyles),
	}
	s.state.beginGeneration()
	opCtx, seq := s.startLocked(ctx, OpGeneration)
	s.mu.Unlock()

	return s.run(opCtx, OpGeneration, seq, func(ctx context.Context) (func(*State), *OpError) {
		images, err := s.adapters.Images.GenerateImages(ctx, req)
		if err != nil {
			return nil, AdapterError(err, fallbackGeneration)
		}
		if len(images) < req.ImageCount {
			return nil, &OpError{
				Kind:    KindAdapter,
				Message: fmt.Sprintf("The image service returned %d of %d requested thumbnails.", len(images), req.ImageCount),
			}
		}
		images = images[:req.ImageCount]
		return func(st *State) { st.Results = s.thumbnailsFor(req, images) }, nil
	})
}

// thumbnailsFor maps payloads to results. Called under mu.
func (s *Session) thumbnailsFor(req ImageRequest, images []Image) []Thumbnail {
	stamp := s.now().UnixNano()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp

	out := make([]Thumbnail, len(images))
	for i, img := range images {
		out[i] = Thumbnail{
			ID:      fmt.Sprintf("thumb-%d-%d", stamp, i),
			Image:   img,
			Caption: buildCaption(i, req.Description, req.Styles),
		}
	}
	return out
}

// rejectLocked records a validation failure, superseding any in-flight call
// of the same kind, and unlocks mu.
func (s *Session) rejectLocked(op Operation, err *OpError) *Call {
	s.supersedeLocked(op)
	s.state.reject(op, err)
	s.bumpLocked()
	s.mu.Unlock()

	log.Debug().Str("session", s.id).Str("operation", op.String()).Str("error", err.Message).Msg("Operation rejected")
	record(op, 0, err)
	return settledCall(err)
}

// closedLocked refuses an operation on a closed session and unlocks mu. No
// status changes, so nothing is left busy.
func (s *Session) closedLocked() *Call {
	s.mu.Unlock()
	return settledCall(cancelledError())
}

// startLocked cancels the previous call of op and issues a new token.
func (s *Session) startLocked(ctx context.Context, op Operation) (context.Context, uint64) {
	s.supersedeLocked(op)
	opCtx, cancel := context.WithCancel(ctx)
	s.inflight[op].cancel = cancel
	s.bumpLocked()
	return opCtx, s.inflight[op].seq
}

func (s *Session) supersedeLocked(op Operation) {
	cur := &s.inflight[op]
	if cur.cancel != nil {
		cur.cancel()
		cur.cancel = nil
	}
	cur.seq++
}

// run executes work on its own goroutine and settles op if seq is still current.
func (s *Session) run(ctx context.Context, op Operation, seq uint64, work func(context.Context) (func(*State), *OpError)) *Call {
	call := newCall()
	go func() {
		start := s.now()
		apply, opErr := work(ctx)
		elapsed := s.now().Sub(start)

		if !s.settle(op, seq, opErr, apply) {
			log.Debug().
				Str("session", s.id).
				Str("operation", op.String()).
				Msg("Dropping superseded operation result")
			call.finish(cancelledError())
			return
		}

		evt := log.Info()
		if opErr != nil {
			evt = log.Warn().Str("error_kind", opErr.Kind.String()).Str("error", opErr.Message)
		}
		evt.Str("session", s.id).
			Str("operation", op.String()).
			Dur("duration", elapsed).
			Msg("Operation complete")
		record(op, elapsed, opErr)
		call.finish(opErr)
	}()
	return call
}

func (s *Session) settle(op Operation, seq uint64, opErr *OpError, apply func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := &s.inflight[op]
	if cur.seq != seq || s.closed {
		return false
	}
	if cur.cancel != nil {
		cur.cancel()
		cur.cancel = nil
	}
	s.state.settle(op, opErr, apply)
	s.bumpLocked()
	return true
}

func cancelledError() *OpError {
	return &OpError{Kind: KindAdapter, Message: msgCancelled, Err: context.Canceled}
}

// record emits one EMF record per finished operation.
func record(op Operation, elapsed time.Duration, err *OpError) {
	result := "success"
	if err != nil {
		result = err.Kind.String()
	}
	metrics.New(metricsNamespace).
		Dimension("Operation", op.String()).
		Dimension("Result", result).
		Metric("LatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("OperationCount").
		Flush()
}
