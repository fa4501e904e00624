package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/writing-assistant/internal/core/debounce"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAborted = "aborted"
	OutcomeStale   = "stale"
)

type PipelineConfig struct {
	Mode          domain.WritingMode
	DebounceDelay time.Duration
	MinTextLength int
	AutoFetch     bool
	MaxTokens     int
	Temperature   *float64
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Mode:          domain.ModeBusiness,
		DebounceDelay: 3 * time.Second,
		MinTextLength: 100,
		AutoFetch:     true,
	}
}

// SuggestionPipeline turns an edit stream into remote suggestion fetches and
// keeps the resulting suggestion list.
//
// Only one fetch is current at a time. Starting a fetch bumps the generation
// and cancels the context of the previous one; a result whose generation is no
// longer current is dropped. Cancelling the context stops waiting and retries,
// but a transport that ignores the context may still finish its request in the
// background: what is guaranteed is that its result never reaches the list.
type SuggestionPipeline struct {
	service   ports.SuggestionService
	observer  ports.PipelineObserver
	logger    *slog.Logger
	cfg       PipelineConfig
	debouncer *debounce.Debouncer[string]

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu             sync.Mutex
	state          domain.PipelineState
	settled        domain.PipelineStatus
	guardText      string
	cancelInFlight context.CancelFunc
	dismissed      map[string]struct{}
	subscribers    map[int]func(domain.PipelineState)
	nextSubscriber int
	closed         bool
}

func NewSuggestionPipeline(
	service ports.SuggestionService,
	clock debounce.Clock,
	observer ports.PipelineObserver,
	logger *slog.Logger,
	cfg PipelineConfig,
) *SuggestionPipeline {
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := domain.ParseWritingMode(string(cfg.Mode)); !ok {
		cfg.Mode = domain.ModeBusiness
	}
	if cfg.MinTextLength < 0 {
		cfg.MinTextLength = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &SuggestionPipeline{
		service:     service,
		observer:    observer,
		logger:      logger,
		cfg:         cfg,
		baseCtx:     ctx,
		baseCancel:  cancel,
		settled:     domain.StatusIdle,
		dismissed:   make(map[string]struct{}),
		subscribers: make(map[int]func(domain.PipelineState)),
		state: domain.PipelineState{
			Status:      domain.StatusIdle,
			Suggestions: []domain.Suggestion{},
		},
	}
	p.debouncer = debounce.New(clock, p.debounceElapsed)
	return p
}

func (p *SuggestionPipeline) Config() PipelineConfig {
	return p.cfg
}

// State returns a snapshot of the current pipeline state.
func (p *SuggestionPipeline) State() domain.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn runs outside the pipeline lock; Version orders snapshots.
func (p *SuggestionPipeline) Subscribe(fn func(domain.PipelineState)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubscriber
	p.nextSubscriber++
	p.subscribers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

// OnEdit feeds the latest text into the debounced fetch path. Text shorter
// than MinTextLength cancels any pending debounce instead.
func (p *SuggestionPipeline) OnEdit(text string) {
	if !p.cfg.AutoFetch {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if !p.longEnough(text) {
		cancelled := p.debouncer.Cancel()
		if !cancelled || p.state.Status != domain.StatusDebouncing {
			p.mu.Unlock()
			return
		}
		p.state.Status = p.settled
		p.commitLocked()
		return
	}

	p.debouncer.Schedule(text, p.cfg.DebounceDelay)
	if p.state.Status.Resting() {
		p.state.Status = domain.StatusDebouncing
	}
	p.commitLocked()
}

// FetchSuggestions skips the debounce and fetches suggestions for text,
// blocking until the fetch settles. Fetching the text of the last completed or
// in-flight fetch again is a no-op. The returned error is the *domain.APIError
// stored in the error slot; superseded and cancelled fetches return nil.
func (p *SuggestionPipeline) FetchSuggestions(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	p.debouncer.Cancel()
	return p.run(ctx, text, false)
}

// Retry refetches the last attempted text, bypassing the identical-text rule.
func (p *SuggestionPipeline) Retry(ctx context.Context) error {
	p.mu.Lock()
	text := p.state.LastAttemptedText
	closed := p.closed
	p.mu.Unlock()

	if closed || text == "" {
		return nil
	}
	p.debouncer.Cancel()
	return p.run(ctx, text, true)
}

// ApplySuggestion returns currentText with the suggestion applied and removes
// the suggestion from the list, even when nothing could be replaced.
func (p *SuggestionPipeline) ApplySuggestion(s domain.Suggestion, currentText string) string {
	updated := ApplyReplacement(s, currentText)

	p.mu.Lock()
	if p.removeLocked(s.ID) {
		p.commitLocked()
	} else {
		p.mu.Unlock()
	}

	p.logger.Info("suggestion_applied",
		"suggestion_id", s.ID,
		"category", string(s.Category),
		"changed", updated != currentText,
	)
	return updated
}

// DismissSuggestion removes the suggestion with id and reports whether it was
// in the list.
func (p *SuggestionPipeline) DismissSuggestion(id string) bool {
	p.mu.Lock()
	p.dismissed[id] = struct{}{}
	if !p.removeLocked(id) {
		p.mu.Unlock()
		return false
	}
	p.commitLocked()
	return true
}

// Suggestion looks up an active suggestion by id.
func (p *SuggestionPipeline) Suggestion(id string) (domain.Suggestion, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.state.Suggestions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Suggestion{}, false
}

// Clear drops pending and in-flight work and resets the list, the error and
// the last attempted text.
func (p *SuggestionPipeline) Clear() {
	p.debouncer.Cancel()

	p.mu.Lock()
	p.supersedeLocked()
	p.state.Status = domain.StatusIdle
	p.settled = domain.StatusIdle
	p.state.Attempt = 0
	p.state.Loading = false
	p.state.Error = nil
	p.state.Suggestions = []domain.Suggestion{}
	p.state.LastAttemptedText = ""
	p.guardText = ""
	p.dismissed = make(map[string]struct{})
	p.commitLocked()
}

// Close cancels the pending debounce and any in-flight fetch, then waits for
// background fetches to return. The pipeline ignores further commands.
func (p *SuggestionPipeline) Close() {
	p.debouncer.Stop()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.supersedeLocked()
	p.subscribers = make(map[int]func(domain.PipelineState))
	p.mu.Unlock()

	p.baseCancel()
	p.wg.Wait()
}

// Wait blocks until fetches started by the debounce have returned.
func (p *SuggestionPipeline) Wait() {
	p.wg.Wait()
}

func (p *SuggestionPipeline) debounceElapsed(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		_ = p.run(p.baseCtx, text, false)
	}()
}

func (p *SuggestionPipeline) run(ctx context.Context, text string, force bool) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if !force && text == p.guardText {
		if p.state.Status == domain.StatusDebouncing && !p.debouncer.Pending() {
			p.state.Status = p.settled
			p.commitLocked()
		} else {
			p.mu.Unlock()
		}
		return nil
	}

	p.supersedeLocked()
	gen := p.state.Generation
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelInFlight = cancel
	p.guardText = text
	p.state.Status = domain.StatusInFlight
	p.state.Attempt = 0
	p.state.Loading = true
	p.state.LastAttemptedText = text
	if force {
		p.state.Error = nil
	}
	mode := p.cfg.Mode
	p.commitLocked()
	defer cancel()

	p.observer.FetchStarted(mode)
	started := time.Now()
	suggestions, err := p.service.FetchSuggestions(fetchCtx, text, mode, ports.RequestOptions{
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		OnRetry: func(attempt int, delay time.Duration, apiErr *domain.APIError) {
			p.retrying(gen, attempt, delay, apiErr)
		},
	})
	elapsed := time.Since(started)

	p.mu.Lock()
	if gen != p.state.Generation {
		p.mu.Unlock()
		p.observer.StaleResultDiscarded()
		p.observer.FetchFinished(mode, OutcomeStale, elapsed)
		p.logger.Info("suggestion_fetch_stale", "generation", gen)
		return nil
	}

	p.cancelInFlight = nil
	p.state.Loading = false
	p.state.Attempt = 0

	if err == nil {
		p.state.Suggestions = p.rankLocked(suggestions)
		p.state.Error = nil
		p.settled = domain.StatusSucceeded
		p.state.Status = p.restingStatusLocked()
		count := len(p.state.Suggestions)
		p.commitLocked()

		p.observer.FetchFinished(mode, OutcomeSuccess, elapsed)
		p.logger.Info("suggestion_fetch_succeeded",
			"generation", gen,
			"suggestions", count,
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil
	}

	if errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled) {
		// Nothing reached the list, so the same text may be fetched again.
		p.guardText = ""
		p.state.Status = p.restingStatusLocked()
		p.commitLocked()

		p.observer.FetchFinished(mode, OutcomeAborted, elapsed)
		p.logger.Info("suggestion_fetch_aborted", "generation", gen)
		return nil
	}

	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		apiErr = &domain.APIError{
			Code:    domain.CodeUnknown,
			Message: "Something went wrong while contacting the writing service.",
			Err:     err,
		}
	}
	p.state.Error = apiErr
	p.settled = domain.StatusFailed
	p.state.Status = p.restingStatusLocked()
	p.commitLocked()

	p.observer.FetchFinished(mode, OutcomeFailure, elapsed)
	p.logger.Warn("suggestion_fetch_failed",
		"generation", gen,
		"code", string(apiErr.Code),
		"retryable", apiErr.Retryable,
		"error", err,
	)
	return apiErr
}

// restingStatusLocked is the status after a fetch settles: an edit that arrived
// meanwhile is still debouncing.
func (p *SuggestionPipeline) restingStatusLocked() domain.PipelineStatus {
	if p.debouncer.Pending() {
		return domain.StatusDebouncing
	}
	return p.settled
}

func (p *SuggestionPipeline) retrying(gen uint64, attempt int, delay time.Duration, apiErr *domain.APIError) {
	code := domain.CodeUnknown
	if apiErr != nil {
		code = apiErr.Code
	}
	p.observer.FetchRetried(code)

	p.mu.Lock()
	if gen != p.state.Generation || p.closed {
		p.mu.Unlock()
		return
	}
	p.state.Status = domain.StatusRetrying
	p.state.Attempt = attempt + 1
	p.commitLocked()

	p.logger.Info("suggestion_fetch_retrying",
		"generation", gen,
		"attempt", attempt+1,
		"delay_ms", delay.Milliseconds(),
		"code", string(code),
	)
}

// supersedeLocked invalidates the current fetch, if any.
func (p *SuggestionPipeline) supersedeLocked() {
	if p.cancelInFlight != nil {
		p.cancelInFlight()
		p.cancelInFlight = nil
	}
	p.state.Generation++
}

func (p *SuggestionPipeline) rankLocked(in []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(in))
	for _, s := range in {
		if _, dismissed := p.dismissed[s.ID]; dismissed {
			continue
		}
		out = append(out, s)
	}
	SortBySeverity(out)
	return out
}

func (p *SuggestionPipeline) removeLocked(id string) bool {
	for i, s := range p.state.Suggestions {
		if s.ID != id {
			continue
		}
		next := make([]domain.Suggestion, 0, len(p.state.Suggestions)-1)
		next = append(next, p.state.Suggestions[:i]...)
		next = append(next, p.state.Suggestions[i+1:]...)
		p.state.Suggestions = next
		return true
	}
	return false
}

func (p *SuggestionPipeline) longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= p.cfg.MinTextLength
}

func (p *SuggestionPipeline) snapshotLocked() domain.PipelineState {
	out := p.state
	out.Suggestions = append([]domain.Suggestion(nil), p.state.Suggestions...)
	if out.Suggestions == nil {
		out.Suggestions = []domain.Suggestion{}
	}
	return out
}

// commitLocked bumps the version, releases the lock and notifies subscribers.
func (p *SuggestionPipeline) commitLocked() {
	p.state.Version++
	snapshot := p.snapshotLocked()
	subscribers := make([]func(domain.PipelineState), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subscribers = append(subscribers, fn)
	}
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// SortBySeverity orders suggestions error first, keeping arrival order among
// equal severities.
func SortBySeverity(list []domain.Suggestion) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Severity.Rank() < list[j].Severity.Rank()
	})
}

// ApplyReplacement replaces the first occurrence of the suggestion's original
// text. Suggestions without a replacement, or whose original text is no longer
// present, leave the text unchanged.
func ApplyReplacement(s domain.Suggestion, text string) string {
	if s.SuggestedText == nil || s.OriginalText == "" {
		return text
	}
	return strings.Replace(text, s.OriginalText, *s.SuggestedText, 1)
}

type noopObserver struct{}

func (noopObserver) FetchStarted(domain.WritingMode) {}
func (noopObserver) FetchFinished(domain.WritingMode, string, time.Duration) {}
func (noopObserver) FetchRetried(domain.APIErrorCode) {}
func (noopObserver) StaleResultDiscarded() {}
