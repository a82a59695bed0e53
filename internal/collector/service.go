package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/models"
	"github.com/socialstudio/ugc-collector/internal/normalize"
	"github.com/socialstudio/ugc-collector/internal/notifications"
	"github.com/socialstudio/ugc-collector/internal/progress"
	"github.com/socialstudio/ugc-collector/internal/store"
)

// runState names the stages a collection run moves through. Runs advance
// strictly in order; a fatal error seals the run from whatever state it is
// in, keeping the counts accumulated so far.
type runState string

const (
	statePending    runState = "pending"
	stateFetching   runState = "fetching"
	stateNormalize  runState = "normalizing"
	stateDeduping   runState = "deduping"
	statePersisting runState = "rehosting/persisting"
	stateSealed     runState = "sealed"
)

// Fetcher is the external scrape adapter as the orchestrator sees it.
type Fetcher interface {
	FetchItems(ctx context.Context, req models.ScrapeRequest, sink progress.Sink) ([]models.RawItem, error)
}

// Rehoster rewrites post media URLs to owned storage, best-effort.
type Rehoster interface {
	RehostPosts(ctx context.Context, posts []models.Post)
}

// HistorySink receives sealed runs; it must never fail the caller.
type HistorySink interface {
	Log(run models.CollectionRun)
}

// Service orchestrates one collection run end to end: fetch, normalize,
// dedupe, rehost, persist, seal.
type Service struct {
	fetcher  Fetcher
	store    store.Store
	rehoster Rehoster
	history  HistorySink
	notifier notifications.Notifier

	mu      sync.RWMutex
	tracker *progress.Tracker
	lastRun *models.CollectionRun
}

// NewService creates the orchestrator. notifier may be nil.
func NewService(fetcher Fetcher, st store.Store, rehoster Rehoster, history HistorySink, notifier notifications.Notifier) *Service {
	return &Service{
		fetcher:  fetcher,
		store:    st,
		rehoster: rehoster,
		history:  history,
		notifier: notifier,
	}
}

// Progress returns the tracker of the most recent run, if any.
func (s *Service) Progress() *progress.Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker
}

// LastRun returns a copy of the most recently sealed run, if any.
func (s *Service) LastRun() (models.CollectionRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return models.CollectionRun{}, false
	}
	return *s.lastRun, true
}

// Run executes one collection run. It always returns a sealed CollectionRun;
// fatal errors are recorded on it rather than returned.
func (s *Service) Run(ctx context.Context, req models.ScrapeRequest) *models.CollectionRun {
	run := &models.CollectionRun{
		ID:          uuid.NewString(),
		RequestedAt: time.Now().UTC(),
		Mode:        req.Mode,
	}

	tracker := progress.NewTracker()
	s.mu.Lock()
	s.tracker = tracker
	s.mu.Unlock()

	state := statePending
	logrus.Infof("Run %s: %s collection of %v (limit %d)", run.ID, req.Mode, req.Targets, req.ResultsLimit)

	state = s.advance(run.ID, state, stateFetching)
	items, err := s.fetcher.FetchItems(ctx, req, tracker)
	if err != nil {
		return s.seal(run, tracker, state, false, err)
	}
	run.ItemsFetched = len(items)
	tracker.Record(models.ProgressEvent{
		Step: "fetched", Percentage: 50, Total: len(items),
		Message: fmt.Sprintf("fetched %d raw items", len(items)),
	})

	state = s.advance(run.ID, state, stateNormalize)
	posts, err := normalize.Normalize(items)
	if err != nil {
		var emptyErr *normalize.EmptyResultError
		if errors.As(err, &emptyErr) {
			// The sole sentinel item is not a post.
			run.ItemsFetched = 0
		}
		return s.seal(run, tracker, state, false, err)
	}
	tracker.Record(models.ProgressEvent{
		Step: "normalized", Percentage: 55, Current: len(posts), Total: len(items),
		Message: fmt.Sprintf("normalized %d of %d items", len(posts), len(items)),
	})

	state = s.advance(run.ID, state, stateDeduping)
	permalinks := make([]string, 0, len(posts))
	for _, post := range posts {
		permalinks = append(permalinks, post.Permalink)
	}
	existing, err := s.store.ExistingPermalinks(ctx, permalinks)
	if err != nil {
		// Treating everything as new here would risk duplicate writes.
		return s.seal(run, tracker, state, false, fmt.Errorf("dedup lookup failed: %w", err))
	}
	fresh, known := store.Partition(posts, existing)
	tracker.Record(models.ProgressEvent{
		Step: "deduped", Percentage: 65, Current: len(fresh), Total: len(posts),
		Message: fmt.Sprintf("%d new, %d already collected", len(fresh), len(known)),
	})

	state = s.advance(run.ID, state, statePersisting)
	s.rehoster.RehostPosts(ctx, fresh)

	perItemErrors := 0
	for i, post := range fresh {
		if err := s.store.InsertPost(ctx, post); err != nil {
			logrus.Errorf("Run %s: failed to persist %s: %v", run.ID, post.Permalink, err)
			run.Errors = append(run.Errors, fmt.Sprintf("persist %s: %v", post.Permalink, err))
			perItemErrors++
		} else {
			run.ItemsStored++
		}

		tracker.Record(models.ProgressEvent{
			Step: "persisting", Percentage: 70 + (i+1)*29/max(len(fresh), 1),
			Current: i + 1, Total: len(fresh),
			Message: fmt.Sprintf("persisted %d of %d posts", i+1, len(fresh)),
		})
	}

	success := perItemErrors == 0 || run.ItemsStored > 0
	return s.seal(run, tracker, state, success, nil)
}

// seal finalizes the run from whatever state it reached, emits the terminal
// progress event and hands the result to the best-effort sinks.
func (s *Service) seal(run *models.CollectionRun, tracker *progress.Tracker, from runState, success bool, fatal error) *models.CollectionRun {
	if fatal != nil {
		run.Errors = append(run.Errors, fatal.Error())
	}

	run.FinishedAt = time.Now().UTC()
	run.Success = success
	s.advance(run.ID, from, stateSealed)

	step := "completed"
	if !success {
		step = "failed"
	}
	tracker.Record(models.ProgressEvent{
		Step: step, Percentage: 100,
		Current: run.ItemsStored, Total: run.ItemsFetched,
		Message: fmt.Sprintf("collected %d, stored %d new posts", run.ItemsFetched, run.ItemsStored),
	})

	if success {
		logrus.Infof("Run %s: sealed, fetched %d, stored %d", run.ID, run.ItemsFetched, run.ItemsStored)
	} else {
		logrus.Errorf("Run %s: sealed with failure, fetched %d, stored %d, errors: %v",
			run.ID, run.ItemsFetched, run.ItemsStored, run.Errors)
	}

	s.mu.Lock()
	copied := *run
	s.lastRun = &copied
	s.mu.Unlock()

	if s.history != nil {
		s.history.Log(*run)
	}
	if !success && s.notifier != nil {
		if err := s.notifier.NotifyRunFailed(run); err != nil {
			logrus.Warnf("Run %s: failure notification not delivered: %v", run.ID, err)
		}
	}

	return run
}

func (s *Service) advance(runID string, from, to runState) runState {
	logrus.Debugf("Run %s: %s -> %s", runID, from, to)
	return to
}
