package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mediahub/pkg/domain"
)

// ErrRemoteUnavailable is returned when a pass is skipped because the breaker is open.
var ErrRemoteUnavailable = errors.New("media API unavailable")

// Report summarizes one reconciliation pass.
type Report struct {
	Pushed  int
	Pulled  int
	Dropped int
	Failed  int
}

// Reconcile replays journalled local writes against the API, then pulls
// remote items that are newer than their local copies. Conflicts resolve by
// the later updatedAt.
func (s *Service) Reconcile(ctx context.Context) (Report, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.BreakerOpen() {
		Passes.WithLabelValues("skipped").Inc()
		return Report{}, ErrRemoteUnavailable
	}

	var (
		mu     sync.Mutex
		report Report
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, entry := range s.journal.snapshot() {
		g.Go(func() error {
			outcome, err := s.push(gctx, entry)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				s.logger.Warn("reconcile: push failed", "op", entry.Op, "media_id", entry.MediaID, "err", err)
				count(&report.Failed)
			case outcome == pushDropped:
				s.journal.done(entry)
				count(&report.Dropped)
			default:
				s.journal.done(entry)
				count(&report.Pushed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		Passes.WithLabelValues("error").Inc()
		return report, err
	}

	pulled, err := s.pull(ctx)
	report.Pulled = pulled
	if err != nil {
		Passes.WithLabelValues("error").Inc()
		return report, fmt.Errorf("pull remote media: %w", err)
	}
	Passes.WithLabelValues("ok").Inc()
	s.logger.Info("reconcile: pass complete", "pushed", report.Pushed, "pulled", report.Pulled, "dropped", report.Dropped, "failed", report.Failed)
	return report, nil
}

type pushOutcome int

const (
	pushApplied pushOutcome = iota
	pushDropped
)

func (s *Service) push(ctx context.Context, e Entry) (pushOutcome, error) {
	switch e.Op {
	case OpDelete:
		_, err := call(s, func() (struct{}, error) { return struct{}{}, s.remote.Delete(ctx, e.MediaID) })
		if err != nil && !isNotFound(err) {
			return pushApplied, err
		}
		return pushApplied, nil
	case OpCreate:
		return s.pushCreate(ctx, e)
	case OpUpdate:
		return s.pushUpdate(ctx, e)
	}
	return pushDropped, nil
}

func (s *Service) pushCreate(ctx context.Context, e Entry) (pushOutcome, error) {
	item, ok := s.local.GetMediaByID(e.MediaID)
	if !ok {
		return pushDropped, nil
	}
	file, hasFile := fileFromSource(item.SourceURL)
	if hasFile {
		item.SourceURL = ""
	}
	remoteFile, closeFn, err := file.open()
	if err != nil {
		return pushApplied, err
	}
	defer closeFn()
	created, err := call(s, func() (domain.MediaItem, error) {
		return s.remote.Create(ctx, item, remoteFile, nil)
	})
	if err != nil {
		if !IsOutage(err) {
			s.logger.Error("reconcile: API rejected local item, dropping from queue", "media_id", e.MediaID, "err", err)
			return pushDropped, nil
		}
		return pushApplied, err
	}
	s.local.RekeyMedia(e.MediaID, created)
	return pushApplied, nil
}

func (s *Service) pushUpdate(ctx context.Context, e Entry) (pushOutcome, error) {
	local, ok := s.local.GetMediaByID(e.MediaID)
	if !ok {
		return pushDropped, nil
	}
	remote, err := call(s, func() (domain.MediaItem, error) { return s.remote.Get(ctx, e.MediaID) })
	if isNotFound(err) {
		// Never reached the API; the local copy stays local-only.
		return pushDropped, nil
	}
	if err != nil {
		return pushApplied, err
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		s.local.ImportMedia([]domain.MediaItem{remote})
		return pushDropped, nil
	}

	patch := domain.PatchFrom(local)
	file, hasFile := fileFromSource(local.SourceURL)
	if hasFile || local.IsEphemeral() || local.SourceURL == "" {
		patch.SourceURL = nil
	}
	remoteFile, closeFn, err := file.open()
	if err != nil {
		return pushApplied, err
	}
	defer closeFn()
	updated, err := call(s, func() (domain.MediaItem, error) {
		return s.remote.Update(ctx, e.MediaID, patch, remoteFile, nil)
	})
	if err != nil {
		if !IsOutage(err) {
			s.logger.Error("reconcile: API rejected local update, dropping from queue", "media_id", e.MediaID, "err", err)
			return pushDropped, nil
		}
		return pushApplied, err
	}
	s.local.ImportMedia([]domain.MediaItem{updated})
	return pushApplied, nil
}

func (s *Service) pull(ctx context.Context) (int, error) {
	remote, err := call(s, func() ([]domain.MediaItem, error) { return s.remote.List(ctx) })
	if err != nil {
		return 0, err
	}
	var newer []domain.MediaItem
	for _, item := range remote {
		if s.journal.pending(item.ID) {
			continue
		}
		local, ok := s.local.GetMediaByID(item.ID)
		if ok && !item.UpdatedAt.After(local.UpdatedAt) {
			continue
		}
		newer = append(newer, item)
	}
	if len(newer) > 0 {
		s.local.ImportMedia(newer)
	}
	return len(newer), nil
}

// Run reconciles every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("reconcile: pass failed", "err", err)
			}
		}
	}
}
