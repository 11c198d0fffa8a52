package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"reportstudio/internal/domain"
	"reportstudio/internal/logger"
	"reportstudio/internal/metrics"
)

// ─────────────────────────────────────────────────────────────
// saver: background persistence, latest write wins
// ─────────────────────────────────────────────────────────────

// saveJob is one pending write. History is written only when withHistory is
// set.
type saveJob struct {
	doc         domain.Document
	withHistory bool
	past        []domain.HistoryEntry
	future      []domain.HistoryEntry
}

// saver writes documents in the background. Jobs for the same document are
// coalesced: while a write is in flight only the newest pending job is kept.
type saver struct {
	docs    domain.DocumentStore
	history domain.HistoryStore // optional
	emitter EventEmitter
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]saveJob
	latest  map[string]int64 // highest version accepted per document
	known   map[string]fingerprints
	closed  bool
	guard   runningJobsGuard
}

// fingerprints holds the content hashes this process last stored for a
// document. A stored copy matching neither was written by someone else.
type fingerprints struct {
	written  uint64
	inflight uint64
}

// fingerprint hashes the parts of doc a person can edit in the stored copy.
func fingerprint(doc domain.Document) uint64 {
	raw, err := json.Marshal(struct {
		Title string             `json:"title"`
		Tree  domain.ContentTree `json:"tree"`
	}{doc.Title, doc.Tree})
	if err != nil {
		return 0
	}
	return xxhash.Sum64(raw)
}

func newSaver(docs domain.DocumentStore, history domain.HistoryStore, emitter EventEmitter, log *logger.Logger, m *metrics.Metrics) *saver {
	return &saver{
		docs:    docs,
		history: history,
		emitter: emitter,
		log:     log,
		metrics: m,
		pending: make(map[string]saveJob),
		latest:  make(map[string]int64),
		known:   make(map[string]fingerprints),
	}
}

// schedule queues job and starts a writer for its document if none runs.
// A job older than one already accepted for the same document is dropped.
func (s *saver) schedule(job saveJob) {
	id := job.doc.ID
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if v, ok := s.latest[id]; ok && job.doc.Version < v {
		s.log.Debug().Str("document", id).Int64("version", job.doc.Version).Int64("latest", v).Msg("stale save dropped")
		return
	}
	s.latest[id] = job.doc.Version
	if prev, ok := s.pending[id]; ok && prev.withHistory && !job.withHistory {
		job.withHistory, job.past, job.future = true, prev.past, prev.future
	}
	s.pending[id] = job
	if s.guard.TryLock(id) {
		go s.drain(id)
	}
}

func (s *saver) drain(id string) {
	for {
		s.mu.Lock()
		job, ok := s.pending[id]
		if !ok {
			// Unlock while holding mu so schedule cannot miss a stopping writer.
			s.guard.Unlock(id)
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		fp := s.known[id]
		fp.inflight = fingerprint(job.doc)
		s.known[id] = fp
		s.mu.Unlock()

		err := s.write(job)

		s.mu.Lock()
		fp = s.known[id]
		if err == nil {
			fp.written = fp.inflight
		}
		fp.inflight = 0
		s.known[id] = fp
		s.mu.Unlock()
	}
}

// remember records doc as the stored copy, e.g. after loading it.
func (s *saver) remember(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp := s.known[doc.ID]
	fp.written = fingerprint(doc)
	s.known[doc.ID] = fp
}

// wrote reports whether doc's content is what this process stored last or is
// storing now.
func (s *saver) wrote(doc domain.Document) bool {
	h := fingerprint(doc)
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.known[doc.ID]
	return ok && (h == fp.written || h == fp.inflight)
}

// version returns the highest version accepted for id.
func (s *saver) version(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[id]
}

func (s *saver) write(job saveJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	doc := job.doc
	err := s.docs.Put(ctx, &doc)
	if err == nil && job.withHistory && s.history != nil {
		err = s.history.SaveHistory(ctx, doc.ID, job.past, job.future)
	}
	duration := time.Since(start)

	s.metrics.RecordSave(duration, err)
	s.log.LogStorage("put", doc.ID, duration, err)
	if err != nil {
		s.emitter.Emit(ctx, EventSaveFailed, SaveFailedEvent{
			DocumentID: doc.ID,
			Version:    doc.Version,
			Error:      err.Error(),
		})
		return err
	}
	s.emitter.Emit(ctx, EventDocumentSaved, SavedEvent{DocumentID: doc.ID, Version: doc.Version})
	return nil
}

// flush waits for every pending write.
func (s *saver) flush(ctx context.Context) error {
	return s.guard.WaitAll(ctx)
}

// close rejects new jobs and waits for pending ones.
func (s *saver) close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.flush(ctx)
}
