package reconcile

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"mediahub/internal/kv"
)

// KeyJournal holds local writes that still need to reach the media API.
const KeyJournal = "ac_sync_journal"

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry is one pending local write.
type Entry struct {
	MediaID string    `json:"mediaId"`
	Op      Op        `json:"op"`
	At      time.Time `json:"at"`
}

// journal collapses writes per media id and persists them after every change.
type journal struct {
	mu      sync.Mutex
	storage kv.Storage
	logger  *slog.Logger
	entries map[string]Entry
}

func openJournal(storage kv.Storage, logger *slog.Logger) *journal {
	j := &journal{storage: storage, logger: logger, entries: make(map[string]Entry)}
	data, ok, err := storage.Get(KeyJournal)
	if err != nil {
		logger.Warn("reconcile: read journal failed", "err", err)
		return j
	}
	if !ok {
		return j
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("reconcile: corrupt journal discarded", "err", err)
		return j
	}
	for _, e := range entries {
		j.entries[e.MediaID] = e
	}
	return j
}

// record merges op into the pending entry for id.
func (j *journal) record(id string, op Op, at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	prev, ok := j.entries[id]
	switch {
	case !ok:
		j.entries[id] = Entry{MediaID: id, Op: op, At: at}
	case prev.Op == OpCreate && op == OpDelete:
		delete(j.entries, id)
	case prev.Op == OpCreate:
		j.entries[id] = Entry{MediaID: id, Op: OpCreate, At: at}
	default:
		j.entries[id] = Entry{MediaID: id, Op: op, At: at}
	}
	j.persist()
}

// done drops e unless a newer write was recorded while it was being pushed.
func (j *journal) done(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	cur, ok := j.entries[e.MediaID]
	if !ok || !cur.At.Equal(e.At) || cur.Op != e.Op {
		return
	}
	delete(j.entries, e.MediaID)
	j.persist()
}

func (j *journal) pending(id string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.entries[id]
	return ok
}

func (j *journal) snapshot() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].At.Before(out[b].At) })
	return out
}

func (j *journal) persist() {
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].MediaID < out[b].MediaID })
	data, err := json.Marshal(out)
	if err != nil {
		j.logger.Error("reconcile: encode journal failed", "err", err)
		return
	}
	if err := j.storage.Set(KeyJournal, data); err != nil {
		j.logger.Error("reconcile: write journal failed", "err", err)
	}
}
