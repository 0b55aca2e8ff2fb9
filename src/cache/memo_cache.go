package cache

import (
	"context"
	"errors"
	"sync"

	"cat-board/src/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// MemosKey is the single logical key of the memo list entry
const MemosKey = "memos"

// ErrClosed is reported by fetches that finish after Close
var ErrClosed = errors.New("memo cache closed")

// Status of the memo list entry
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusError
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// State is what observers see. Data is nil until a fetch succeeds; an empty
// non-nil slice means the server has no memos.
type State struct {
	Data      []domain.Memo
	IsLoading bool
	Error     error
	Status    Status
}

// MemoCache is the single source of truth for the memo list. Reads share
// one in-flight List; successful mutations mark the list stale so the next
// read refetches. Nothing is patched locally.
type MemoCache struct {
	repo   domain.MemoRepository
	logger *logrus.Logger
	group  singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	settled  Status // empty, ready, error or stale
	data     []domain.Memo
	err      error
	fetching bool
	gen      uint64
	closed   bool
}

// NewMemoCache creates a cache. Background fetches run under ctx, not under
// the context of whichever reader triggered them.
func NewMemoCache(ctx context.Context, repo domain.MemoRepository, logger *logrus.Logger) *MemoCache {
	ctx, cancel := context.WithCancel(ctx)
	return &MemoCache{
		repo:    repo,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		settled: StatusEmpty,
	}
}

// Snapshot returns the current state without triggering a fetch
func (c *MemoCache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Read returns the latest known state. When the entry is empty, stale or in
// error and nothing is in flight, it starts exactly one background List.
func (c *MemoCache) Read(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beginLocked()
	return c.snapshotLocked()
}

// Load is Read that waits for the in-flight fetch. If ctx ends first the
// current snapshot is returned and the late response still lands in the
// cache, not in the caller.
func (c *MemoCache) Load(ctx context.Context) State {
	c.mu.Lock()
	done := c.beginLocked()
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return c.Snapshot()
}

// Create forwards to the repository. Success marks the list stale and
// clears any transient error; failure leaves the entry untouched.
func (c *MemoCache) Create(ctx context.Context, req domain.CreateMemoRequest) (*domain.Memo, error) {
	memo, err := c.repo.Create(ctx, req)
	if err != nil {
		c.logger.WithError(err).Warn("メモの作成に失敗しました")
		return nil, err
	}

	c.Invalidate()
	c.logger.WithField("memo_id", memo.ID).Debug("メモ作成によりキャッシュを無効化")
	return memo, nil
}

// Remove forwards to the repository. A memo the server no longer has counts
// as removed. Other failures leave the entry untouched.
func (c *MemoCache) Remove(ctx context.Context, id int64) error {
	err := c.repo.Remove(ctx, id)
	switch {
	case errors.Is(err, domain.ErrMemoNotFound):
		c.logger.WithField("memo_id", id).Info("既に削除済みのメモです")
	case err != nil:
		c.logger.WithError(err).WithField("memo_id", id).Warn("メモの削除に失敗しました")
		return err
	}

	c.Invalidate()
	return nil
}

// Invalidate marks the list stale so the next read refetches. A fetch that
// is in flight when this is called leaves the entry stale when it resolves.
func (c *MemoCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.err = nil
	switch c.settled {
	case StatusReady:
		c.settled = StatusStale
	case StatusError:
		c.settled = StatusEmpty
	}
}

// Close stops background fetches. Responses arriving afterwards are dropped.
func (c *MemoCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// beginLocked joins the in-flight fetch or starts one if the entry needs it.
// It returns nil when the entry is fresh.
func (c *MemoCache) beginLocked() <-chan singleflight.Result {
	if c.closed {
		return nil
	}
	if !c.fetching {
		if c.settled == StatusReady {
			return nil
		}
		// A read after an error refetches. Nothing retries on its own.
		c.fetching = true
		c.err = nil
	}
	// fetching implies the key is registered, so fn only runs for a new
	// call. DoChan runs it on its own goroutine; holding c.mu here is safe.
	gen := c.gen
	return c.group.DoChan(MemosKey, func() (interface{}, error) {
		return c.fetch(gen)
	})
}

// fetch lists memos. gen is the invalidation generation the call started at.
func (c *MemoCache) fetch(gen uint64) (interface{}, error) {
	memos, err := c.repo.List(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Later reads must start a new call rather than join this finished one
	c.group.Forget(MemosKey)
	c.fetching = false

	if c.closed {
		return nil, ErrClosed
	}

	if err != nil {
		c.logger.WithError(err).Warn("メモ一覧の取得に失敗しました")
		c.data = nil
		c.err = err
		c.settled = StatusError
		return nil, err
	}

	c.data = memos
	c.err = nil
	if gen == c.gen {
		c.settled = StatusReady
	} else {
		c.settled = StatusStale
	}
	c.logger.WithFields(logrus.Fields{
		"count":  len(memos),
		"status": c.settled.String(),
	}).Debug("メモ一覧をキャッシュしました")
	return memos, nil
}

func (c *MemoCache) snapshotLocked() State {
	state := State{IsLoading: c.fetching}

	if c.data != nil {
		state.Data = make([]domain.Memo, len(c.data))
		copy(state.Data, c.data)
	}

	switch {
	case c.fetching && c.data == nil:
		state.Status = StatusLoading
	case c.fetching:
		state.Status = StatusStale
	default:
		state.Status = c.settled
	}

	if c.settled == StatusError && !c.fetching {
		state.Error = c.err
	}
	return state
}
