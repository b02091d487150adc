// Package feed keeps the client-side copy of one user's inbox in step with
// the record store.
//
// Mutations are optimistic: local state changes first, the remote call runs
// without the lock, and a failure restores exactly what was changed. Every
// mutation is discarded if Reset ran while it was in flight.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

const DefaultPageSize = 20

var ErrNoOwner = errors.New("feed: no user bound")

type Synchronizer struct {
	repo     notification.Repo
	clk      notification.Clock
	log      *zap.Logger
	pageSize int
	emitter  *Emitter

	mu      sync.Mutex
	epoch   uint64
	owner   string
	items   []notification.Notification
	unread  int
	page    int
	hasMore bool
	// ids prepended by Add since the newest refresh started
	pushed map[string]struct{}
	// mutations whose remote call has not returned, and a counter bumped
	// whenever one starts or ends
	inflight int
	mutSeq   uint64
}

func NewSynchronizer(repo notification.Repo, clk notification.Clock, pageSize int, log *zap.Logger) *Synchronizer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if clk == nil {
		clk = notification.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		repo:     repo,
		clk:      clk,
		log:      log.With(zap.String("component", "inbox.feed")),
		pageSize: pageSize,
		emitter:  NewEmitter(),
		hasMore:  true,
		pushed:   map[string]struct{}{},
	}
}

// Bind clears local state and attaches it to owner.
func (s *Synchronizer) Bind(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.owner = owner
}

// Reset clears local state, including the bound owner. Results of calls in
// flight are dropped.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Synchronizer) resetLocked() {
	s.epoch++
	s.owner = ""
	s.items = nil
	s.unread = 0
	s.page = 0
	s.hasMore = true
	s.pushed = map[string]struct{}{}
	s.inflight = 0
}

func (s *Synchronizer) Emitter() *Emitter { return s.emitter }

func (s *Synchronizer) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Synchronizer) Notifications() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Notification, len(s.items))
	for i, n := range s.items {
		out[i] = n.Clone()
	}
	return out
}

func (s *Synchronizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Synchronizer) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// LoadNotifications fetches the first page (refresh) or the next one.
// Without refresh and with nothing more to load it returns without a call.
func (s *Synchronizer) LoadNotifications(ctx context.Context, refresh bool) error {
	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return ErrNoOwner
	}
	if !refresh && !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	page := s.page
	if refresh {
		page = 0
		s.pushed = map[string]struct{}{}
	}
	owner, epoch := s.owner, s.epoch
	s.mu.Unlock()

	batch, err := s.repo.ListByRecipient(ctx, owner, page*s.pageSize, s.pageSize)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return nil
	}
	if refresh {
		merged := make([]notification.Notification, 0, len(s.pushed)+len(batch))
		for _, n := range s.items {
			if _, ok := s.pushed[n.ID]; ok {
				merged = append(merged, n)
			}
		}
		s.items = dedupe(append(merged, batch...))
		s.page = 1
	} else {
		s.items = dedupe(append(s.items, batch...))
		s.page = page + 1
	}
	s.hasMore = len(batch) == s.pageSize
	return nil
}

// PollHead fetches the first page and prepends every notification not yet
// listed. Loaded pages and the paging cursor stay as they are. Observers are
// notified once per new notification, which is returned in feed order.
// The unread counter is left to LoadUnreadCount.
func (s *Synchronizer) PollHead(ctx context.Context) ([]notification.Notification, error) {
	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return nil, ErrNoOwner
	}
	owner, epoch := s.owner, s.epoch
	s.mu.Unlock()

	batch, err := s.repo.ListByRecipient(ctx, owner, 0, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("poll notifications: %w", err)
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, nil
	}
	var fresh []notification.Notification
	for _, n := range dedupe(batch) {
		if n.RecipientID == owner && s.indexLocked(n.ID) < 0 {
			fresh = append(fresh, n.Clone())
		}
	}
	if len(fresh) > 0 {
		head := make([]notification.Notification, 0, len(fresh)+len(s.items))
		head = append(head, fresh...)
		s.items = append(head, s.items...)
	}
	s.mu.Unlock()

	for _, n := range fresh {
		s.emitter.Emit(n.Clone())
	}
	return fresh, nil
}

// LoadUnreadCount replaces the local counter with the store's. A count that
// raced a local mutation is dropped: the store may or may not include that
// mutation yet, while the local counter already does.
func (s *Synchronizer) LoadUnreadCount(ctx context.Context) error {
	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return ErrNoOwner
	}
	owner, epoch, seq := s.owner, s.epoch, s.mutSeq
	busy := s.inflight > 0
	s.mu.Unlock()

	c, err := s.repo.CountUnread(ctx, owner)
	if err != nil {
		return fmt.Errorf("load unread count: %w", err)
	}

	s.mu.Lock()
	switch {
	case epoch != s.epoch:
	case busy || s.inflight > 0 || seq != s.mutSeq:
		s.log.Debug("unread count raced a local mutation, keeping local value",
			zap.Int("remote", c), zap.Int("local", s.unread))
	default:
		s.unread = c
	}
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) beginMutationLocked() {
	s.inflight++
	s.mutSeq++
}

func (s *Synchronizer) endMutation(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.inflight--
	s.mutSeq++
}

func (s *Synchronizer) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	i, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.items[i].IsRead {
		s.mu.Unlock()
		return nil
	}
	prevRead, prevAt := s.items[i].IsRead, s.items[i].ReadAt
	now := s.clk.Now()
	s.items[i].IsRead, s.items[i].ReadAt = true, &now
	delta := 0
	if s.unread > 0 {
		s.unread--
		delta = 1
	}
	owner, epoch := s.owner, s.epoch
	s.beginMutationLocked()
	defer s.endMutation(epoch)
	s.mu.Unlock()

	if err := s.repo.MarkRead(ctx, owner, id, now); err != nil {
		s.mu.Lock()
		if epoch == s.epoch {
			if j := s.indexLocked(id); j >= 0 {
				s.items[j].IsRead, s.items[j].ReadAt = prevRead, prevAt
			}
			s.unread += delta
		}
		s.mu.Unlock()
		s.log.Warn("mark read rolled back", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

type readState struct {
	isRead bool
	readAt *time.Time
}

func (s *Synchronizer) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return ErrNoOwner
	}
	prev := make(map[string]readState, len(s.items))
	now := s.clk.Now()
	for i := range s.items {
		prev[s.items[i].ID] = readState{s.items[i].IsRead, s.items[i].ReadAt}
		if !s.items[i].IsRead {
			at := now
			s.items[i].IsRead, s.items[i].ReadAt = true, &at
		}
	}
	delta := s.unread
	s.unread = 0
	owner, epoch := s.owner, s.epoch
	s.beginMutationLocked()
	defer s.endMutation(epoch)
	s.mu.Unlock()

	if err := s.repo.MarkAllRead(ctx, owner, now); err != nil {
		s.mu.Lock()
		if epoch == s.epoch {
			for i := range s.items {
				if st, ok := prev[s.items[i].ID]; ok {
					s.items[i].IsRead, s.items[i].ReadAt = st.isRead, st.readAt
				}
			}
			s.unread += delta
		}
		s.mu.Unlock()
		s.log.Warn("mark all read rolled back", zap.Error(err))
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (s *Synchronizer) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	i, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	removed := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	delta := 0
	if !removed.IsRead && s.unread > 0 {
		s.unread--
		delta = 1
	}
	owner, epoch := s.owner, s.epoch
	s.beginMutationLocked()
	defer s.endMutation(epoch)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, owner, id); err != nil {
		s.mu.Lock()
		if epoch == s.epoch {
			if s.indexLocked(id) < 0 {
				s.items = append([]notification.Notification{removed}, s.items...)
			}
			s.unread += delta
		}
		s.mu.Unlock()
		s.log.Warn("delete rolled back", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *Synchronizer) DeleteAllNotifications(ctx context.Context) error {
	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return ErrNoOwner
	}
	snapshot := s.items
	delta := s.unread
	s.items = nil
	s.unread = 0
	owner, epoch := s.owner, s.epoch
	s.beginMutationLocked()
	defer s.endMutation(epoch)
	s.mu.Unlock()

	if err := s.repo.DeleteAll(ctx, owner); err != nil {
		s.mu.Lock()
		if epoch == s.epoch {
			// Anything pushed while the call ran stays on top.
			s.items = dedupe(append(s.items, snapshot...))
			s.unread += delta
		}
		s.mu.Unlock()
		s.log.Warn("delete all rolled back", zap.Error(err))
		return fmt.Errorf("delete all notifications: %w", err)
	}
	return nil
}

// Add prepends a push-delivered notification and notifies observers. It
// reports false when n is foreign or already listed.
func (s *Synchronizer) Add(n notification.Notification) bool {
	s.mu.Lock()
	if s.owner == "" || n.RecipientID != s.owner || s.indexLocked(n.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	n = n.Clone()
	s.items = append([]notification.Notification{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
	s.pushed[n.ID] = struct{}{}
	s.mu.Unlock()

	s.emitter.Emit(n)
	return true
}

func (s *Synchronizer) lookupLocked(id string) (int, error) {
	if s.owner == "" {
		return -1, ErrNoOwner
	}
	i := s.indexLocked(id)
	if i < 0 {
		return -1, notification.ErrNotFound
	}
	if s.items[i].RecipientID != s.owner {
		return -1, notification.ErrForbidden
	}
	return i, nil
}

func (s *Synchronizer) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every id.
func dedupe(in []notification.Notification) []notification.Notification {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, n := range in {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}
