// Package store is the in-memory registry store. Writes to one candidate's
// timeline are serialised by a per-candidate mutex while other candidates
// proceed concurrently; reads load an immutable snapshot without locking.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
)

// candidateLog holds one candidate and its timeline. Published snapshots are
// never mutated; writers copy, change and swap under mu.
type candidateLog struct {
	mu        sync.Mutex
	candidate atomic.Pointer[models.Candidate]
	entries   atomic.Pointer[[]*models.TimelineEntry]
}

func (l *candidateLog) snapshot() []*models.TimelineEntry {
	if p := l.entries.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *candidateLog) publish(entries []*models.TimelineEntry) {
	l.entries.Store(&entries)
}

// Memory implements the registry repository in process memory.
type Memory struct {
	candidates sync.Map // uuid.UUID -> *candidateLog

	accountsMu sync.RWMutex
	accounts   map[uuid.UUID]*models.Account
	emails     map[string]uuid.UUID

	now func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[uuid.UUID]*models.Account),
		emails:   make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

// CreateAccount stores a new account. Emails are unique, case-insensitively.
func (m *Memory) CreateAccount(_ context.Context, account *models.Account) error {
	m.accountsMu.Lock()
	defer m.accountsMu.Unlock()

	key := strings.ToLower(account.Email)
	if _, ok := m.emails[key]; ok {
		return fmt.Errorf("%w: email %s already registered", e.ErrDuplicate, account.Email)
	}
	if _, ok := m.accounts[account.ID]; ok {
		return fmt.Errorf("%w: account %s", e.ErrDuplicate, account.ID)
	}
	cp := *account
	m.accounts[account.ID] = &cp
	m.emails[key] = account.ID
	return nil
}

// GetAccount returns a copy of the account.
func (m *Memory) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.accountsMu.RLock()
	defer m.accountsMu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, e.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateAccountStatus moves the account from one status to another. It fails
// with ErrConflict when the stored status is no longer from.
func (m *Memory) UpdateAccountStatus(_ context.Context, id uuid.UUID, from, to models.AccountStatus) (*models.Account, error) {
	m.accountsMu.Lock()
	defer m.accountsMu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, e.ErrAccountNotFound
	}
	if a.Status != from {
		return nil, fmt.Errorf("%w: account %s is %s, expected %s", e.ErrConflict, id, a.Status, from)
	}
	a.Status = to
	a.UpdatedAt = m.now()
	cp := *a
	return &cp, nil
}

// CreateCandidate stores a new candidate with an empty timeline.
func (m *Memory) CreateCandidate(_ context.Context, candidate *models.Candidate) error {
	l := &candidateLog{}
	c := candidate.Clone()
	c.LastSequence = 0
	l.candidate.Store(c)
	l.publish(nil)
	if _, loaded := m.candidates.LoadOrStore(candidate.ID, l); loaded {
		return fmt.Errorf("%w: candidate %s", e.ErrDuplicate, candidate.ID)
	}
	return nil
}

func (m *Memory) log(id uuid.UUID) (*candidateLog, error) {
	v, ok := m.candidates.Load(id)
	if !ok {
		return nil, e.ErrCandidateNotFound
	}
	return v.(*candidateLog), nil
}

// GetCandidate returns a copy of the candidate.
func (m *Memory) GetCandidate(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	l, err := m.log(id)
	if err != nil {
		return nil, err
	}
	return l.candidate.Load().Clone(), nil
}

// VerifyCandidate promotes an invited draft and links the candidate-user account.
func (m *Memory) VerifyCandidate(_ context.Context, id, accountID uuid.UUID) (*models.Candidate, error) {
	l, err := m.log(id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.candidate.Load().Clone()
	if !c.IsDraft() {
		return nil, fmt.Errorf("%w: candidate %s is already verified", e.ErrInvalidInput, id)
	}
	c.Kind = models.KindVerified
	c.AccountID = &accountID
	c.UpdatedAt = m.now()
	l.candidate.Store(c)
	return c.Clone(), nil
}

// AppendEntry assigns the next sequence number and appends entry.
func (m *Memory) AppendEntry(_ context.Context, entry *models.TimelineEntry) (*models.TimelineEntry, error) {
	l, err := m.log(entry.CandidateID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.candidate.Load().Clone()
	c.LastSequence++
	stored := entry.Clone()
	stored.Sequence = c.LastSequence

	current := l.snapshot()
	next := make([]*models.TimelineEntry, len(current), len(current)+1)
	copy(next, current)
	next = append(next, stored)

	l.candidate.Store(c)
	l.publish(next)
	return stored.Clone(), nil
}

// locate finds the entry inside a locked log.
func locate(entries []*models.TimelineEntry, entryID uuid.UUID) int {
	for i, en := range entries {
		if en.ID == entryID {
			return i
		}
	}
	return -1
}

// mutate runs fn on a copy of the entry under the candidate lock and publishes
// the result. fn returning an error leaves the timeline untouched.
func (m *Memory) mutate(candidateID, entryID uuid.UUID, fn func(*models.TimelineEntry) error) (*models.TimelineEntry, error) {
	l, err := m.log(candidateID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.snapshot()
	i := locate(current, entryID)
	if i < 0 {
		return nil, e.ErrEntryNotFound
	}
	updated := current[i].Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.Version++
	updated.UpdatedAt = m.now()

	next := make([]*models.TimelineEntry, len(current))
	copy(next, current)
	next[i] = updated
	l.publish(next)
	return updated.Clone(), nil
}

// GetEntry returns one entry of the candidate's timeline.
func (m *Memory) GetEntry(_ context.Context, candidateID, entryID uuid.UUID) (*models.TimelineEntry, error) {
	l, err := m.log(candidateID)
	if err != nil {
		return nil, err
	}
	entries := l.snapshot()
	if i := locate(entries, entryID); i >= 0 {
		return entries[i].Clone(), nil
	}
	return nil, e.ErrEntryNotFound
}

// UpdateEntryNotes replaces the notes of an entry once guard accepts it.
func (m *Memory) UpdateEntryNotes(_ context.Context, candidateID, entryID uuid.UUID, notes string, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error) {
	return m.mutate(candidateID, entryID, func(en *models.TimelineEntry) error {
		if err := guard(en); err != nil {
			return err
		}
		en.Notes = notes
		return nil
	})
}

// DeleteEntry removes an entry and its comments once guard accepts it.
// The sequence number is not reused.
func (m *Memory) DeleteEntry(_ context.Context, candidateID, entryID uuid.UUID, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error) {
	l, err := m.log(candidateID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.snapshot()
	i := locate(current, entryID)
	if i < 0 {
		return nil, e.ErrEntryNotFound
	}
	removed := current[i].Clone()
	if err := guard(removed); err != nil {
		return nil, err
	}

	next := make([]*models.TimelineEntry, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)
	l.publish(next)
	return removed, nil
}

// ListEntries returns the timeline ordered by sequence number.
func (m *Memory) ListEntries(_ context.Context, candidateID uuid.UUID) ([]models.TimelineEntry, error) {
	l, err := m.log(candidateID)
	if err != nil {
		return nil, err
	}
	entries := l.snapshot()
	out := make([]models.TimelineEntry, len(entries))
	for i, en := range entries {
		out[i] = *en.Clone()
	}
	return out, nil
}

// AddComment appends comment to the entry once guard accepts the entry.
func (m *Memory) AddComment(_ context.Context, candidateID, entryID uuid.UUID, comment *models.Comment, guard func(*models.TimelineEntry) error) (*models.Comment, error) {
	var stored models.Comment
	_, err := m.mutate(candidateID, entryID, func(en *models.TimelineEntry) error {
		if err := guard(en); err != nil {
			return err
		}
		stored = *comment
		stored.EntryID = en.ID
		en.Comments = append(en.Comments, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// DeleteComment removes a comment once guard accepts it.
func (m *Memory) DeleteComment(_ context.Context, candidateID, entryID, commentID uuid.UUID, guard func(*models.TimelineEntry, *models.Comment) error) error {
	_, err := m.mutate(candidateID, entryID, func(en *models.TimelineEntry) error {
		i := en.FindComment(commentID)
		if i < 0 {
			return e.ErrCommentNotFound
		}
		if err := guard(en, &en.Comments[i]); err != nil {
			return err
		}
		en.Comments = append(en.Comments[:i], en.Comments[i+1:]...)
		return nil
	})
	return err
}

// Ping always succeeds; the store has no connection to check.
func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
