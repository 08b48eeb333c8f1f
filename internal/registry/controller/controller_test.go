package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gartstein/redflag/internal/pkg/utils"
	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu     sync.Mutex
	events []events.Event
}

// Produce records the event.
func (m *MockProducer) Produce(ev events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *MockProducer) types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

func (m *MockProducer) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *MockProducer) has(t events.EventType) bool {
	for _, got := range m.types() {
		if got == t {
			return true
		}
	}
	return false
}

// fixture is a service over the in-memory store with an admin and helpers to
// create approved accounts.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	svc      *RegistryService
	producer *MockProducer
	admin    models.Actor
}

func newFixture(t *testing.T) *fixture {
	producer := &MockProducer{}
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		svc:      NewRegistryService(store.NewMemory(), producer, zaptest.NewLogger(t)),
		producer: producer,
		admin:    models.AdminActor(uuid.New(), "Registry Admin"),
	}
}

func (f *fixture) account(role models.ActorRole, name string) *models.Account {
	f.t.Helper()
	account, err := f.svc.RegisterAccount(f.ctx, AccountInput{
		Role:        role,
		DisplayName: name,
		Email:       uuid.NewString() + "@example.test",
		CompanyName: name + " Ltd",
	})
	require.NoError(f.t, err)
	return account
}

func (f *fixture) approvedEmployer(name string) models.Actor {
	f.t.Helper()
	account := f.account(models.RoleEmployer, name)
	_, err := f.svc.Approve(f.ctx, f.admin, account.ID)
	require.NoError(f.t, err)
	return models.EmployerActor(account.ID)
}

func (f *fixture) invite(employer models.Actor, name string) *models.Candidate {
	f.t.Helper()
	c, err := f.svc.InviteCandidate(f.ctx, employer, CandidateInput{FullName: name})
	require.NoError(f.t, err)
	return c
}

// verifiedCandidate invites a draft through employer and links it to a new
// approved candidate-user account.
func (f *fixture) verifiedCandidate(employer models.Actor) (*models.Candidate, models.Actor) {
	f.t.Helper()
	c := f.invite(employer, "Cand One")
	account := f.account(models.RoleCandidate, "Cand One")
	_, err := f.svc.Approve(f.ctx, f.admin, account.ID)
	require.NoError(f.t, err)
	c, err = f.svc.VerifyCandidate(f.ctx, f.admin, c.ID, account.ID)
	require.NoError(f.t, err)
	return c, models.CandidateActor(account.ID)
}

func notes(text string) models.EntryInput {
	return models.EntryInput{Notes: text}
}

func TestScenario_EmployerLifecycle(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	e2 := f.approvedEmployer("Globex")
	cand1, candidate := f.verifiedCandidate(e1)

	entry, err := f.svc.AppendEntry(f.ctx, e1, cand1.ID, notes("did not join after offer"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, "Acme Ltd", entry.CompanyName)
	assert.Equal(t, "Acme", entry.AuthorDisplayName)

	_, err = f.svc.AddComment(f.ctx, candidate, cand1.ID, entry.ID, "family emergency")
	require.NoError(t, err)

	_, err = f.svc.AppendEntry(f.ctx, e2, cand1.ID, notes("also did not join"))
	assert.ErrorIs(t, err, e.ErrNotAuthorized)

	edited, err := f.svc.EditEntryNotes(f.ctx, e1, cand1.ID, entry.ID, "did not join; no notice given")
	require.NoError(t, err)
	assert.Equal(t, entry.Sequence, edited.Sequence)
	assert.Equal(t, entry.CreatedAt, edited.CreatedAt)
	assert.Len(t, edited.Comments, 1)

	_, err = f.svc.Suspend(f.ctx, f.admin, e1.ID)
	require.NoError(t, err)

	_, err = f.svc.EditEntryNotes(f.ctx, e1, cand1.ID, entry.ID, "again")
	assert.ErrorIs(t, err, e.ErrNotAuthorized)

	assert.True(t, f.producer.has(events.EntryEdited))
	assert.True(t, f.producer.has(events.CommentAdded))
}

func TestScenario_AdminAcknowledgmentHidden(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, _ := f.verifiedCandidate(e1)

	_, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)
	_, err = f.svc.AppendEntry(f.ctx, f.admin, c.ID, notes("Approved"))
	require.NoError(t, err)

	employerView, err := f.svc.ListTimeline(f.ctx, e1, c.ID)
	require.NoError(t, err)
	require.Len(t, employerView, 1)
	assert.Equal(t, "did not join", employerView[0].Notes)

	adminView, err := f.svc.ListTimeline(f.ctx, f.admin, c.ID)
	require.NoError(t, err)
	require.Len(t, adminView, 2)
	assert.Equal(t, "Approved", adminView[1].Notes)
}

func TestGetEntry_AppliesVisibility(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, _ := f.verifiedCandidate(e1)

	flag, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)
	ack, err := f.svc.AppendEntry(f.ctx, f.admin, c.ID, notes("Approved"))
	require.NoError(t, err)

	got, err := f.svc.GetEntry(f.ctx, e1, c.ID, flag.ID)
	require.NoError(t, err)
	assert.Equal(t, "did not join", got.Notes)

	_, err = f.svc.GetEntry(f.ctx, e1, c.ID, ack.ID)
	assert.ErrorIs(t, err, e.ErrEntryNotFound)

	got, err = f.svc.GetEntry(f.ctx, f.admin, c.ID, ack.ID)
	require.NoError(t, err)
	assert.Equal(t, "Approved", got.Notes)

	_, err = f.svc.GetEntry(f.ctx, f.admin, c.ID, uuid.New())
	assert.ErrorIs(t, err, e.ErrEntryNotFound)

	_, stranger := f.verifiedCandidate(e1)
	_, err = f.svc.GetEntry(f.ctx, stranger, c.ID, flag.ID)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
}

func TestAppendEntry_AcknowledgmentWithUpdateIsVisible(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, _ := f.verifiedCandidate(e1)

	_, err := f.svc.AppendEntry(f.ctx, f.admin, c.ID, models.EntryInput{
		Notes:  "Approved",
		Update: &models.StructuredUpdate{Designation: utils.Ptr("Lead")},
	})
	require.NoError(t, err)
	_, err = f.svc.AppendEntry(f.ctx, f.admin, c.ID, models.EntryInput{
		Kind:  models.KindStatusTransition,
		Notes: "Account suspended for review",
	})
	require.NoError(t, err)

	view, err := f.svc.ListTimeline(f.ctx, e1, c.ID)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "Lead", *view[0].Update.Designation)
}

func TestAccountLifecycleProperties(t *testing.T) {
	f := newFixture(t)
	account := f.account(models.RoleEmployer, "Acme")

	_, err := f.svc.Approve(f.ctx, f.admin, account.ID)
	require.NoError(t, err)
	_, err = f.svc.Suspend(f.ctx, f.admin, account.ID)
	require.NoError(t, err)
	got, err := f.svc.Unsuspend(f.ctx, f.admin, account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	_, err = f.svc.Approve(f.ctx, f.admin, account.ID)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	other := f.account(models.RoleEmployer, "Initech")
	_, err = f.svc.Approve(f.ctx, models.EmployerActor(account.ID), other.ID)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)

	_, err = f.svc.Reject(f.ctx, f.admin, other.ID)
	require.NoError(t, err)
	_, err = f.svc.SetAccountStatus(f.ctx, f.admin, other.ID, models.StatusApproved)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	_, err = f.svc.Approve(f.ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, e.ErrAccountNotFound)

	assert.True(t, f.producer.has(events.AccountStatusChanged))
}

func TestEventsFollowWriteOrder(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c := f.invite(e1, "Ravi")
	f.producer.reset()

	entry, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)
	_, err = f.svc.EditEntryNotes(f.ctx, e1, c.ID, entry.ID, "did not join, no notice")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteEntry(f.ctx, e1, c.ID, entry.ID))

	assert.Equal(t, []events.EventType{events.EntryAppended, events.EntryEdited, events.EntryDeleted}, f.producer.types())
}

func TestSetAccountStatus(t *testing.T) {
	f := newFixture(t)
	account := f.account(models.RoleEmployer, "Acme")

	steps := []struct {
		target models.AccountStatus
		want   error
	}{
		{models.StatusSuspended, e.ErrInvalidTransition},
		{models.StatusApproved, nil},
		{models.StatusRejected, e.ErrInvalidTransition},
		{models.StatusSuspended, nil},
		{models.StatusApproved, nil},
		{models.StatusPending, e.ErrInvalidTransition},
	}
	for _, step := range steps {
		got, err := f.svc.SetAccountStatus(f.ctx, f.admin, account.ID, step.target)
		if step.want != nil {
			assert.ErrorIs(t, err, step.want, "target %s", step.target)
			continue
		}
		require.NoError(t, err, "target %s", step.target)
		assert.Equal(t, step.target, got.Status)
	}
}

func TestSetCandidateStatus(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, candidate := f.verifiedCandidate(e1)

	got, err := f.svc.SetCandidateStatus(f.ctx, f.admin, c.ID, models.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, candidate.ID, got.ID)
	assert.Equal(t, models.StatusSuspended, got.Status)

	draft := f.invite(e1, "Draft Person")
	_, err = f.svc.SetCandidateStatus(f.ctx, f.admin, draft.ID, models.StatusSuspended)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = f.svc.SetCandidateStatus(f.ctx, e1, c.ID, models.StatusApproved)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
}

func TestAppendEntry_Permissions(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	e2 := f.approvedEmployer("Globex")
	draft := f.invite(e1, "Draft Person")
	verified, candidate := f.verifiedCandidate(e1)

	pending := models.EmployerActor(f.account(models.RoleEmployer, "Pending Co").ID)

	tests := []struct {
		name      string
		actor     models.Actor
		candidate uuid.UUID
		want      error
	}{
		{"inviter on draft", e1, draft.ID, nil},
		{"other employer on draft", e2, draft.ID, e.ErrNotAuthorized},
		{"inviter on verified", e1, verified.ID, nil},
		{"approved employer that never invited", e2, verified.ID, e.ErrNotAuthorized},
		{"admin on any candidate", f.admin, draft.ID, nil},
		{"pending employer", pending, draft.ID, e.ErrNotAuthorized},
		{"candidate cannot author entries", candidate, verified.ID, e.ErrNotAuthorized},
		{"unknown employer", models.EmployerActor(uuid.New()), draft.ID, e.ErrNotAuthorized},
		{"unknown candidate", e1, uuid.New(), e.ErrCandidateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AppendEntry(f.ctx, tt.actor, tt.candidate, notes("did not join"))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAppendEntry_Validation(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c := f.invite(e1, "Draft Person")

	_, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("   "))
	assert.ErrorIs(t, err, e.ErrEmptyText)

	_, err = f.svc.AppendEntry(f.ctx, e1, c.ID, models.EntryInput{Update: &models.StructuredUpdate{Company: utils.Ptr(" ")}})
	assert.ErrorIs(t, err, e.ErrEmptyText)

	_, err = f.svc.AppendEntry(f.ctx, e1, c.ID, models.EntryInput{Kind: models.KindStatusTransition, Notes: "approved"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = f.svc.AppendEntry(f.ctx, e1, c.ID, models.EntryInput{Kind: "GOSSIP", Notes: "x"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	en, err := f.svc.AppendEntry(f.ctx, e1, c.ID, models.EntryInput{Update: &models.StructuredUpdate{Location: utils.Ptr("Berlin")}})
	require.NoError(t, err)
	assert.Equal(t, models.KindSubstantiveUpdate, en.Kind)
}

func TestSuspendedEmployerCannotWrite(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, _ := f.verifiedCandidate(e1)
	en, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)

	_, err = f.svc.Suspend(f.ctx, f.admin, e1.ID)
	require.NoError(t, err)

	_, err = f.svc.AppendEntry(f.ctx, e1, c.ID, notes("again"))
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	_, err = f.svc.EditEntryNotes(f.ctx, e1, c.ID, en.ID, "changed")
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	assert.ErrorIs(t, f.svc.DeleteEntry(f.ctx, e1, c.ID, en.ID), e.ErrNotAuthorized)
	_, err = f.svc.InviteCandidate(f.ctx, e1, CandidateInput{FullName: "New Person"})
	assert.ErrorIs(t, err, e.ErrNotAuthorized)

	ok, err := f.svc.CanUpdate(f.ctx, e1, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditAndDelete_AuthorOnly(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c := f.invite(e1, "Draft Person")
	byEmployer, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)
	byAdmin, err := f.svc.AppendEntry(f.ctx, f.admin, c.ID, notes("called the candidate"))
	require.NoError(t, err)

	_, err = f.svc.EditEntryNotes(f.ctx, f.admin, c.ID, byEmployer.ID, "rewritten")
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	assert.ErrorIs(t, f.svc.DeleteEntry(f.ctx, e1, c.ID, byAdmin.ID), e.ErrNotAuthorized)

	otherAdmin := models.AdminActor(uuid.New(), "Other Admin")
	assert.ErrorIs(t, f.svc.DeleteEntry(f.ctx, otherAdmin, c.ID, byAdmin.ID), e.ErrNotAuthorized)

	_, err = f.svc.EditEntryNotes(f.ctx, e1, c.ID, byEmployer.ID, "  ")
	assert.ErrorIs(t, err, e.ErrEmptyText)

	require.NoError(t, f.svc.DeleteEntry(f.ctx, f.admin, c.ID, byAdmin.ID))
	assert.ErrorIs(t, f.svc.DeleteEntry(f.ctx, f.admin, c.ID, byAdmin.ID), e.ErrEntryNotFound)

	_, err = f.svc.EditEntryNotes(f.ctx, e1, uuid.New(), byEmployer.ID, "x")
	assert.ErrorIs(t, err, e.ErrCandidateNotFound)
}

func TestDeleteKeepsSequenceGaps(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c := f.invite(e1, "Draft Person")

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		en, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("entry"))
		require.NoError(t, err)
		ids = append(ids, en.ID)
	}
	require.NoError(t, f.svc.DeleteEntry(f.ctx, e1, c.ID, ids[1]))
	require.NoError(t, f.svc.DeleteEntry(f.ctx, e1, c.ID, ids[3]))
	en, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("latest"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), en.Sequence)

	view, err := f.svc.ListTimeline(f.ctx, e1, c.ID)
	require.NoError(t, err)
	var seqs []int64
	for _, en := range view {
		seqs = append(seqs, en.Sequence)
	}
	assert.Equal(t, []int64{1, 3, 5}, seqs)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c, candidate := f.verifiedCandidate(e1)
	_, otherCandidate := f.verifiedCandidate(e1)
	en, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("did not join"))
	require.NoError(t, err)

	_, err = f.svc.AddComment(f.ctx, candidate, c.ID, en.ID, " ")
	assert.ErrorIs(t, err, e.ErrEmptyText)
	_, err = f.svc.AddComment(f.ctx, otherCandidate, c.ID, en.ID, "not mine")
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	_, err = f.svc.AddComment(f.ctx, e1, c.ID, en.ID, "employer reply")
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	_, err = f.svc.AddComment(f.ctx, candidate, c.ID, uuid.New(), "missing")
	assert.ErrorIs(t, err, e.ErrEntryNotFound)

	comment, err := f.svc.AddComment(f.ctx, candidate, c.ID, en.ID, "family emergency")
	require.NoError(t, err)
	assert.Equal(t, candidate.ID, comment.CreatedBy)

	for _, actor := range []models.Actor{f.admin, e1, otherCandidate} {
		err := f.svc.DeleteComment(f.ctx, actor, c.ID, en.ID, comment.ID)
		assert.ErrorIs(t, err, e.ErrNotAuthorized, "actor %s", actor)
	}
	assert.ErrorIs(t, f.svc.DeleteComment(f.ctx, candidate, c.ID, en.ID, uuid.New()), e.ErrCommentNotFound)

	require.NoError(t, f.svc.DeleteComment(f.ctx, candidate, c.ID, en.ID, comment.ID))

	view, err := f.svc.ListTimeline(f.ctx, candidate, c.ID)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Empty(t, view[0].Comments)
}

func TestReadRules(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	e2 := f.approvedEmployer("Globex")
	draft := f.invite(e1, "Draft Person")
	verified, candidate := f.verifiedCandidate(e1)
	_, stranger := f.verifiedCandidate(e1)

	_, err := f.svc.ListTimeline(f.ctx, e2, draft.ID)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	_, err = f.svc.ListTimeline(f.ctx, e2, verified.ID)
	assert.NoError(t, err)
	_, err = f.svc.ListTimeline(f.ctx, candidate, verified.ID)
	assert.NoError(t, err)
	_, err = f.svc.ListTimeline(f.ctx, stranger, verified.ID)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)

	view, err := f.svc.GetCandidate(f.ctx, e1, verified.ID)
	require.NoError(t, err)
	assert.True(t, view.CanUpdate)
	view, err = f.svc.GetCandidate(f.ctx, e2, verified.ID)
	require.NoError(t, err)
	assert.False(t, view.CanUpdate)

	_, err = f.svc.GetCandidate(f.ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, e.ErrCandidateNotFound)
}

func TestRegisterAccount(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input AccountInput
		want  error
	}{
		{"employer", AccountInput{Role: models.RoleEmployer, DisplayName: "HR", Email: "hr@acme.test", CompanyName: "Acme"}, nil},
		{"candidate", AccountInput{Role: models.RoleCandidate, DisplayName: "Jane", Email: "jane@example.test"}, nil},
		{"duplicate email", AccountInput{Role: models.RoleCandidate, DisplayName: "Jane", Email: "JANE@example.test"}, e.ErrDuplicate},
		{"admin role", AccountInput{Role: models.RoleAdmin, DisplayName: "Root", Email: "root@example.test"}, e.ErrInvalidInput},
		{"bad email", AccountInput{Role: models.RoleCandidate, DisplayName: "Bob", Email: "bob"}, e.ErrInvalidInput},
		{"employer without company", AccountInput{Role: models.RoleEmployer, DisplayName: "HR", Email: "hr@initech.test"}, e.ErrInvalidInput},
		{"blank name", AccountInput{Role: models.RoleCandidate, DisplayName: " ", Email: "x@example.test"}, e.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := f.svc.RegisterAccount(f.ctx, tt.input)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusPending, account.Status)
		})
	}
}

func TestVerifyCandidate(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	draft := f.invite(e1, "Draft Person")
	pending := f.account(models.RoleCandidate, "Pending Person")

	_, err := f.svc.VerifyCandidate(f.ctx, e1, draft.ID, pending.ID)
	assert.ErrorIs(t, err, e.ErrNotAuthorized)
	_, err = f.svc.VerifyCandidate(f.ctx, f.admin, draft.ID, pending.ID)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	_, err = f.svc.VerifyCandidate(f.ctx, f.admin, draft.ID, e1.ID)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = f.svc.Approve(f.ctx, f.admin, pending.ID)
	require.NoError(t, err)
	verified, err := f.svc.VerifyCandidate(f.ctx, f.admin, draft.ID, pending.ID)
	require.NoError(t, err)
	assert.True(t, verified.InvitedByEmployer(e1.ID))
	assert.True(t, verified.OwnedBy(pending.ID))
}

func TestConcurrentAppendsAreContiguous(t *testing.T) {
	f := newFixture(t)
	e1 := f.approvedEmployer("Acme")
	c := f.invite(e1, "Draft Person")

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AppendEntry(f.ctx, e1, c.ID, notes("concurrent"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := f.svc.ListTimeline(f.ctx, f.admin, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, en := range entries {
		assert.Equal(t, int64(i+1), en.Sequence)
	}
}

// MockRepository overrides the lookups of an in-memory store.
type MockRepository struct {
	*store.Memory
	getCandidate func(context.Context, uuid.UUID) (*models.Candidate, error)
	getAccount   func(context.Context, uuid.UUID) (*models.Account, error)
}

func (m *MockRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	return m.getCandidate(ctx, id)
}

func (m *MockRepository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return m.getAccount(ctx, id)
}

func TestRepositoryErrorsAreWrapped(t *testing.T) {
	dbErr := errors.New("database error")
	repo := &MockRepository{
		Memory: store.NewMemory(),
		getCandidate: func(context.Context, uuid.UUID) (*models.Candidate, error) {
			return nil, dbErr
		},
		getAccount: func(context.Context, uuid.UUID) (*models.Account, error) {
			return nil, dbErr
		},
	}
	svc := NewRegistryService(repo, &MockProducer{}, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.AppendEntry(ctx, models.EmployerActor(uuid.New()), uuid.New(), notes("x"))
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, e.KindInternal, e.KindOf(err))
	assert.Contains(t, err.Error(), "failed to append_entry")

	_, err = svc.InviteCandidate(ctx, models.EmployerActor(uuid.New()), CandidateInput{FullName: "X"})
	assert.ErrorIs(t, err, dbErr)

	_, err = svc.Approve(ctx, models.AdminActor(uuid.New(), ""), uuid.New())
	assert.ErrorIs(t, err, dbErr)
}
