package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCandidate_AliasKeys(t *testing.T) {
	id := uuid.New()
	accountID := uuid.New()

	variants := []Record{
		{"_id": id.String(), "name": "Asha Rao", "userId": accountID.String()},
		{"id": id.String(), "fullName": "Asha Rao", "accountId": accountID.String()},
		{"candidateId": id.String(), "full_name": "Asha Rao", "account_id": accountID.String()},
	}
	for i, rec := range variants {
		c, err := Candidate(rec)
		require.NoError(t, err, "variant %d", i)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, "Asha Rao", c.FullName)
		assert.Equal(t, models.KindVerified, c.Kind)
		require.NotNil(t, c.AccountID)
		assert.Equal(t, accountID, *c.AccountID)
	}
}

func TestCandidate_DraftAndProfile(t *testing.T) {
	inviter := uuid.New()
	c, err := Candidate(Record{
		"id":        uuid.NewString(),
		"name":      "Ravi",
		"email":     "Ravi@Example.TEST",
		"invitedBy": inviter.String(),
		"profile": map[string]interface{}{
			"company":      "Initech",
			"title":        "Engineer",
			"skills":       "go, sql , ",
			"noticePeriod": "30 days",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindInvitedDraft, c.Kind)
	assert.Equal(t, "ravi@example.test", c.Email)
	require.NotNil(t, c.InvitedBy)
	assert.Equal(t, inviter, *c.InvitedBy)
	assert.Equal(t, "Initech", c.Profile.CurrentCompany)
	assert.Equal(t, "Engineer", c.Profile.Designation)
	assert.Equal(t, []string{"go", "sql"}, c.Profile.Skills)
	assert.Equal(t, "30 days", c.Profile.NoticePeriod)
}

func TestCandidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"missing id", Record{"name": "x"}},
		{"bad id", Record{"id": "42", "name": "x"}},
		{"missing name", Record{"id": uuid.NewString()}},
		{"verified without account", Record{"id": uuid.NewString(), "name": "x", "kind": "verified"}},
		{"unknown kind", Record{"id": uuid.NewString(), "name": "x", "kind": "ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Candidate(tt.rec)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}
}

func TestActor_RoleStrings(t *testing.T) {
	id := uuid.NewString()
	for raw, want := range map[string]models.ActorRole{
		"admin":          models.RoleAdmin,
		"Employer":       models.RoleEmployer,
		"candidate_user": models.RoleCandidate,
		"CANDIDATE":      models.RoleCandidate,
	} {
		a, err := Actor(Record{"role": raw, "_id": id, "displayName": "Someone"})
		require.NoError(t, err, raw)
		assert.Equal(t, want, a.Role, raw)
		assert.Equal(t, "Someone", a.DisplayName)
	}

	_, err := Actor(Record{"role": "recruiter", "id": id})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestAccount(t *testing.T) {
	a, err := Account(Record{
		"id": uuid.NewString(), "type": "employer", "name": "Eve",
		"email": "EVE@ACME.TEST", "company": "Acme", "status": "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, a.Status)
	assert.Equal(t, "eve@acme.test", a.Email)
	assert.Equal(t, "Acme", a.CompanyName)

	c, err := Account(Record{"id": uuid.NewString(), "role": "candidate", "name": "Cand", "email": "c@x.test", "company": "Ignored"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Empty(t, c.CompanyName)

	_, err = Account(Record{"id": uuid.NewString(), "role": "admin", "name": "Root", "email": "r@x.test"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	_, err = Account(Record{"id": uuid.NewString(), "role": "employer", "name": "Eve", "email": "e@x.test", "status": "frozen"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestEntry_Shapes(t *testing.T) {
	candidateID := uuid.New()
	employer := uuid.New()

	nested, err := Entry(candidateID, Record{
		"_id":            uuid.NewString(),
		"sequenceNumber": 4,
		"author":         map[string]interface{}{"role": "employer", "id": employer.String(), "name": "Eve", "company": "Acme"},
		"note":           "Resigned",
		"update":         map[string]interface{}{"company": "Globex", "skills": []interface{}{"go"}},
		"createdAt":      "2024-03-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), nested.Sequence)
	assert.Equal(t, models.RoleEmployer, nested.AuthorRole)
	assert.Equal(t, "Acme", nested.CompanyName)
	assert.Equal(t, models.KindSubstantiveUpdate, nested.Kind)
	require.NotNil(t, nested.Update)
	assert.Equal(t, "Globex", *nested.Update.Company)
	assert.Equal(t, 2024, nested.CreatedAt.Year())

	flat, err := Entry(candidateID, Record{
		"id": uuid.NewString(), "seq": "2", "kind": "status_transition",
		"authorRole": "ADMIN", "authorId": uuid.NewString(), "notes": "Approved",
		"update": map[string]interface{}{"company": "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindStatusTransition, flat.Kind)
	assert.Nil(t, flat.Update, "blank structured updates are dropped")
	assert.Empty(t, flat.CompanyName)

	_, err = Entry(candidateID, Record{"id": uuid.NewString(), "notes": "who?"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	_, err = Entry(candidateID, Record{"id": uuid.NewString(), "authorRole": "ADMIN", "authorId": uuid.NewString(), "createdAt": "yesterday"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestRecords_AcceptsDecodedShapes(t *testing.T) {
	entryID := uuid.NewString()
	author := uuid.NewString()
	r := Record{"timeline": []interface{}{
		Record{"id": entryID, "authorRole": "EMPLOYER", "authorId": author, "notes": "did not join"},
		map[string]interface{}{"id": uuid.NewString(), "authorRole": "ADMIN", "authorId": author},
		"not a record",
	}}

	items := r.records([]string{"timeline"})
	require.Len(t, items, 2)
	assert.Equal(t, entryID, items[0].str(idKeys))
}

func TestDecodeFixture_NestedTimeline(t *testing.T) {
	fx, err := DecodeFixture(strings.NewReader(`
candidates:
  - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0aaa
    name: Ravi
    invitedBy: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0001
    timeline:
      - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0bbb
        authorRole: EMPLOYER
        authorId: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0001
        notes: did not join
`))
	require.NoError(t, err)
	require.Len(t, fx.Candidates, 1)
	require.Len(t, fx.Candidates[0].Entries, 1)
	assert.Equal(t, "did not join", fx.Candidates[0].Entries[0].Notes)
}

const fixtureYAML = `
accounts:
  - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0001
    role: employer
    name: Eve
    email: eve@acme.test
    company: Acme
    status: APPROVED
  - _id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0002
    userType: candidate_user
    displayName: Asha Rao
    email: asha@example.test
    status: approved
candidates:
  - candidateId: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0010
    fullName: Asha Rao
    userId: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0002
    invitedBy: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0001
    timeline:
      - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0102
        sequence: 7
        authorRole: ADMIN
        authorId: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0099
        notes: Approved.
        createdAt: 2024-02-01T09:00:00Z
      - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0101
        sequence: 3
        author:
          role: employer
          id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0001
          name: Eve
        companyName: Acme
        notes: Absconded after offer
        comments:
          - id: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0201
            createdBy: 6f1c1f5e-0d7e-4f43-9d39-3a1f7c1c0002
            text: I informed HR in writing
`

func TestDecodeFixtureAndSeed(t *testing.T) {
	fx, err := DecodeFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, fx.Accounts, 2)
	require.Len(t, fx.Candidates, 1)
	sc := fx.Candidates[0]
	assert.Equal(t, models.KindVerified, sc.Candidate.Kind)
	require.Len(t, sc.Entries, 2)
	assert.Equal(t, "Absconded after offer", sc.Entries[0].Notes, "sorted by ingested sequence")

	repo := store.NewMemory()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	require.NoError(t, Seed(ctx, repo, fx, logger))

	entries, err := repo.ListEntries(ctx, sc.Candidate.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Sequence)
	assert.Equal(t, int64(2), entries[1].Sequence)
	assert.Equal(t, "Acme", entries[0].CompanyName)
	require.Len(t, entries[0].Comments, 1)
	assert.Equal(t, "I informed HR in writing", entries[0].Comments[0].Text)

	account, err := repo.GetAccount(ctx, fx.Accounts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCandidate, account.Role)

	// seeding again skips existing records
	require.NoError(t, Seed(ctx, repo, fx, logger))
	entries, err = repo.ListEntries(ctx, sc.Candidate.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	fx, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, fx.Accounts, 2)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = DecodeFixture(strings.NewReader("accounts:\n  - id: nope\n    role: employer\n"))
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	empty, err := DecodeFixture(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Candidates)
}
