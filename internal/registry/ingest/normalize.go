// Package ingest turns upstream records, whose field names vary between
// producers, into the canonical registry models, and seeds a repository
// from YAML fixtures.
package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/redflag/internal/pkg/utils"
	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
)

// Record is one loosely shaped upstream object, as decoded from JSON or YAML.
type Record map[string]interface{}

// Accepted spellings per canonical field, most specific first.
var (
	idKeys          = []string{"id", "_id"}
	candidateIDKeys = []string{"candidateId", "candidate_id", "id", "_id"}
	nameKeys        = []string{"fullName", "full_name", "name", "displayName", "display_name"}
	emailKeys       = []string{"email", "emailAddress", "email_address"}
	phoneKeys       = []string{"phone", "phoneNumber", "phone_number", "mobile"}
	roleKeys        = []string{"role", "userType", "user_type", "type"}
	companyKeys     = []string{"companyName", "company_name", "company"}
	statusKeys      = []string{"status", "accountStatus", "account_status"}
	accountIDKeys   = []string{"accountId", "account_id", "userId", "user_id"}
	invitedByKeys   = []string{"invitedBy", "invited_by", "employerId", "employer_id"}
	sequenceKeys    = []string{"sequenceNumber", "sequence_number", "sequence", "seq"}
	notesKeys       = []string{"notes", "note", "text", "comment"}
	createdAtKeys   = []string{"createdAt", "created_at", "timestamp"}
)

func (r Record) lookup(keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Record) str(keys []string) string {
	v, ok := r.lookup(keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (r Record) optionalStr(keys []string) *string {
	if _, ok := r.lookup(keys); !ok {
		return nil
	}
	return utils.Ptr(r.str(keys))
}

func (r Record) id(field string, keys []string) (uuid.UUID, error) {
	raw := r.str(keys)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is missing", e.ErrInvalidInput, field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q is not a uuid", e.ErrInvalidInput, field, raw)
	}
	return id, nil
}

func (r Record) optionalID(field string, keys []string) (*uuid.UUID, error) {
	if r.str(keys) == "" {
		return nil, nil
	}
	id, err := r.id(field, keys)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r Record) number(keys []string) (int64, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func (r Record) timestamp(keys []string) (time.Time, error) {
	v, ok := r.lookup(keys)
	if !ok {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp %q", e.ErrInvalidInput, t)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: timestamp of type %T", e.ErrInvalidInput, v)
}

func (r Record) list(keys []string) []string {
	v, ok := r.lookup(keys)
	if !ok {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = t
	case string:
		raw = strings.Split(t, ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r Record) record(keys []string) (Record, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return Record(t), true
	case Record:
		return t, true
	}
	return nil, false
}

func (r Record) records(keys []string) []Record {
	v, ok := r.lookup(keys)
	if !ok {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]interface{}:
			out = append(out, Record(t))
		case Record:
			out = append(out, t)
		}
	}
	return out
}

// Actor normalises a user record into an Actor. Unknown roles are rejected.
func Actor(r Record) (models.Actor, error) {
	role, err := models.ParseActorRole(r.str(roleKeys))
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	id, err := r.id("actor id", append([]string{"userId", "user_id"}, idKeys...))
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{Role: role, ID: id, DisplayName: r.str(nameKeys)}, nil
}

// Account normalises an employer or candidate-user record. A missing status
// means PENDING.
func Account(r Record) (*models.Account, error) {
	actor, err := Actor(r)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admins have no account", e.ErrInvalidInput)
	}
	status := models.StatusPending
	if raw := r.str(statusKeys); raw != "" {
		parsed, ok := models.ParseAccountStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: account status %q", e.ErrInvalidInput, raw)
		}
		status = parsed
	}
	created, err := r.timestamp(createdAtKeys)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		ID:          actor.ID,
		Role:        actor.Role,
		DisplayName: actor.DisplayName,
		Email:       strings.ToLower(r.str(emailKeys)),
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if actor.Role == models.RoleEmployer {
		account.CompanyName = r.str(companyKeys)
	}
	if account.DisplayName == "" || account.Email == "" {
		return nil, fmt.Errorf("%w: account %s needs a name and an email", e.ErrInvalidInput, account.ID)
	}
	return account, nil
}

func profile(r Record) models.Profile {
	src := r
	if nested, ok := r.record([]string{"profile"}); ok {
		src = nested
	}
	return models.Profile{
		CurrentCompany: src.str([]string{"currentCompany", "current_company", "company"}),
		Designation:    src.str([]string{"designation", "title", "jobTitle"}),
		Location:       src.str([]string{"location", "city"}),
		Compensation:   src.str([]string{"compensation", "ctc", "salary"}),
		NoticePeriod:   src.str([]string{"noticePeriod", "notice_period"}),
		Skills:         src.list([]string{"skills"}),
	}
}

// Candidate normalises a candidate record. The kind defaults to VERIFIED when
// an account is linked and INVITED_DRAFT otherwise.
func Candidate(r Record) (*models.Candidate, error) {
	id, err := r.id("candidate id", candidateIDKeys)
	if err != nil {
		return nil, err
	}
	accountID, err := r.optionalID("account id", accountIDKeys)
	if err != nil {
		return nil, err
	}
	invitedBy, err := r.optionalID("inviter id", invitedByKeys)
	if err != nil {
		return nil, err
	}
	name := r.str(nameKeys)
	if name == "" {
		return nil, fmt.Errorf("%w: candidate %s has no name", e.ErrInvalidInput, id)
	}

	kind := models.KindInvitedDraft
	if accountID != nil {
		kind = models.KindVerified
	}
	switch strings.ToUpper(r.str([]string{"kind"})) {
	case "":
	case string(models.KindVerified), "VERIFIED_CANDIDATE":
		kind = models.KindVerified
	case string(models.KindInvitedDraft), "DRAFT", "INVITED":
		kind = models.KindInvitedDraft
	default:
		return nil, fmt.Errorf("%w: candidate kind %q", e.ErrInvalidInput, r.str([]string{"kind"}))
	}
	if kind == models.KindVerified && accountID == nil {
		return nil, fmt.Errorf("%w: verified candidate %s has no account", e.ErrInvalidInput, id)
	}

	created, err := r.timestamp(createdAtKeys)
	if err != nil {
		return nil, err
	}
	return &models.Candidate{
		ID:        id,
		Kind:      kind,
		AccountID: accountID,
		InvitedBy: invitedBy,
		FullName:  name,
		Email:     strings.ToLower(r.str(emailKeys)),
		Phone:     r.str(phoneKeys),
		Profile:   profile(r),
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func structuredUpdate(r Record) *models.StructuredUpdate {
	u, ok := r.record([]string{"structuredUpdate", "structured_update", "update"})
	if !ok {
		return nil
	}
	update := &models.StructuredUpdate{
		Company:           u.optionalStr([]string{"company", "currentCompany"}),
		Designation:       u.optionalStr([]string{"designation", "title"}),
		Location:          u.optionalStr([]string{"location"}),
		Compensation:      u.optionalStr([]string{"compensation", "ctc"}),
		NoticePeriod:      u.optionalStr([]string{"noticePeriod", "notice_period"}),
		Skills:            u.list([]string{"skills"}),
		VerificationNotes: u.optionalStr([]string{"verificationNotes", "verification_notes"}),
	}
	if update.IsEmpty() {
		return nil
	}
	return update
}

// Entry normalises one timeline record of candidateID. The author comes from
// an embedded "author" object or from flat authorRole/authorId fields.
// Records without a kind are substantive updates.
func Entry(candidateID uuid.UUID, r Record) (*models.TimelineEntry, error) {
	id, err := r.id("entry id", idKeys)
	if err != nil {
		return nil, err
	}
	author, ok := r.record([]string{"author", "createdBy", "created_by"})
	if !ok {
		author = Record{
			"role": r.str([]string{"authorRole", "author_role"}),
			"id":   r.str([]string{"authorId", "author_id"}),
			"name": r.str([]string{"authorName", "author_name", "authorDisplayName"}),
		}
	}
	actor, err := Actor(author)
	if err != nil {
		return nil, fmt.Errorf("entry %s author: %w", id, err)
	}

	kind := models.KindSubstantiveUpdate
	if raw := strings.ToUpper(r.str([]string{"kind", "entryKind"})); raw != "" {
		switch models.EntryKind(raw) {
		case models.KindStatusTransition, models.KindSubstantiveUpdate:
			kind = models.EntryKind(raw)
		default:
			return nil, fmt.Errorf("%w: entry kind %q", e.ErrInvalidInput, raw)
		}
	}

	created, err := r.timestamp(createdAtKeys)
	if err != nil {
		return nil, err
	}
	seq, _ := r.number(sequenceKeys)
	entry := &models.TimelineEntry{
		ID:                id,
		CandidateID:       candidateID,
		Sequence:          seq,
		Kind:              kind,
		AuthorRole:        actor.Role,
		AuthorID:          actor.ID,
		AuthorDisplayName: actor.DisplayName,
		Notes:             r.str(notesKeys),
		Update:            structuredUpdate(r),
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	if actor.Role == models.RoleEmployer {
		entry.CompanyName = r.str(companyKeys)
		if entry.CompanyName == "" {
			entry.CompanyName = author.str(companyKeys)
		}
	}
	for _, cr := range r.records([]string{"comments"}) {
		comment, err := Comment(id, cr)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}
		entry.Comments = append(entry.Comments, *comment)
	}
	return entry, nil
}

// Comment normalises a comment record on entryID.
func Comment(entryID uuid.UUID, r Record) (*models.Comment, error) {
	id, err := r.id("comment id", idKeys)
	if err != nil {
		return nil, err
	}
	by, err := r.id("comment author", []string{"createdBy", "created_by", "authorId", "author_id", "userId"})
	if err != nil {
		return nil, err
	}
	text := r.str(notesKeys)
	if text == "" {
		return nil, fmt.Errorf("%w: comment %s", e.ErrEmptyText, id)
	}
	created, err := r.timestamp(createdAtKeys)
	if err != nil {
		return nil, err
	}
	return &models.Comment{ID: id, EntryID: entryID, Text: text, CreatedBy: by, CreatedAt: created}, nil
}

// SortEntries orders entries by ingested sequence number, then creation time.
func SortEntries(entries []*models.TimelineEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Sequence != entries[j].Sequence {
			return entries[i].Sequence < entries[j].Sequence
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
