package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fixture is a normalised snapshot of accounts, candidates and timelines.
type Fixture struct {
	Accounts   []*models.Account
	Candidates []SeedCandidate
}

// SeedCandidate is a candidate with its timeline in sequence order.
type SeedCandidate struct {
	Candidate *models.Candidate
	Entries   []*models.TimelineEntry
}

type rawFixture struct {
	Accounts   []Record `yaml:"accounts"`
	Candidates []Record `yaml:"candidates"`
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return DecodeFixture(f)
}

// DecodeFixture parses a YAML fixture. Every record goes through the
// normalisers, so upstream spellings such as _id or fullName are accepted.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var raw rawFixture
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	fx := &Fixture{}
	for i, ar := range raw.Accounts {
		account, err := Account(ar)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
		fx.Accounts = append(fx.Accounts, account)
	}
	for i, cr := range raw.Candidates {
		candidate, err := Candidate(cr)
		if err != nil {
			return nil, fmt.Errorf("candidates[%d]: %w", i, err)
		}
		seed := SeedCandidate{Candidate: candidate}
		for j, er := range cr.records([]string{"timeline", "history", "entries"}) {
			entry, err := Entry(candidate.ID, er)
			if err != nil {
				return nil, fmt.Errorf("candidates[%d].timeline[%d]: %w", i, j, err)
			}
			seed.Entries = append(seed.Entries, entry)
		}
		SortEntries(seed.Entries)
		fx.Candidates = append(fx.Candidates, seed)
	}
	return fx, nil
}

// Repository is the part of the registry store used for seeding.
type Repository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	CreateCandidate(ctx context.Context, candidate *models.Candidate) error
	AppendEntry(ctx context.Context, entry *models.TimelineEntry) (*models.TimelineEntry, error)
	AddComment(ctx context.Context, candidateID, entryID uuid.UUID, comment *models.Comment, guard func(*models.TimelineEntry) error) (*models.Comment, error)
}

func allow(*models.TimelineEntry) error { return nil }

// Seed writes fx into repo. Records that already exist are skipped, so
// seeding is repeatable. Entries are appended in order and receive fresh
// contiguous sequence numbers.
func Seed(ctx context.Context, repo Repository, fx *Fixture, logger *zap.Logger) error {
	logger = logger.Named("seed")
	var accounts, candidates, entries int

	for _, account := range fx.Accounts {
		if err := repo.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, e.ErrDuplicate) {
				logger.Debug("Account already present", zap.String("account_id", account.ID.String()))
				continue
			}
			return fmt.Errorf("seed account %s: %w", account.ID, err)
		}
		accounts++
	}

	for _, sc := range fx.Candidates {
		if err := repo.CreateCandidate(ctx, sc.Candidate); err != nil {
			if errors.Is(err, e.ErrDuplicate) {
				logger.Debug("Candidate already present", zap.String("candidate_id", sc.Candidate.ID.String()))
				continue
			}
			return fmt.Errorf("seed candidate %s: %w", sc.Candidate.ID, err)
		}
		candidates++

		for _, entry := range sc.Entries {
			comments := entry.Comments
			bare := entry.Clone()
			bare.Comments = nil
			stored, err := repo.AppendEntry(ctx, bare)
			if err != nil {
				return fmt.Errorf("seed entry %s: %w", entry.ID, err)
			}
			for i := range comments {
				if _, err := repo.AddComment(ctx, sc.Candidate.ID, stored.ID, &comments[i], allow); err != nil {
					return fmt.Errorf("seed comment %s: %w", comments[i].ID, err)
				}
			}
			entries++
		}
	}

	logger.Info("Seed loaded",
		zap.Int("accounts", accounts),
		zap.Int("candidates", candidates),
		zap.Int("entries", entries),
	)
	return nil
}
