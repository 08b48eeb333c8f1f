// Package db persists the registry through GORM on PostgreSQL or SQLite.
// Sequence numbers come from an in-transaction increment of the candidate's
// last_sequence column; entry mutations compare-and-swap on the entry version.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/redflag/internal/registry/db/models"
	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite DSN, e.g. "file:registry.db" or ":memory:".
	Path string
}

// Dialector picks the GORM driver for cfg.
func (cfg *Config) Dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewRepositoryFromDB(db)
}

// NewRepositoryFromDB migrates the schema on an open connection.
func NewRepositoryFromDB(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(dbmodels.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	result := r.db.WithContext(ctx).Create(toAccountRow(account))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email %s already registered", e.ErrDuplicate, account.Email)
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var row dbmodels.Account
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrAccountNotFound
		}
		return nil, result.Error
	}
	return toAccount(&row), nil
}

func (r *Repository) UpdateAccountStatus(ctx context.Context, id uuid.UUID, from, to models.AccountStatus) (*models.Account, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.Account{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": r.now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: account %s is %s, expected %s", e.ErrConflict, id, current.Status, from)
	}
	return r.GetAccount(ctx, id)
}

func (r *Repository) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	row := toCandidateRow(candidate)
	row.LastSequence = 0
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: candidate %s", e.ErrDuplicate, candidate.ID)
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetCandidate(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	row, err := loadCandidate(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return toCandidate(row), nil
}

func loadCandidate(tx *gorm.DB, id uuid.UUID) (*dbmodels.Candidate, error) {
	var row dbmodels.Candidate
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.ErrCandidateNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *Repository) VerifyCandidate(ctx context.Context, id, accountID uuid.UUID) (*models.Candidate, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.Candidate{}).
		Where("id = ? AND kind = ?", id, string(models.KindInvitedDraft)).
		Updates(map[string]any{
			"kind":       string(models.KindVerified),
			"account_id": accountID,
			"updated_at": r.now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetCandidate(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: candidate %s is already verified", e.ErrInvalidInput, id)
	}
	return r.GetCandidate(ctx, id)
}

func (r *Repository) AppendEntry(ctx context.Context, entry *models.TimelineEntry) (*models.TimelineEntry, error) {
	row := toEntryRow(entry)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&dbmodels.Candidate{}).
			Where("id = ?", entry.CandidateID).
			UpdateColumn("last_sequence", gorm.Expr("last_sequence + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrCandidateNotFound
		}

		var sequence int64
		if err := tx.Model(&dbmodels.Candidate{}).
			Select("last_sequence").
			Where("id = ?", entry.CandidateID).
			Scan(&sequence).Error; err != nil {
			return err
		}
		row.Sequence = sequence
		return tx.Omit("Comments").Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return toEntry(row), nil
}

func orderComments(tx *gorm.DB) *gorm.DB {
	return tx.Order("created_at ASC")
}

// loadEntry reads an entry with its comments, telling a missing candidate
// apart from a missing entry.
func loadEntry(tx *gorm.DB, candidateID, entryID uuid.UUID) (*dbmodels.TimelineEntry, error) {
	if _, err := loadCandidate(tx, candidateID); err != nil {
		return nil, err
	}
	var row dbmodels.TimelineEntry
	err := tx.Preload("Comments", orderComments).
		First(&row, "id = ? AND candidate_id = ?", entryID, candidateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.ErrEntryNotFound
		}
		return nil, err
	}
	return &row, nil
}

// bumpVersion moves the entry from row.Version to row.Version+1, applying
// extra column updates, or fails with ErrConflict if another writer got there first.
func (r *Repository) bumpVersion(tx *gorm.DB, row *dbmodels.TimelineEntry, extra map[string]any) error {
	now := r.now()
	updates := map[string]any{"version": row.Version + 1, "updated_at": now}
	for k, v := range extra {
		updates[k] = v
	}
	result := tx.Model(&dbmodels.TimelineEntry{}).
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: entry %s changed concurrently", e.ErrConflict, row.ID)
	}
	row.Version++
	row.UpdatedAt = now
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, candidateID, entryID uuid.UUID) (*models.TimelineEntry, error) {
	row, err := loadEntry(r.db.WithContext(ctx), candidateID, entryID)
	if err != nil {
		return nil, err
	}
	return toEntry(row), nil
}

func (r *Repository) UpdateEntryNotes(ctx context.Context, candidateID, entryID uuid.UUID, notes string, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error) {
	var updated *models.TimelineEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadEntry(tx, candidateID, entryID)
		if err != nil {
			return err
		}
		if err := guard(toEntry(row)); err != nil {
			return err
		}
		if err := r.bumpVersion(tx, row, map[string]any{"notes": notes}); err != nil {
			return err
		}
		row.Notes = notes
		updated = toEntry(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, candidateID, entryID uuid.UUID, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error) {
	var removed *models.TimelineEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadEntry(tx, candidateID, entryID)
		if err != nil {
			return err
		}
		removed = toEntry(row)
		if err := guard(removed); err != nil {
			return err
		}
		if err := tx.Where("entry_id = ?", row.ID).Delete(&dbmodels.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND version = ?", row.ID, row.Version).Delete(&dbmodels.TimelineEntry{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: entry %s changed concurrently", e.ErrConflict, row.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *Repository) ListEntries(ctx context.Context, candidateID uuid.UUID) ([]models.TimelineEntry, error) {
	db := r.db.WithContext(ctx)
	if _, err := loadCandidate(db, candidateID); err != nil {
		return nil, err
	}
	var rows []dbmodels.TimelineEntry
	err := db.Preload("Comments", orderComments).
		Where("candidate_id = ?", candidateID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.TimelineEntry, len(rows))
	for i := range rows {
		out[i] = *toEntry(&rows[i])
	}
	return out, nil
}

func (r *Repository) AddComment(ctx context.Context, candidateID, entryID uuid.UUID, comment *models.Comment, guard func(*models.TimelineEntry) error) (*models.Comment, error) {
	var stored *models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadEntry(tx, candidateID, entryID)
		if err != nil {
			return err
		}
		if err := guard(toEntry(row)); err != nil {
			return err
		}
		commentRow := toCommentRow(comment)
		commentRow.EntryID = row.ID
		if err := tx.Create(commentRow).Error; err != nil {
			return err
		}
		if err := r.bumpVersion(tx, row, nil); err != nil {
			return err
		}
		stored = toComment(commentRow)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *Repository) DeleteComment(ctx context.Context, candidateID, entryID, commentID uuid.UUID, guard func(*models.TimelineEntry, *models.Comment) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadEntry(tx, candidateID, entryID)
		if err != nil {
			return err
		}
		entry := toEntry(row)
		i := entry.FindComment(commentID)
		if i < 0 {
			return e.ErrCommentNotFound
		}
		if err := guard(entry, &entry.Comments[i]); err != nil {
			return err
		}
		if err := tx.Where("id = ?", commentID).Delete(&dbmodels.Comment{}).Error; err != nil {
			return err
		}
		return r.bumpVersion(tx, row, nil)
	})
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
