package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Store implements ports.SessionStore on a relational database through gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the database and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = gormsqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&sessionRow{}, &documentIndexRow{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save upserts the record and its document index in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	if session == nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, errors.New("nil session"))
	}

	data, err := json.Marshal(session)
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to marshal session: %w", err))
	}
	row := sessionRow{
		SessionID:    sessionID,
		Data:         string(data),
		LastActivity: session.LastActivity.UnixNano(),
	}

	var indexRow *documentIndexRow
	if session.DocumentIndex != nil {
		raw, err := json.Marshal(session.DocumentIndex)
		if err != nil {
			return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to marshal document index: %w", err))
		}
		indexRow = &documentIndexRow{SessionID: sessionID, Data: string(raw)}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if indexRow != nil {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(indexRow).Error; err != nil {
				return err
			}
		} else if err := tx.Where("session_id = ?", sessionID).Delete(&documentIndexRow{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	})
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	return nil
}

// Load retrieves the record and its document index.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(row.Data), &session); err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to unmarshal session: %w", err))
	}
	if session.ChatHistory == nil {
		session.ChatHistory = []domain.Message{}
	}

	var indexRows []documentIndexRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Limit(1).Find(&indexRows).Error; err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, err)
	}
	if len(indexRows) == 1 {
		var index domain.DocumentIndex
		if err := json.Unmarshal([]byte(indexRows[0].Data), &index); err != nil {
			return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to unmarshal document index: %w", err))
		}
		session.DocumentIndex = &index
	}
	return &session, nil
}

// Delete removes the record and its document index.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRows(tx, sessionID)
	})
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	return nil
}

func deleteRows(tx *gorm.DB, sessionID string) error {
	if err := tx.Where("session_id = ?", sessionID).Delete(&documentIndexRow{}).Error; err != nil {
		return err
	}
	return tx.Where("session_id = ?", sessionID).Delete(&sessionRow{}).Error
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).Order("session_id").Pluck("session_id", &ids).Error; err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, "", err)
	}
	return ids, nil
}

// Sweep deletes sessions whose LastActivity is at or before now-maxAge.
// Each session is removed in its own transaction that re-checks the activity,
// so a session refreshed during the sweep is kept.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := s.now().Add(-maxAge).UnixNano()

	var candidates []string
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("last_activity <= ?", cutoff).
		Pluck("session_id", &candidates).Error; err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, "", err)
	}

	var (
		removed []string
		errs    []error
	)
	for _, id := range candidates {
		deleted := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("session_id = ? AND last_activity <= ?", id, cutoff).Delete(&sessionRow{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			deleted = true
			return tx.Where("session_id = ?", id).Delete(&documentIndexRow{}).Error
		})
		if err != nil {
			errs = append(errs, domain.NewStorageError(domain.StorageWrite, id, err))
			continue
		}
		if deleted {
			removed = append(removed, id)
		}
	}
	return removed, errors.Join(errs...)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
