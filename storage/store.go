package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"news-scraper/models"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrInvalid is returned when a record misses a required field.
	ErrInvalid = errors.New("invalid record")
)

// Store persists articles and notes.
type Store struct {
	db *gorm.DB
}

// ArticleFilter narrows FindArticles. The zero value matches every article.
type ArticleFilter struct {
	TitleContains string
	HasNote       *bool
	PopulateNote  bool
}

// FindOptions controls FindArticle.
type FindOptions struct {
	PopulateNote bool
}

// ArticlePatch lists the fields UpdateArticle may change. Nil fields are left untouched.
type ArticlePatch struct {
	Title  *string
	Link   *string
	NoteID *uint
}

// UpdateOptions controls what UpdateArticle returns.
type UpdateOptions struct {
	// ReturnUpdated returns the record after the patch instead of before it.
	ReturnUpdated bool
	PopulateNote  bool
}

// Open connects to the database named by dsn. DSNs starting with "sqlite:" or "file:",
// and ":memory:", use the embedded sqlite driver; everything else goes to postgres.
func Open(dsn, logLevel string) (*Store, error) {
	dialector, inMemory := dialectorFor(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(logLevel)),
	})
	if err != nil {
		return nil, err
	}
	if inMemory {
		// every new connection to :memory: would see an empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db), nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		return sqlite.Open(path), strings.Contains(path, ":memory:")
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqlite.Open(dsn), strings.Contains(dsn, ":memory:")
	default:
		return postgres.Open(dsn), false
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Note{}, &models.Article{})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateArticle inserts a and fills in its id.
func (s *Store) CreateArticle(ctx context.Context, a *models.Article) error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: article title is required", ErrInvalid)
	}
	if strings.TrimSpace(a.Link) == "" {
		return fmt.Errorf("%w: article link is required", ErrInvalid)
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// CreateNote inserts n and fills in its id.
func (s *Store) CreateNote(ctx context.Context, n *models.Note) error {
	if len(n.Fields) == 0 {
		return fmt.Errorf("%w: note has no fields", ErrInvalid)
	}
	return s.db.WithContext(ctx).Create(n).Error
}

// FindArticles returns the matching articles in insertion order.
func (s *Store) FindArticles(ctx context.Context, f ArticleFilter) ([]models.Article, error) {
	query := s.db.WithContext(ctx).Model(&models.Article{})
	if f.TitleContains != "" {
		query = query.Where("title LIKE ?", "%"+f.TitleContains+"%")
	}
	if f.HasNote != nil {
		if *f.HasNote {
			query = query.Where("note_id IS NOT NULL")
		} else {
			query = query.Where("note_id IS NULL")
		}
	}
	if f.PopulateNote {
		query = query.Preload("Note")
	}

	articles := []models.Article{}
	if err := query.Order("id asc").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// FindNotes returns every note in insertion order.
func (s *Store) FindNotes(ctx context.Context) ([]models.Note, error) {
	notes := []models.Note{}
	if err := s.db.WithContext(ctx).Order("id asc").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// FindArticle returns the article with the given id, or ErrNotFound.
func (s *Store) FindArticle(ctx context.Context, id uint, opts FindOptions) (*models.Article, error) {
	query := s.db.WithContext(ctx)
	if opts.PopulateNote {
		query = query.Preload("Note")
	}
	var a models.Article
	if err := query.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// FindNote returns the note with the given id, or ErrNotFound.
func (s *Store) FindNote(ctx context.Context, id uint) (*models.Note, error) {
	var n models.Note
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &n, nil
}

// UpdateArticle applies patch to the article with the given id. It returns the record as it
// was before the patch unless opts.ReturnUpdated is set. A NoteID that does not name an
// existing note fails with ErrNotFound and leaves the article unchanged.
func (s *Store) UpdateArticle(ctx context.Context, id uint, patch ArticlePatch, opts UpdateOptions) (*models.Article, error) {
	var result *models.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := New(tx)
		before, err := txStore.FindArticle(ctx, id, FindOptions{PopulateNote: opts.PopulateNote})
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return fmt.Errorf("%w: article title is required", ErrInvalid)
			}
			updates["title"] = *patch.Title
		}
		if patch.Link != nil {
			if strings.TrimSpace(*patch.Link) == "" {
				return fmt.Errorf("%w: article link is required", ErrInvalid)
			}
			updates["link"] = *patch.Link
		}
		if patch.NoteID != nil {
			if _, err := txStore.FindNote(ctx, *patch.NoteID); err != nil {
				return err
			}
			updates["note_id"] = *patch.NoteID
		}

		if len(updates) == 0 || !opts.ReturnUpdated {
			result = before
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Article{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if opts.ReturnUpdated {
			result, err = txStore.FindArticle(ctx, id, FindOptions{PopulateNote: opts.PopulateNote})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AttachNote creates a note from fields and points the article at it, in one transaction.
// An unknown article fails with ErrNotFound before any note is written.
func (s *Store) AttachNote(ctx context.Context, articleID uint, fields map[string]any) (*models.Article, error) {
	var updated *models.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := New(tx)
		if _, err := txStore.FindArticle(ctx, articleID, FindOptions{}); err != nil {
			return err
		}
		note := &models.Note{Fields: datatypes.JSONMap(fields)}
		if err := txStore.CreateNote(ctx, note); err != nil {
			return err
		}
		a, err := txStore.UpdateArticle(ctx, articleID, ArticlePatch{NoteID: &note.ID},
			UpdateOptions{ReturnUpdated: true, PopulateNote: true})
		updated = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
