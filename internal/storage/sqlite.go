package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/service"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// IsBusy reports whether an error is a transient SQLite lock conflict that a
// caller may retry.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return t.storage.createCategoryTx(ctx, t.tx, category)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategoryByPath(ctx context.Context, path string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByPathTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) GetCategoryByFullSlug(ctx context.Context, fullSlug string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fullSlug, "fullSlug"); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByFullSlugTx(ctx, t.tx, fullSlug)
}

func (t *sqliteTransaction) AllCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.allCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) UpdateCategoryPath(ctx context.Context, id int64, path string, depth int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return t.storage.updateCategoryPathTx(ctx, t.tx, id, path, depth)
}

func (t *sqliteTransaction) UpdateCategoryLabel(ctx context.Context, id int64, name, slug string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateString(slug, "slug"); err != nil {
		return err
	}
	return t.storage.updateCategoryLabelTx(ctx, t.tx, id, name, slug)
}

func (t *sqliteTransaction) UpdateCategoryDerived(ctx context.Context, id int64, fullName, fullSlug string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return t.storage.updateCategoryDerivedTx(ctx, t.tx, id, fullName, fullSlug)
}

func (t *sqliteTransaction) SetNumChild(ctx context.Context, id int64, numChild int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return t.storage.setNumChildTx(ctx, t.tx, id, numChild)
}

func (t *sqliteTransaction) AdjustNumChild(ctx context.Context, id int64, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return t.storage.adjustNumChildTx(ctx, t.tx, id, delta)
}

func (t *sqliteTransaction) DeleteByPathPrefix(ctx context.Context, path string) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return t.storage.deleteByPathPrefixTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) Roots(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.childrenOfTx(ctx, t.tx, "")
}

func (t *sqliteTransaction) ChildrenOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, true); err != nil {
		return nil, err
	}
	return t.storage.childrenOfTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) DescendantsOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return t.storage.descendantsOfTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) SubtreeOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return t.storage.subtreeOfTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) SiblingsOf(ctx context.Context, path string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	return t.storage.childrenOfTx(ctx, t.tx, pathParent(path))
}

func (t *sqliteTransaction) CountChildren(ctx context.Context, path string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validatePath(path, true); err != nil {
		return 0, err
	}
	return t.storage.countChildrenTx(ctx, t.tx, path)
}

func (t *sqliteTransaction) FindChildByName(ctx context.Context, parentPath, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePath(parentPath, true); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.findChildByNameTx(ctx, t.tx, parentPath, name)
}

func (t *sqliteTransaction) SiblingSlugExists(ctx context.Context, parentPath, slug string, excludeID int64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validatePath(parentPath, true); err != nil {
		return false, err
	}
	if err := validateString(slug, "slug"); err != nil {
		return false, err
	}
	return t.storage.siblingSlugExistsTx(ctx, t.tx, parentPath, slug, excludeID)
}

func (t *sqliteTransaction) RootCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.rootCountTx(ctx, t.tx)
}

func (t *sqliteTransaction) SetRootCount(ctx context.Context, count int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.setRootCountTx(ctx, t.tx, count)
}

func (t *sqliteTransaction) AdjustRootCount(ctx context.Context, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.adjustRootCountTx(ctx, t.tx, delta)
}

func (t *sqliteTransaction) CacheGet(ctx context.Context, key string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateString(key, "key"); err != nil {
		return "", false, err
	}
	return t.storage.cacheGetTx(ctx, t.tx, key)
}

func (t *sqliteTransaction) CacheSet(ctx context.Context, key, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	return t.storage.cacheSetTx(ctx, t.tx, key, value)
}

func (t *sqliteTransaction) CacheDelete(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	return t.storage.cacheDeleteTx(ctx, t.tx, key)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
