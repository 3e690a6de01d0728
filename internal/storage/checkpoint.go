package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CheckpointManager handles database checkpoint operations: file-level
// backups taken before destructive tree repairs, listable and restorable.
type CheckpointManager struct {
	db             *sql.DB
	dbPath         string
	checkpointsDir string
}

// CheckpointMetadata contains metadata about a checkpoint.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointInfo represents information about a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Categories    int
	SchemaVersion int
	IsAuto        bool
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
)

// NewCheckpointManager creates a new checkpoint manager.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	if dbPath == ":memory:" {
		return nil, errors.New("checkpoints require a file-backed database")
	}

	checkpointsDir := filepath.Join(filepath.Dir(dbPath), "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{
		db:             db,
		dbPath:         dbPath,
		checkpointsDir: checkpointsDir,
	}, nil
}

// Create creates a new checkpoint with the given tag and description.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("checkpoint-%s", time.Now().Format("2006-01-02-150405"))
	}

	// No path traversal in tags
	if strings.ContainsAny(tag, "/\\") || strings.Contains(tag, "..") {
		return nil, errors.New("invalid checkpoint tag: cannot contain path separators")
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, tag+".db")
	if _, err := os.Stat(checkpointPath); err == nil {
		return nil, ErrCheckpointExists
	}

	var schemaVersion int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	rowCounts := cm.collectRowCounts(ctx)

	if err := cm.backupDatabase(ctx, checkpointPath); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	fileInfo, err := os.Stat(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      fileInfo.Size(),
		RowCounts:     rowCounts,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}

	metadataPath := filepath.Join(cm.checkpointsDir, tag+".meta.json")
	if err := cm.saveMetadata(metadataPath, metadata); err != nil {
		if rmErr := os.Remove(checkpointPath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	slog.Info("created checkpoint", "id", tag, "auto", auto, "categories", rowCounts["categories"])
	return metadata.info(), nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}

		metadata, loadErr := cm.loadMetadata(filepath.Join(cm.checkpointsDir, entry.Name()))
		if loadErr != nil {
			// Skip corrupted metadata files
			continue
		}
		checkpoints = append(checkpoints, *metadata.info())
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})

	return checkpoints, nil
}

// Restore restores the database from a checkpoint. The caller must reopen
// storage afterwards: the underlying connection is closed during restore.
func (cm *CheckpointManager) Restore(_ context.Context, checkpointID string) error {
	if strings.ContainsAny(checkpointID, "/\\") || strings.Contains(checkpointID, "..") {
		return errors.New("invalid checkpoint ID: cannot contain path separators")
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, checkpointID+".db")
	if _, err := os.Stat(checkpointPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	if err := cm.verifyIntegrity(checkpointPath); err != nil {
		return ErrCheckpointCorrupted
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// Keep the current database around until the copy succeeds
	backupPath := cm.dbPath + ".restore-backup"
	if err := copyFile(cm.dbPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}

	if err := copyFile(checkpointPath, cm.dbPath); err != nil {
		if restoreErr := copyFile(backupPath, cm.dbPath); restoreErr != nil {
			slog.Error("failed to restore backup after checkpoint restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}

	if err := os.Remove(backupPath); err != nil {
		slog.Error("failed to remove backup file", "error", err)
	}

	slog.Info("restored checkpoint", "id", checkpointID)
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(_ context.Context, checkpointID string) error {
	if strings.ContainsAny(checkpointID, "/\\") || strings.Contains(checkpointID, "..") {
		return errors.New("invalid checkpoint ID: cannot contain path separators")
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, checkpointID+".db")
	metadataPath := filepath.Join(cm.checkpointsDir, checkpointID+".meta.json")

	if _, err := os.Stat(checkpointPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	if err := os.Remove(checkpointPath); err != nil {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(metadataPath); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "path", metadataPath)
	}

	return nil
}

func (m *CheckpointMetadata) info() *CheckpointInfo {
	return &CheckpointInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Categories:    m.RowCounts["categories"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func (cm *CheckpointManager) collectRowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)
	tableQueries := map[string]string{
		"categories": "SELECT COUNT(*) FROM categories",
		"url_cache":  "SELECT COUNT(*) FROM url_cache",
	}

	for table, query := range tableQueries {
		var count int
		if err := cm.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			// Table might not exist in older schemas
			counts[table] = 0
			continue
		}
		counts[table] = count
	}
	return counts
}

func (cm *CheckpointManager) backupDatabase(ctx context.Context, destPath string) error {
	// Flush the WAL so the main file is complete
	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(destPath, "'\";") || strings.Contains(destPath, "..") {
		return fmt.Errorf("invalid destination path")
	}

	// VACUUM INTO gives an atomic, compacted copy (SQLite 3.27+)
	query := fmt.Sprintf("VACUUM INTO '%s'", destPath)
	if _, err := cm.db.ExecContext(ctx, query); err != nil {
		return copyFile(cm.dbPath, destPath)
	}
	return nil
}

func (cm *CheckpointManager) verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %q", result)
	}
	return nil
}

func (cm *CheckpointManager) saveMetadata(path string, metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (cm *CheckpointManager) loadMetadata(path string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from the checkpoints dir
	if err != nil {
		return nil, err
	}

	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - paths validated by callers
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 - paths validated by callers
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
