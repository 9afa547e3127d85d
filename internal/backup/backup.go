package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"haca/internal/utils"
)

// Dir is the backup directory relative to the configuration root
const Dir = ".haca_backups"

// Keep is how many backups survive pruning
const Keep = 10

var (
	ErrOutsideBackupDir = errors.New("backup path must be inside the backup directory")
	ErrNotFound         = errors.New("backup file not found")
	ErrSourceMissing    = errors.New("source file does not exist")
)

// <stem>_YYYYMMDD_HHMMSS_<nanos>.yaml
var backupName = regexp.MustCompile(`^(.+)_\d{8}_\d{6}_\d{9}\.yaml$`)

// Info describes one backup file
type Info struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Source  string `json:"source"`
	Size    int64  `json:"size"`
	Created string `json:"created"`
}

// Manager owns the backup directory of a configuration root
type Manager struct {
	configDir string
	dir       string
	now       func() time.Time
}

func NewManager(configDir string) *Manager {
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}
	return &Manager{
		configDir: configDir,
		dir:       filepath.Join(configDir, Dir),
		now:       time.Now,
	}
}

// Dir returns the absolute backup directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create copies source into the backup directory and prunes older
// backups of the same file. It returns the new backup path.
func (m *Manager) Create(source string) (string, error) {
	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSourceMissing, source)
		}
		return "", fmt.Errorf("stat %s: %w", source, err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	now := m.now()
	path := m.pathFor(stem, now)
	for exists(path) {
		now = now.Add(time.Nanosecond)
		path = m.pathFor(stem, now)
	}

	if err := utils.CopyFileAtomic(source, path); err != nil {
		return "", fmt.Errorf("copy %s: %w", source, err)
	}
	if err := os.Chtimes(path, now, now); err != nil {
		return "", fmt.Errorf("set backup time: %w", err)
	}
	utils.Logger("BACKUP").Infof("Created backup %s", path)

	if err := m.Prune(stem, path); err != nil {
		utils.Logger("BACKUP").Warnf("Pruning backups of %s failed: %v", stem, err)
	}
	return path, nil
}

func (m *Manager) pathFor(stem string, t time.Time) string {
	name := fmt.Sprintf("%s_%s_%09d.yaml", stem, t.Format("20060102_150405"), t.Nanosecond())
	return filepath.Join(m.dir, name)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Prune deletes all but the Keep newest backups of stem. keep is never
// deleted, whatever its modification time.
func (m *Manager) Prune(stem, keep string) error {
	backups, err := m.scan(stem)
	if err != nil {
		return err
	}
	removed := 0
	for i, b := range backups {
		if i < Keep || b.path == keep {
			continue
		}
		if err := os.Remove(b.path); err != nil {
			return fmt.Errorf("remove %s: %w", b.path, err)
		}
		removed++
	}
	if removed > 0 {
		utils.Logger("BACKUP").Debugf("Pruned %d backups of %s", removed, stem)
	}
	return nil
}

type entry struct {
	path    string
	name    string
	stem    string
	size    int64
	modTime time.Time
}

// scan lists backups newest first. An empty stem matches every file.
func (m *Manager) scan(stem string) ([]entry, error) {
	dirEntries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var out []entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		match := backupName.FindStringSubmatch(de.Name())
		if match == nil || (stem != "" && match[1] != stem) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			utils.Logger("BACKUP").Warnf("Cannot stat backup %s: %v", de.Name(), err)
			continue
		}
		out = append(out, entry{
			path:    filepath.Join(m.dir, de.Name()),
			name:    de.Name(),
			stem:    match[1],
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].modTime.Equal(out[j].modTime) {
			return out[i].modTime.After(out[j].modTime)
		}
		return out[i].name > out[j].name
	})
	return out, nil
}

// List returns up to Keep backups of every file, newest first
func (m *Manager) List() ([]Info, error) {
	backups, err := m.scan("")
	if err != nil {
		return nil, err
	}
	out := []Info{}
	for i, b := range backups {
		if i == Keep {
			break
		}
		out = append(out, Info{
			Path:    b.path,
			Name:    b.name,
			Source:  b.stem + ".yaml",
			Size:    b.size,
			Created: b.modTime.Format(time.RFC3339),
		})
	}
	return out, nil
}

// validate checks that path names a regular file directly inside the
// backup directory. Symlinks are rejected.
func (m *Manager) validate(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir, err := filepath.Abs(m.dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	parent := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		parent = resolved
	}
	if parent != dir {
		return "", ErrOutsideBackupDir
	}
	abs = filepath.Join(dir, filepath.Base(abs))

	info, err := os.Lstat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return abs, nil
}

// Restore copies a backup over the file it was taken from. The current
// file is backed up first; that backup path is returned.
func (m *Manager) Restore(path string) (restoredTo, preRestore string, err error) {
	abs, err := m.validate(path)
	if err != nil {
		return "", "", err
	}
	match := backupName.FindStringSubmatch(filepath.Base(abs))
	if match == nil {
		return "", "", fmt.Errorf("%w: unrecognised backup name %s", ErrNotFound, filepath.Base(abs))
	}
	target := filepath.Join(m.configDir, match[1]+".yaml")

	// Read first: the pre-restore backup may prune abs.
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("read backup: %w", err)
	}

	if exists(target) {
		preRestore, err = m.Create(target)
		if err != nil {
			return "", "", fmt.Errorf("backup before restore: %w", err)
		}
	}
	if err := utils.WriteFileAtomic(target, data, info.Mode().Perm()); err != nil {
		return "", "", fmt.Errorf("restore %s: %w", target, err)
	}
	utils.Logger("BACKUP").Infof("Restored %s from %s", target, abs)
	return target, preRestore, nil
}

// Delete removes one backup
func (m *Manager) Delete(path string) error {
	abs, err := m.validate(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("delete %s: %w", abs, err)
	}
	utils.Logger("BACKUP").Infof("Deleted backup %s", abs)
	return nil
}
