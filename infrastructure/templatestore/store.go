// Package templatestore is the filesystem DAO for biometric artifacts:
// merged fingerprint templates, face embedding/crop pairs, the re-enrollment
// staging area and the profile picture and audit log directories.
//
// All writes go to a temporary name and are renamed into place, so readers
// only ever observe fully written files. The store is single-writer.
package templatestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrAlreadyRegistered = errors.New("an active template already exists for this employee")
	ErrNotFound          = errors.New("template not found")
)

const (
	fingerprintDir = "registered_fingerprint"
	faceDir        = "face_templates"
	stagingDir     = "temp"
	profileDir     = "profile_pictures"
	logsDir        = "logs"
)

// FacePoseArtifact is one pose pair handed to the store for persistence.
type FacePoseArtifact struct {
	Pose      string
	Embedding []float32
	Image     []byte // encoded 160x160 JPEG
}

// Store is the template store rooted at the application resources directory.
type Store struct {
	mu   sync.Mutex
	root string
}

// NewStore creates the directory structure. Failure here is fatal to
// initialization.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{
		root,
		filepath.Join(root, fingerprintDir),
		filepath.Join(root, faceDir),
		filepath.Join(root, stagingDir, fingerprintDir),
		filepath.Join(root, stagingDir, faceDir),
		filepath.Join(root, profileDir),
		filepath.Join(root, logsDir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create resource directory %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the resources root directory.
func (s *Store) Root() string {
	return s.root
}

// LogsDir returns the audit log directory.
func (s *Store) LogsDir() string {
	return filepath.Join(s.root, logsDir)
}

// ProfilePicturePath returns the canonical profile picture location for an
// employee name and extension.
func (s *Store) ProfilePicturePath(firstName, lastName, ext string) string {
	name := fmt.Sprintf("%s_%s%s", firstName, lastName, ext)
	return filepath.Join(s.root, profileDir, name)
}

// FingerprintPath returns the live template path for an employee.
func (s *Store) FingerprintPath(employeeID string) string {
	return filepath.Join(s.root, fingerprintDir, "template_"+employeeID+".tpl")
}

// FacePaths returns the live npy/jpg pair path for an employee pose.
func (s *Store) FacePaths(employeeID, pose string) (string, string) {
	npy := filepath.Join(s.root, faceDir, fmt.Sprintf("%s_%s.npy", employeeID, pose))
	jpg := filepath.Join(s.root, faceDir, fmt.Sprintf("%s_%s.jpg", employeeID, pose))
	return npy, jpg
}

// PutFingerprint writes a new template file. Fails if an active template
// already exists for the employee.
func (s *Store) PutFingerprint(employeeID string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.FingerprintPath(employeeID)
	if _, err := os.Stat(path); err == nil {
		return "", ErrAlreadyRegistered
	}
	if err := writeAtomic(path, data, false); err != nil {
		return "", err
	}
	return path, nil
}

// ReplaceFingerprint atomically swaps the registered template. On any
// failure the old file is left intact.
func (s *Store) ReplaceFingerprint(employeeID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.FingerprintPath(employeeID), data, true)
}

// GetFingerprint returns the template bytes, or ErrNotFound.
func (s *Store) GetFingerprint(employeeID string) ([]byte, error) {
	data, err := os.ReadFile(s.FingerprintPath(employeeID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// FingerprintEntry is one stored template from the 1:N iteration.
type FingerprintEntry struct {
	EmployeeID string
	Template   []byte
}

// IterFingerprints returns every registered template, for 1:N matching.
// Unreadable files are skipped.
func (s *Store) IterFingerprints() ([]FingerprintEntry, error) {
	dir := filepath.Join(s.root, fingerprintDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []FingerprintEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "template_") || !strings.HasSuffix(name, ".tpl") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "template_"), ".tpl")
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		out = append(out, FingerprintEntry{EmployeeID: id, Template: data})
	}
	return out, nil
}

// PutFaceArtifacts writes the npy/jpg pair for each pose and returns the
// written paths (npy then jpg, per pose, in input order).
func (s *Store) PutFaceArtifacts(employeeID string, artifacts []FacePoseArtifact) ([]string, error) {
	return s.putFaceArtifacts(filepath.Join(s.root, faceDir), employeeID, artifacts)
}

func (s *Store) putFaceArtifacts(dir, employeeID string, artifacts []FacePoseArtifact) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	for _, a := range artifacts {
		npyPath := filepath.Join(dir, fmt.Sprintf("%s_%s.npy", employeeID, a.Pose))
		jpgPath := filepath.Join(dir, fmt.Sprintf("%s_%s.jpg", employeeID, a.Pose))

		var buf bytes.Buffer
		if err := encodeNPY(&buf, a.Embedding); err != nil {
			return nil, fmt.Errorf("failed to encode embedding for pose %s: %w", a.Pose, err)
		}
		if err := writeAtomic(npyPath, buf.Bytes(), false); err != nil {
			return nil, err
		}
		if err := writeAtomic(jpgPath, a.Image, false); err != nil {
			return nil, err
		}
		paths = append(paths, npyPath, jpgPath)
	}
	return paths, nil
}

// LoadEmbedding reads a stored npy embedding. Missing artifacts yield
// ErrNotFound so readers can skip them silently.
func (s *Store) LoadEmbedding(path string) ([]float32, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeNPY(f)
}

// LoadImage reads a stored reference crop. Missing artifacts yield
// ErrNotFound.
func (s *Store) LoadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// FaceArtifactRecord is one employee's face artifact set from the full scan.
type FaceArtifactRecord struct {
	EmployeeID string
	Embeddings [][]float32
	ImagePaths []string
}

// ListFaceArtifactsForAll scans the face template directory and groups
// artifact pairs by employee. Pairs with a missing or unreadable half are
// skipped.
func (s *Store) ListFaceArtifactsForAll() ([]FaceArtifactRecord, error) {
	dir := filepath.Join(s.root, faceDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byEmployee := map[string]*FaceArtifactRecord{}
	var order []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".npy") {
			continue
		}
		base := strings.TrimSuffix(name, ".npy")
		idx := strings.LastIndex(base, "_")
		if idx <= 0 {
			continue
		}
		employeeID := base[:idx]

		npyPath := filepath.Join(dir, name)
		jpgPath := filepath.Join(dir, base+".jpg")

		emb, err := s.LoadEmbedding(npyPath)
		if err != nil {
			continue
		}
		if _, err := os.Stat(jpgPath); err != nil {
			continue
		}

		rec, ok := byEmployee[employeeID]
		if !ok {
			rec = &FaceArtifactRecord{EmployeeID: employeeID}
			byEmployee[employeeID] = rec
			order = append(order, employeeID)
		}
		rec.Embeddings = append(rec.Embeddings, emb)
		rec.ImagePaths = append(rec.ImagePaths, jpgPath)
	}

	out := make([]FaceArtifactRecord, 0, len(order))
	for _, id := range order {
		out = append(out, *byEmployee[id])
	}
	return out, nil
}

// Staging variants: re-enrollment writes land in the sibling staging area
// and only reach the live directories through CommitStaged.

func (s *Store) stagedFingerprintPath(employeeID string) string {
	return filepath.Join(s.root, stagingDir, fingerprintDir, "template_"+employeeID+".tpl")
}

// StageFingerprint writes a template into the staging area, replacing any
// previously staged one.
func (s *Store) StageFingerprint(employeeID string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.stagedFingerprintPath(employeeID)
	if err := writeAtomic(path, data, false); err != nil {
		return "", err
	}
	return path, nil
}

// StageFaceArtifacts writes pose pairs into the staging area.
func (s *Store) StageFaceArtifacts(employeeID string, artifacts []FacePoseArtifact) ([]string, error) {
	return s.putFaceArtifacts(filepath.Join(s.root, stagingDir, faceDir), employeeID, artifacts)
}

// CommitStaged promotes all staged artifacts for the employee over the live
// ones: copy live to backup, move staged over live, delete backup. On any
// failure the live files are restored from backup.
func (s *Store) CommitStaged(employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	moves := s.stagedMoves(employeeID)
	if len(moves) == 0 {
		return nil
	}

	var backups [][2]string // live path, backup path
	rollback := func() {
		for _, b := range backups {
			os.Rename(b[1], b[0])
		}
	}

	for _, m := range moves {
		staged, live := m[0], m[1]

		if _, err := os.Stat(live); err == nil {
			backup := live + ".bak"
			if err := copyFile(live, backup); err != nil {
				rollback()
				return fmt.Errorf("failed to back up %s: %w", live, err)
			}
			backups = append(backups, [2]string{live, backup})
		}

		if err := os.Rename(staged, live); err != nil {
			rollback()
			return fmt.Errorf("failed to promote staged artifact %s: %w", staged, err)
		}
	}

	for _, b := range backups {
		os.Remove(b[1])
	}
	return nil
}

// DiscardStaged deletes every staged artifact for the employee. The live
// artifacts are untouched.
func (s *Store) DiscardStaged(employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.stagedMoves(employeeID) {
		if err := os.Remove(m[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// stagedMoves lists (staged, live) pairs currently present in staging for
// the employee.
func (s *Store) stagedMoves(employeeID string) [][2]string {
	var moves [][2]string

	fp := s.stagedFingerprintPath(employeeID)
	if _, err := os.Stat(fp); err == nil {
		moves = append(moves, [2]string{fp, s.FingerprintPath(employeeID)})
	}

	stagedFaceDir := filepath.Join(s.root, stagingDir, faceDir)
	entries, err := os.ReadDir(stagedFaceDir)
	if err != nil {
		return moves
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, employeeID+"_") {
			continue
		}
		moves = append(moves, [2]string{
			filepath.Join(stagedFaceDir, name),
			filepath.Join(s.root, faceDir, name),
		})
	}
	return moves
}

// DeleteEmployeeArtifacts removes every live and staged artifact for the
// employee. Used when an employee row is deleted.
func (s *Store) DeleteEmployeeArtifacts(employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := []string{
		s.FingerprintPath(employeeID),
		s.stagedFingerprintPath(employeeID),
	}
	for _, dir := range []string{
		filepath.Join(s.root, faceDir),
		filepath.Join(s.root, stagingDir, faceDir),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), employeeID+"_") {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// writeAtomic writes to a temp name and renames into place. With sync set,
// the file is fsynced before the rename (used for the replace path).
func writeAtomic(path string, data []byte, sync bool) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if sync {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
