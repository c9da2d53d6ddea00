package templatestore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNPYRoundTrip(t *testing.T) {
	vec := make([]float32, 512)
	for i := range vec {
		vec[i] = float32(i) * 0.25
	}

	var buf bytes.Buffer
	if err := encodeNPY(&buf, vec); err != nil {
		t.Fatal(err)
	}

	// Header block must align to 64 bytes before the data starts.
	if (buf.Len()-len(vec)*4)%64 != 0 {
		t.Errorf("npy header not 64-byte aligned: %d bytes before data", buf.Len()-len(vec)*4)
	}

	got, err := decodeNPY(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded %d values, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("value %d = %f, want %f", i, got[i], vec[i])
		}
	}
}

func TestDecodeNPYRejectsGarbage(t *testing.T) {
	if _, err := decodeNPY(bytes.NewReader([]byte("not an npy file at all"))); err == nil {
		t.Error("decode of garbage should fail")
	}
}

func TestPutFingerprintRejectsSecondTemplate(t *testing.T) {
	s := newTestStore(t)

	path, err := s.PutFingerprint("emp-01-0001", []byte("template-a"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "template_emp-01-0001.tpl" {
		t.Errorf("unexpected template file name: %s", path)
	}

	if _, err := s.PutFingerprint("emp-01-0001", []byte("template-b")); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second put should fail with ErrAlreadyRegistered, got %v", err)
	}

	got, err := s.GetFingerprint("emp-01-0001")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "template-a" {
		t.Errorf("stored template = %q, want %q", got, "template-a")
	}
}

func TestReplaceFingerprint(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.PutFingerprint("emp-01-0001", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceFingerprint("emp-01-0001", []byte("new")); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetFingerprint("emp-01-0001")
	if string(got) != "new" {
		t.Errorf("template after replace = %q, want %q", got, "new")
	}

	// No temp leftovers.
	entries, _ := os.ReadDir(filepath.Join(s.Root(), fingerprintDir))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestGetFingerprintMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetFingerprint("emp-99-9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing template should yield ErrNotFound, got %v", err)
	}
}

func TestIterFingerprints(t *testing.T) {
	s := newTestStore(t)
	s.PutFingerprint("emp-01-0001", []byte("a"))
	s.PutFingerprint("emp-01-0002", []byte("b"))

	entries, err := s.IterFingerprints()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d templates, want 2", len(entries))
	}

	seen := map[string]string{}
	for _, e := range entries {
		seen[e.EmployeeID] = string(e.Template)
	}
	if seen["emp-01-0001"] != "a" || seen["emp-01-0002"] != "b" {
		t.Errorf("unexpected iteration content: %v", seen)
	}
}

func testArtifacts() []FacePoseArtifact {
	emb := make([]float32, 512)
	for i := range emb {
		emb[i] = float32(i)
	}
	return []FacePoseArtifact{
		{Pose: "neutral", Embedding: emb, Image: []byte("jpeg-neutral")},
		{Pose: "left", Embedding: emb, Image: []byte("jpeg-left")},
	}
}

func TestPutFaceArtifacts(t *testing.T) {
	s := newTestStore(t)

	paths, err := s.PutFaceArtifacts("emp-01-0001", testArtifacts())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 4 {
		t.Fatalf("got %d paths, want 4 (npy+jpg per pose)", len(paths))
	}

	emb, err := s.LoadEmbedding(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 512 {
		t.Errorf("embedding length = %d, want 512", len(emb))
	}

	records, err := s.ListFaceArtifactsForAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EmployeeID != "emp-01-0001" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if len(records[0].Embeddings) != 2 || len(records[0].ImagePaths) != 2 {
		t.Errorf("record should carry both pose pairs: %+v", records[0])
	}
}

// A pose pair with its jpg missing must be skipped by the full scan.
func TestListFaceArtifactsSkipsBrokenPairs(t *testing.T) {
	s := newTestStore(t)
	paths, err := s.PutFaceArtifacts("emp-01-0001", testArtifacts())
	if err != nil {
		t.Fatal(err)
	}

	// Remove one jpg half.
	if err := os.Remove(paths[3]); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListFaceArtifactsForAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(records[0].Embeddings) != 1 {
		t.Fatalf("broken pair should be skipped: %+v", records)
	}
}

func TestCommitStagedSwapsAtomically(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.PutFingerprint("emp-01-0001", []byte("live")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutFaceArtifacts("emp-01-0001", testArtifacts()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.StageFingerprint("emp-01-0001", []byte("staged")); err != nil {
		t.Fatal(err)
	}
	staged := testArtifacts()
	staged[0].Image = []byte("jpeg-neutral-v2")
	if _, err := s.StageFaceArtifacts("emp-01-0001", staged); err != nil {
		t.Fatal(err)
	}

	if err := s.CommitStaged("emp-01-0001"); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetFingerprint("emp-01-0001")
	if string(got) != "staged" {
		t.Errorf("fingerprint after commit = %q, want %q", got, "staged")
	}

	img, err := s.LoadImage(filepath.Join(s.Root(), faceDir, "emp-01-0001_neutral.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != "jpeg-neutral-v2" {
		t.Errorf("face crop not promoted: %q", img)
	}

	// Backups are cleaned up.
	entries, _ := os.ReadDir(filepath.Join(s.Root(), fingerprintDir))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".bak" {
			t.Errorf("backup left behind: %s", e.Name())
		}
	}
}

func TestDiscardStagedLeavesLiveIntact(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.PutFingerprint("emp-01-0001", []byte("live")); err != nil {
		t.Fatal(err)
	}
	livePaths, err := s.PutFaceArtifacts("emp-01-0001", testArtifacts())
	if err != nil {
		t.Fatal(err)
	}

	before := map[string][]byte{}
	for _, p := range livePaths {
		data, _ := os.ReadFile(p)
		before[p] = data
	}

	s.StageFingerprint("emp-01-0001", []byte("staged"))
	s.StageFaceArtifacts("emp-01-0001", testArtifacts())

	if err := s.DiscardStaged("emp-01-0001"); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetFingerprint("emp-01-0001")
	if string(got) != "live" {
		t.Errorf("fingerprint after discard = %q, want %q", got, "live")
	}
	for p, want := range before {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("live artifact missing after discard: %s", p)
		}
		if !bytes.Equal(data, want) {
			t.Errorf("live artifact changed after discard: %s", p)
		}
	}

	// Staging must be empty now.
	if moves := s.stagedMoves("emp-01-0001"); len(moves) != 0 {
		t.Errorf("staging not empty after discard: %v", moves)
	}
}

func TestDeleteEmployeeArtifacts(t *testing.T) {
	s := newTestStore(t)
	s.PutFingerprint("emp-01-0001", []byte("live"))
	s.PutFaceArtifacts("emp-01-0001", testArtifacts())
	s.PutFingerprint("emp-01-0002", []byte("other"))

	if err := s.DeleteEmployeeArtifacts("emp-01-0001"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetFingerprint("emp-01-0001"); !errors.Is(err, ErrNotFound) {
		t.Error("deleted employee's template should be gone")
	}
	if _, err := s.GetFingerprint("emp-01-0002"); err != nil {
		t.Error("other employee's template must survive")
	}

	records, _ := s.ListFaceArtifactsForAll()
	if len(records) != 0 {
		t.Errorf("face artifacts should be gone: %+v", records)
	}
}
