package serviceimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pgvector/pgvector-go"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/infrastructure/faceapi"
	"eals-backend/infrastructure/templatestore"
)

// fakeFaceAPI emulates the face analysis service; yaw/pitch are mutable so
// a test can walk the enrollment loop through the pose sequence.
type fakeFaceAPI struct {
	mu        sync.Mutex
	yaw       float64
	pitch     float64
	embedding []float32
	noFace    bool
}

func (a *fakeFaceAPI) setPose(yaw, pitch float64) {
	a.mu.Lock()
	a.yaw = yaw
	a.pitch = pitch
	a.mu.Unlock()
}

func (a *fakeFaceAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(faceapi.HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		resp := faceapi.AnalyzeResponse{Success: true}
		if !a.noFace {
			resp.Faces = []faceapi.DetectedFace{{
				BboxX: 20, BboxY: 20, BboxWidth: 100, BboxHeight: 100,
				Yaw: a.yaw, Pitch: a.pitch,
				Embedding:  a.embedding,
				Confidence: 0.99,
			}}
		}
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

// fakeFaceRepo only implements the search path the engine exercises.
type fakeFaceRepo struct {
	results []repositories.FaceSearchResult
}

func (r *fakeFaceRepo) CreateArtifacts(ctx context.Context, artifacts []*models.FaceArtifact) error {
	return nil
}

func (r *fakeFaceRepo) ReplaceArtifacts(ctx context.Context, employeeID string, artifacts []*models.FaceArtifact) error {
	return nil
}

func (r *fakeFaceRepo) GetArtifactsByEmployee(ctx context.Context, employeeID string) ([]models.FaceArtifact, error) {
	return nil, nil
}

func (r *fakeFaceRepo) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return nil
}

func (r *fakeFaceRepo) SearchSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]repositories.FaceSearchResult, error) {
	return r.results, nil
}

func (r *fakeFaceRepo) SaveModel(ctx context.Context, model *models.FaceModel) error { return nil }

func (r *fakeFaceRepo) GetModel(ctx context.Context, employeeID string) (*models.FaceModel, error) {
	return nil, nil
}

func (r *fakeFaceRepo) DeleteModel(ctx context.Context, employeeID string) error { return nil }

var _ repositories.FaceRepository = (*fakeFaceRepo)(nil)

func testFrame(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(200, 200, color.NRGBA{R: 200, G: 180, B: 160, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testEmbedding() []float32 {
	emb := make([]float32, 512)
	emb[0] = 1
	return emb
}

// offAxisEmbedding returns a unit vector whose cosine against
// testEmbedding() is exactly c.
func offAxisEmbedding(c float64) []float32 {
	emb := make([]float32, 512)
	emb[0] = float32(c)
	emb[1] = float32(math.Sqrt(1 - c*c))
	return emb
}

func newFaceFixture(t *testing.T, api *fakeFaceAPI, repo *fakeFaceRepo) (*FaceServiceImpl, *templatestore.Store) {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	store, err := templatestore.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewFaceService(faceapi.NewFaceClient(server.URL), repo, store, biometricDefaults()).(*FaceServiceImpl)
	return svc, store
}

func TestProcessFrameRequiresInitialize(t *testing.T) {
	svc, _ := newFaceFixture(t, &fakeFaceAPI{}, &fakeFaceRepo{})

	if _, err := svc.ProcessFrame(context.Background(), testFrame(t)); err == nil {
		t.Fatal("ProcessFrame before Initialize should fail")
	}
}

func TestProcessFrameRecognizes(t *testing.T) {
	api := &fakeFaceAPI{embedding: testEmbedding()}
	repo := &fakeFaceRepo{}
	svc, store := newFaceFixture(t, api, repo)
	ctx := context.Background()

	// Register a reference crop for the stored identity; the fake search
	// returns it with a high cosine.
	frame := testFrame(t)
	refImg, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatal(err)
	}
	var refBuf bytes.Buffer
	crop := imaging.Resize(imaging.Crop(refImg, faceRect(faceapi.DetectedFace{BboxX: 20, BboxY: 20, BboxWidth: 100, BboxHeight: 100})), cropSize, cropSize, imaging.Lanczos)
	if err := imaging.Encode(&refBuf, crop, imaging.JPEG); err != nil {
		t.Fatal(err)
	}
	paths, err := store.PutFaceArtifacts("emp-01-0001", []templatestore.FacePoseArtifact{
		{Pose: models.PoseNeutral, Embedding: testEmbedding(), Image: refBuf.Bytes()},
	})
	if err != nil {
		t.Fatal(err)
	}
	repo.results = []repositories.FaceSearchResult{
		{EmployeeID: "emp-01-0001", Pose: models.PoseNeutral, ImagePath: paths[1], Similarity: 0.90, Embedding: pgvector.NewVector(testEmbedding())},
	}

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res, err := svc.ProcessFrame(ctx, frame)
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.Match == nil {
		t.Fatal("expected a match: cosine 1.0 plus structural bonus clears 0.65")
	}
	if res.Match.EmployeeID != "emp-01-0001" {
		t.Errorf("matched %q, want emp-01-0001", res.Match.EmployeeID)
	}
	if res.Match.Fused < res.Match.Cosine {
		t.Errorf("fused %f should carry the structural bonus over cosine %f", res.Match.Fused, res.Match.Cosine)
	}
	if len(res.Boxes) != 1 || res.Boxes[0].EmployeeID != "emp-01-0001" {
		t.Errorf("boxes = %+v, want one labeled box", res.Boxes)
	}
	if res.Pose != "Straight face" {
		t.Errorf("pose = %q, want Straight face", res.Pose)
	}
}

func TestProcessFrameBelowThresholdTagsOnly(t *testing.T) {
	api := &fakeFaceAPI{embedding: testEmbedding()}
	repo := &fakeFaceRepo{results: []repositories.FaceSearchResult{
		// No readable reference crop, so no structural bonus: fused = 0.62.
		{EmployeeID: "emp-01-0001", Pose: models.PoseNeutral, ImagePath: "/nonexistent.jpg", Similarity: 0.62, Embedding: pgvector.NewVector(offAxisEmbedding(0.62))},
	}}
	svc, _ := newFaceFixture(t, api, repo)
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	res, err := svc.ProcessFrame(ctx, testFrame(t))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.Match != nil {
		t.Errorf("fused 0.62 must not log in, got match %+v", res.Match)
	}
	if len(res.Boxes) != 1 || res.Boxes[0].EmployeeID != "emp-01-0001" {
		t.Errorf("candidate should still tag the box, got %+v", res.Boxes)
	}
}

func TestRecognizeRescoresWithStoredEmbeddings(t *testing.T) {
	api := &fakeFaceAPI{embedding: testEmbedding()}
	repo := &fakeFaceRepo{results: []repositories.FaceSearchResult{
		// The index similarities are wrong in both directions; acceptance
		// must come from the exact in-process cosine over the stored
		// embeddings.
		{EmployeeID: "emp-01-0001", Pose: models.PoseNeutral, ImagePath: "/nonexistent.jpg", Similarity: 0.31, Embedding: pgvector.NewVector(testEmbedding())},
		{EmployeeID: "emp-02-0002", Pose: models.PoseNeutral, ImagePath: "/nonexistent.jpg", Similarity: 0.99, Embedding: pgvector.NewVector(offAxisEmbedding(0.40))},
	}}
	svc, _ := newFaceFixture(t, api, repo)
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	res, err := svc.ProcessFrame(ctx, testFrame(t))
	if err != nil {
		t.Fatalf("ProcessFrame: %v", err)
	}
	if res.Match == nil {
		t.Fatal("exact cosine 1.0 must clear acceptance despite the low index score")
	}
	if res.Match.EmployeeID != "emp-01-0001" {
		t.Errorf("matched %q, want emp-01-0001; the inflated index score must not win", res.Match.EmployeeID)
	}
	if res.Match.Cosine < 0.999 {
		t.Errorf("cosine = %f, want the rescored 1.0", res.Match.Cosine)
	}
}

func TestEnrollmentWalksSixPoses(t *testing.T) {
	api := &fakeFaceAPI{embedding: testEmbedding()}
	svc, store := newFaceFixture(t, api, &fakeFaceRepo{})
	ctx := context.Background()
	frame := testFrame(t)

	if err := svc.StartEnrollment(ctx, "emp-01-0001", false); err != nil {
		t.Fatalf("StartEnrollment: %v", err)
	}

	// Pose angles per capture step, in enrollment order.
	poses := []struct{ yaw, pitch float64 }{
		{0, 0},   // neutral
		{15, 0},  // left
		{-15, 0}, // right
		{0, 12},  // up
		{0, -8},  // down
		{0, 0},   // glasses (second neutral)
	}

	var done bool
	var donePaths []string
	for _, p := range poses {
		api.setPose(p.yaw, p.pitch)
		for i := 0; i < enrollHoldTicks; i++ {
			tick, err := svc.EnrollmentTick(ctx, frame)
			if err != nil {
				t.Fatalf("EnrollmentTick: %v", err)
			}
			if i < enrollHoldTicks-1 && tick.Captured {
				t.Fatalf("capture fired after only %d ticks", i+1)
			}
			if i == enrollHoldTicks-1 {
				if !tick.Captured {
					t.Fatalf("capture should fire on tick %d of pose %v", enrollHoldTicks, p)
				}
				done = tick.Done
				donePaths = tick.Paths
			}
		}
	}

	if !done {
		t.Fatal("enrollment should complete after the sixth capture")
	}
	if len(donePaths) != 12 {
		t.Fatalf("expected 12 artifact paths, got %d", len(donePaths))
	}
	if svc.EnrollmentActive() {
		t.Error("enrollment must disarm after completion")
	}

	// The stored embeddings must round-trip through the npy codec.
	emb, err := store.LoadEmbedding(donePaths[0])
	if err != nil {
		t.Fatalf("LoadEmbedding: %v", err)
	}
	if len(emb) != 512 || emb[0] != 1 {
		t.Errorf("embedding round trip broken: len %d first %f", len(emb), emb[0])
	}
}

func TestEnrollmentHoldResetsOnPoseLoss(t *testing.T) {
	api := &fakeFaceAPI{embedding: testEmbedding()}
	svc, _ := newFaceFixture(t, api, &fakeFaceRepo{})
	ctx := context.Background()
	frame := testFrame(t)

	if err := svc.StartEnrollment(ctx, "emp-01-0001", false); err != nil {
		t.Fatalf("StartEnrollment: %v", err)
	}

	// Two good ticks, then the face turns away.
	for i := 0; i < 2; i++ {
		if _, err := svc.EnrollmentTick(ctx, frame); err != nil {
			t.Fatal(err)
		}
	}
	api.setPose(20, 0)
	tick, err := svc.EnrollmentTick(ctx, frame)
	if err != nil {
		t.Fatal(err)
	}
	if tick.HoldTicks != 0 {
		t.Errorf("hold ticks = %d, want reset to 0", tick.HoldTicks)
	}

	// Back to neutral: the countdown starts over.
	api.setPose(0, 0)
	tick, err = svc.EnrollmentTick(ctx, frame)
	if err != nil {
		t.Fatal(err)
	}
	if tick.HoldTicks != 1 || tick.Captured {
		t.Errorf("tick after recovery = %+v, want hold 1 and no capture", tick)
	}
}

func TestEnrollmentCancel(t *testing.T) {
	svc, _ := newFaceFixture(t, &fakeFaceAPI{embedding: testEmbedding()}, &fakeFaceRepo{})
	ctx := context.Background()

	if err := svc.StartEnrollment(ctx, "emp-01-0001", false); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartEnrollment(ctx, "emp-01-0002", false); err == nil {
		t.Error("second concurrent enrollment should be rejected")
	}
	if err := svc.CancelEnrollment(ctx); err != nil {
		t.Fatalf("CancelEnrollment: %v", err)
	}
	if svc.EnrollmentActive() {
		t.Error("enrollment should be inactive after cancel")
	}
}
