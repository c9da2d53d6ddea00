package serviceimpl

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pgvector/pgvector-go"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/faceapi"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/pkg/config"
	"eals-backend/pkg/logger"
)

const (
	frameMimeType = "image/jpeg"

	// Reference crops are stored and compared at this square size.
	cropSize = 160

	// A pose must hold for this many consecutive ticks before capture fires.
	enrollHoldTicks = 3

	// Candidate retrieval bounds for the embedding search. The cosine floor
	// only prunes obvious non-matches; acceptance runs on the fused score.
	searchLimit       = 30
	searchCosineFloor = 0.30

	// Fused score weights: full cosine plus a structural bonus.
	cosineWeight     = 1.0
	structuralWeight = 0.3
)

// enrollmentPoseLabels maps each capture step's pose tag to the classifier
// label the subject must hold. The glasses step is a second neutral capture.
var enrollmentPoseLabels = map[string]string{
	models.PoseNeutral: services.PoseStraight,
	models.PoseLeft:    services.PoseFacingLeft,
	models.PoseRight:   services.PoseFacingRight,
	models.PoseUp:      services.PoseFacingUp,
	models.PoseDown:    services.PoseFacingDown,
	models.PoseGlasses: services.PoseStraight,
}

type faceEnrollment struct {
	employeeID string
	staged     bool
	step       int
	holdTicks  int
	artifacts  []templatestore.FacePoseArtifact
}

type FaceServiceImpl struct {
	faceClient *faceapi.FaceClient
	faceRepo   repositories.FaceRepository
	store      *templatestore.Store
	cfg        config.BiometricConfig

	mu         sync.Mutex
	tracker    boxTracker
	enroll     *faceEnrollment
	terminated bool
}

func NewFaceService(
	faceClient *faceapi.FaceClient,
	faceRepo repositories.FaceRepository,
	store *templatestore.Store,
	cfg config.BiometricConfig,
) services.FaceService {
	return &FaceServiceImpl{
		faceClient: faceClient,
		faceRepo:   faceRepo,
		store:      store,
		cfg:        cfg,
		terminated: true,
	}
}

func (s *FaceServiceImpl) Initialize(ctx context.Context) error {
	if !s.faceClient.IsAvailable(ctx) {
		return fmt.Errorf("face analysis service unreachable")
	}

	s.mu.Lock()
	s.terminated = false
	s.tracker.Reset()
	s.mu.Unlock()

	logger.Face("initialize", "face engine initialized", nil)
	return nil
}

func (s *FaceServiceImpl) Terminate() {
	s.mu.Lock()
	s.terminated = true
	s.enroll = nil
	s.tracker.Reset()
	s.mu.Unlock()

	logger.Face("terminate", "face engine terminated", nil)
}

// ProcessFrame runs detection, head pose, box smoothing and fused-score
// recognition on one camera frame.
func (s *FaceServiceImpl) ProcessFrame(ctx context.Context, frame []byte) (*services.FrameResult, error) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil, services.ErrFaceEngineTerminated
	}
	s.mu.Unlock()

	resp, err := s.faceClient.AnalyzeFrame(ctx, frame, frameMimeType)
	if err != nil {
		return nil, fmt.Errorf("frame analysis failed: %w", err)
	}

	if len(resp.Faces) == 0 {
		s.mu.Lock()
		boxes := s.tracker.Update(nil)
		s.mu.Unlock()
		return &services.FrameResult{Boxes: boxes}, nil
	}

	face := largestFace(resp.Faces)
	pose := classifyPose(face.Yaw, face.Pitch)

	match, label := s.recognize(ctx, frame, face)

	box := services.TrackedBox{
		X:          face.BboxX,
		Y:          face.BboxY,
		W:          face.BboxWidth,
		H:          face.BboxHeight,
		EmployeeID: label,
	}

	s.mu.Lock()
	boxes := s.tracker.Update([]services.TrackedBox{box})
	s.mu.Unlock()

	return &services.FrameResult{Boxes: boxes, Pose: pose, Match: match}, nil
}

// recognize runs the 1:N search for one detected face. Returns a non-nil
// match only when the fused score clears the acceptance threshold; the label
// is returned separately so near-threshold candidates still tag the box.
func (s *FaceServiceImpl) recognize(ctx context.Context, frame []byte, face faceapi.DetectedFace) (*services.FaceMatch, string) {
	if len(face.Embedding) == 0 {
		return nil, ""
	}

	results, err := s.faceRepo.SearchSimilar(ctx, pgvector.NewVector(face.Embedding), searchLimit, searchCosineFloor)
	if err != nil {
		logger.FaceError("search", "embedding search failed", err, nil)
		return nil, ""
	}
	if len(results) == 0 {
		return nil, ""
	}

	probe, err := s.probeCrop(frame, face)
	if err != nil {
		logger.FaceError("crop", "failed to crop probe face", err, nil)
	}

	type candidate struct {
		cosine     float64
		imagePaths []string
	}
	byEmployee := make(map[string]*candidate)
	for _, r := range results {
		c, ok := byEmployee[r.EmployeeID]
		if !ok {
			c = &candidate{}
			byEmployee[r.EmployeeID] = c
		}
		// The index similarity only ranks retrieval; the score that feeds
		// acceptance is the exact cosine over the stored pose embeddings,
		// max per employee.
		if cos := cosineSimilarity(face.Embedding, r.Embedding.Slice()); cos > c.cosine {
			c.cosine = cos
		}
		c.imagePaths = append(c.imagePaths, r.ImagePath)
	}

	var best *services.FaceMatch
	for employeeID, c := range byEmployee {
		structural := 0.0
		if probe != nil {
			structural = s.bestStructural(probe, c.imagePaths)
		}
		fused := cosineWeight*c.cosine + structuralWeight*structural
		if best == nil || fused > best.Fused {
			best = &services.FaceMatch{
				EmployeeID: employeeID,
				Cosine:     c.cosine,
				Structural: structural,
				Fused:      fused,
			}
		}
	}

	if best == nil || best.Fused <= s.cfg.FaceCandidateScore {
		return nil, ""
	}
	if best.Fused < s.cfg.FaceAcceptScore {
		// Candidate region: tag the box but do not log in.
		return nil, best.EmployeeID
	}

	logger.Face("match", "face recognized", map[string]interface{}{
		"employee_id": best.EmployeeID,
		"cosine":      best.Cosine,
		"structural":  best.Structural,
		"fused":       best.Fused,
	})
	return best, best.EmployeeID
}

// bestStructural compares the probe crop against each stored reference crop
// for one employee and keeps the best SSIM. Unreadable references are skipped.
func (s *FaceServiceImpl) bestStructural(probe *image.Gray, imagePaths []string) float64 {
	best := 0.0
	for _, path := range imagePaths {
		data, err := s.store.LoadImage(path)
		if err != nil {
			continue
		}
		ref, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			continue
		}
		refGray := toGray(imaging.Resize(ref, cropSize, cropSize, imaging.Lanczos))
		if v := structuralSimilarity(probe, refGray); v > best {
			best = v
		}
	}
	return best
}

func (s *FaceServiceImpl) StartEnrollment(ctx context.Context, employeeID string, staged bool) error {
	if !s.faceClient.IsAvailable(ctx) {
		return fmt.Errorf("face analysis service unreachable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enroll != nil {
		return services.ErrEnrollmentActive
	}
	s.enroll = &faceEnrollment{employeeID: employeeID, staged: staged}

	logger.Enrollment("face_start", "six-pose capture armed", map[string]interface{}{
		"employee_id": employeeID,
		"staged":      staged,
	})
	return nil
}

// EnrollmentTick advances the six-pose capture loop by one camera frame. The
// required pose must hold for three consecutive ticks before the capture
// fires; losing the pose resets the countdown.
func (s *FaceServiceImpl) EnrollmentTick(ctx context.Context, frame []byte) (*services.EnrollmentTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.enroll
	if e == nil {
		return nil, services.ErrEnrollmentNotActive
	}

	requiredPose := models.EnrollmentPoses[e.step]
	tick := &services.EnrollmentTick{
		StepIndex:    e.step,
		RequiredPose: requiredPose,
	}

	resp, err := s.faceClient.AnalyzeFrame(ctx, frame, frameMimeType)
	if err != nil {
		e.holdTicks = 0
		return tick, nil
	}
	if len(resp.Faces) == 0 {
		e.holdTicks = 0
		return tick, nil
	}

	face := largestFace(resp.Faces)
	detected := classifyPose(face.Yaw, face.Pitch)
	tick.DetectedPose = detected

	if detected == enrollmentPoseLabels[requiredPose] && len(face.Embedding) > 0 {
		e.holdTicks++
	} else {
		e.holdTicks = 0
	}
	tick.HoldTicks = e.holdTicks

	if e.holdTicks < enrollHoldTicks {
		return tick, nil
	}

	crop, err := s.encodeCrop(frame, face)
	if err != nil {
		e.holdTicks = 0
		logger.EnrollmentError("face_capture", "failed to encode pose crop", err, map[string]interface{}{
			"employee_id": e.employeeID,
			"pose":        requiredPose,
		})
		return tick, nil
	}

	e.artifacts = append(e.artifacts, templatestore.FacePoseArtifact{
		Pose:      requiredPose,
		Embedding: face.Embedding,
		Image:     crop,
	})
	e.step++
	e.holdTicks = 0
	tick.Captured = true

	logger.Enrollment("face_capture", "pose captured", map[string]interface{}{
		"employee_id": e.employeeID,
		"pose":        requiredPose,
		"step":        e.step,
	})

	if e.step < len(models.EnrollmentPoses) {
		return tick, nil
	}

	var paths []string
	if e.staged {
		paths, err = s.store.StageFaceArtifacts(e.employeeID, e.artifacts)
	} else {
		paths, err = s.store.PutFaceArtifacts(e.employeeID, e.artifacts)
	}
	if err != nil {
		s.enroll = nil
		return nil, fmt.Errorf("failed to persist face artifacts: %w", err)
	}

	tick.Done = true
	tick.Paths = paths
	s.enroll = nil

	logger.Enrollment("face_done", "six-pose capture complete", map[string]interface{}{
		"employee_id": e.employeeID,
		"staged":      e.staged,
	})
	return tick, nil
}

func (s *FaceServiceImpl) CancelEnrollment(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enroll == nil {
		return services.ErrEnrollmentNotActive
	}
	logger.Enrollment("face_cancel", "six-pose capture cancelled", map[string]interface{}{
		"employee_id": s.enroll.employeeID,
	})
	s.enroll = nil
	return nil
}

func (s *FaceServiceImpl) EnrollmentActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enroll != nil
}

// probeCrop cuts the detected face out of the frame and returns it as a
// grayscale crop at the reference size.
func (s *FaceServiceImpl) probeCrop(frame []byte, face faceapi.DetectedFace) (*image.Gray, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	crop := imaging.Crop(img, faceRect(face))
	if crop.Bounds().Dx() == 0 || crop.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("face box outside frame")
	}
	return toGray(imaging.Resize(crop, cropSize, cropSize, imaging.Lanczos)), nil
}

// encodeCrop cuts and re-encodes the face region as the stored JPEG crop.
func (s *FaceServiceImpl) encodeCrop(frame []byte, face faceapi.DetectedFace) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	crop := imaging.Crop(img, faceRect(face))
	if crop.Bounds().Dx() == 0 || crop.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("face box outside frame")
	}
	resized := imaging.Resize(crop, cropSize, cropSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func faceRect(face faceapi.DetectedFace) image.Rectangle {
	return image.Rect(
		int(face.BboxX),
		int(face.BboxY),
		int(face.BboxX+face.BboxWidth),
		int(face.BboxY+face.BboxHeight),
	)
}

// largestFace picks the dominant detection when the frame carries several.
func largestFace(faces []faceapi.DetectedFace) faceapi.DetectedFace {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.BboxWidth*f.BboxHeight > best.BboxWidth*best.BboxHeight {
			best = f
		}
	}
	return best
}
