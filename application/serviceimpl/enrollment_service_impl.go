package serviceimpl

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/postgres"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/shift"
)

// HR hires get a fixed assignment; the role implies the desk.
const (
	hrDepartment = "Human Resources"
	hrPosition   = "HR Personnel"
)

const minEnrollmentAge = 18

var namePattern = regexp.MustCompile(`^[A-Za-z ]+$`)

// pendingEnrollment is the in-memory half of a session: demographics and
// artifact paths that must not touch the employee tables until commit.
type pendingEnrollment struct {
	demographics    services.Demographics
	fingerprintPath string
	facePaths       []string
}

type EnrollmentServiceImpl struct {
	validate        *validator.Validate
	employeeRepo    repositories.EmployeeRepository
	fingerprintRepo repositories.FingerprintRepository
	faceRepo        repositories.FaceRepository
	sessionRepo     repositories.EnrollmentSessionRepository
	settingsRepo    repositories.SettingsRepository
	fingerprintSvc  services.FingerprintService
	faceSvc         services.FaceService
	store           *templatestore.Store
	audit           services.AuditService

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingEnrollment
}

func NewEnrollmentService(
	employeeRepo repositories.EmployeeRepository,
	fingerprintRepo repositories.FingerprintRepository,
	faceRepo repositories.FaceRepository,
	sessionRepo repositories.EnrollmentSessionRepository,
	settingsRepo repositories.SettingsRepository,
	fingerprintSvc services.FingerprintService,
	faceSvc services.FaceService,
	store *templatestore.Store,
	audit services.AuditService,
) services.EnrollmentService {
	return &EnrollmentServiceImpl{
		validate:        validator.New(),
		employeeRepo:    employeeRepo,
		fingerprintRepo: fingerprintRepo,
		faceRepo:        faceRepo,
		sessionRepo:     sessionRepo,
		settingsRepo:    settingsRepo,
		fingerprintSvc:  fingerprintSvc,
		faceSvc:         faceSvc,
		store:           store,
		audit:           audit,
		pending:         make(map[uuid.UUID]*pendingEnrollment),
	}
}

// Begin validates the demographics step and opens a new-enrollment session.
// Nothing is written to the employee tables until Commit.
func (s *EnrollmentServiceImpl) Begin(ctx context.Context, d services.Demographics) (*models.EnrollmentSession, error) {
	if d.IsHR {
		d.Department = hrDepartment
		d.Position = hrPosition
	}

	if err := s.validate.Struct(d); err != nil {
		return nil, fmt.Errorf("invalid demographics: %w", err)
	}
	if !namePattern.MatchString(d.FirstName) || !namePattern.MatchString(d.LastName) {
		return nil, fmt.Errorf("names may contain letters and spaces only")
	}

	birthday, err := time.Parse("2006-01-02", d.Birthday)
	if err != nil {
		return nil, fmt.Errorf("invalid birthday: %w", err)
	}
	if birthday.AddDate(minEnrollmentAge, 0, 0).After(time.Now()) {
		return nil, services.ErrUnderage
	}

	if _, err := shift.Parse(d.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", d.Schedule, err)
	}

	taken, err := s.employeeRepo.ExistsByID(ctx, d.EmployeeID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, services.ErrEmployeeIDTaken
	}
	taken, err = s.employeeRepo.ExistsByName(ctx, d.FirstName, d.LastName)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, services.ErrNameTaken
	}

	session := &models.EnrollmentSession{
		ID:         uuid.New(),
		EmployeeID: d.EmployeeID,
		Mode:       models.ModeNew,
		Step:       models.SessionStepFingerprint,
		Status:     models.SessionStatusActive,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pending[session.ID] = &pendingEnrollment{demographics: d}
	s.mu.Unlock()

	s.audit.Record(ctx, "enrollment started for "+d.EmployeeID)
	logger.Enrollment("begin", "session opened", map[string]interface{}{
		"session_id":  session.ID.String(),
		"employee_id": d.EmployeeID,
	})
	return session, nil
}

// EnrollFingerprint runs the engine's three-capture flow for the session.
// When the fingerprint modality is off the step completes as a no-op.
func (s *EnrollmentServiceImpl) EnrollFingerprint(ctx context.Context, sessionID uuid.UUID, onProgress func(capture, total int)) error {
	session, p, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.IsFingerprintOn {
		session.Step = models.SessionStepFace
		return s.sessionRepo.Update(ctx, session.ID, session)
	}

	// Enrollment needs exclusive ownership of the sensor. An open device
	// means the login screen's scan worker holds it and would race the
	// capture loop, so the step only takes the device from closed.
	if s.fingerprintSvc.State() != services.DeviceClosed {
		return services.ErrDeviceBusy
	}
	if err := s.fingerprintSvc.Open(ctx); err != nil {
		return err
	}
	defer s.fingerprintSvc.Close(ctx)

	path, err := s.fingerprintSvc.Enroll(ctx, session.EmployeeID, session.Mode == models.ModeReenroll, onProgress)
	if err != nil {
		return err
	}

	s.mu.Lock()
	p.fingerprintPath = path
	s.mu.Unlock()

	session.FingerprintDone = true
	session.Step = models.SessionStepFace
	if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
		return err
	}

	s.audit.Record(ctx, "fingerprint enrolled for "+session.EmployeeID)
	return nil
}

// FaceTick feeds one camera frame to the six-pose capture loop, arming it on
// the first frame. When the face modality is off the step completes at once.
func (s *EnrollmentServiceImpl) FaceTick(ctx context.Context, sessionID uuid.UUID, frame []byte) (*services.EnrollmentTick, error) {
	session, p, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsFaceOn {
		return &services.EnrollmentTick{Done: true}, nil
	}

	if !s.faceSvc.EnrollmentActive() {
		if err := s.faceSvc.StartEnrollment(ctx, session.EmployeeID, session.Mode == models.ModeReenroll); err != nil {
			return nil, err
		}
	}

	tick, err := s.faceSvc.EnrollmentTick(ctx, frame)
	if err != nil {
		return nil, err
	}

	if tick.Captured {
		session.PosesCaptured = tick.StepIndex + 1
		if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
			return nil, err
		}
	}
	if tick.Done {
		s.mu.Lock()
		p.facePaths = tick.Paths
		s.mu.Unlock()
		s.audit.Record(ctx, "face poses captured for "+session.EmployeeID)
	}
	return tick, nil
}

// Commit inserts the employee row and activates the artifacts captured in
// the earlier steps. A failed insert removes the orphaned artifact files.
func (s *EnrollmentServiceImpl) Commit(ctx context.Context, sessionID uuid.UUID) (*models.Employee, error) {
	session, p, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode != models.ModeNew {
		return nil, fmt.Errorf("session %s is a re-enrollment; use CommitReenrollment", sessionID)
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.IsFingerprintOn && p.fingerprintPath == "" {
		return nil, services.ErrIncompleteEnrollment
	}
	if settings.IsFaceOn && len(p.facePaths) == 0 {
		return nil, services.ErrIncompleteEnrollment
	}

	d := p.demographics
	birthday, _ := time.Parse("2006-01-02", d.Birthday)
	employee := &models.Employee{
		ID:            d.EmployeeID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		MiddleInitial: d.MiddleInitial,
		Birthday:      birthday,
		Gender:        d.Gender,
		Department:    d.Department,
		Position:      d.Position,
		Schedule:      d.Schedule,
		IsHR:          d.IsHR,
		Status:        models.StatusActive,
		// Seed credential for the password subsystem: uppercased surname,
		// hashed there on first use.
		PasswordHash:   strings.ToUpper(d.LastName),
		ProfilePicture: d.ProfilePicture,
		Email:          d.Email,
	}

	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		if cleanupErr := s.store.DeleteEmployeeArtifacts(session.EmployeeID); cleanupErr != nil {
			logger.EnrollmentError("commit", "orphan artifact cleanup failed", cleanupErr, map[string]interface{}{
				"employee_id": session.EmployeeID,
			})
		}
		return nil, err
	}

	if p.fingerprintPath != "" {
		if err := s.fingerprintRepo.Create(ctx, &models.Fingerprint{
			ID:           uuid.New(),
			EmployeeID:   employee.ID,
			TemplatePath: p.fingerprintPath,
		}); err != nil {
			return nil, err
		}
	}

	if len(p.facePaths) > 0 {
		artifacts, err := s.buildArtifactRows(employee.ID, p.facePaths)
		if err != nil {
			return nil, err
		}
		if err := s.faceRepo.CreateArtifacts(ctx, artifacts); err != nil {
			return nil, err
		}
		if err := s.faceRepo.SaveModel(ctx, &models.FaceModel{
			ID:            uuid.New(),
			EmployeeID:    employee.ID,
			TemplatePaths: models.JoinPaths(p.facePaths),
		}); err != nil {
			return nil, err
		}
	}

	session.Status = models.SessionStatusCommitted
	if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.audit.Record(ctx, "enrollment committed for "+employee.ID)
	logger.Enrollment("commit", "employee enrolled", map[string]interface{}{
		"employee_id": employee.ID,
	})
	return employee, nil
}

// Cancel aborts the session and removes any partial artifacts. New
// enrollments delete their live writes; re-enrollments drop the staging area
// and leave the live artifacts untouched.
func (s *EnrollmentServiceImpl) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	session, _, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}

	s.fingerprintSvc.CancelEnroll()
	if s.faceSvc.EnrollmentActive() {
		if err := s.faceSvc.CancelEnrollment(ctx); err != nil {
			logger.EnrollmentError("cancel", "face capture cancel failed", err, nil)
		}
	}

	if session.Mode == models.ModeReenroll {
		if err := s.store.DiscardStaged(session.EmployeeID); err != nil {
			return err
		}
	} else {
		if err := s.store.DeleteEmployeeArtifacts(session.EmployeeID); err != nil {
			return err
		}
	}

	session.Status = models.SessionStatusDiscarded
	if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.audit.Record(ctx, "enrollment cancelled for "+session.EmployeeID)
	return nil
}

// BeginReenrollment opens a staged session for an existing employee. The
// live artifact paths are recorded so a failed commit can be rolled back.
func (s *EnrollmentServiceImpl) BeginReenrollment(ctx context.Context, employeeID string) (*models.EnrollmentSession, error) {
	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, services.ErrEmployeeNotFound
		}
		return nil, err
	}

	if existing, err := s.sessionRepo.GetActiveByEmployee(ctx, employeeID); err == nil && existing != nil {
		return nil, fmt.Errorf("re-enrollment already in progress for %s", employeeID)
	}

	session := &models.EnrollmentSession{
		ID:         uuid.New(),
		EmployeeID: employee.ID,
		Mode:       models.ModeReenroll,
		Step:       models.SessionStepFingerprint,
		Status:     models.SessionStatusActive,
	}
	if fp, err := s.fingerprintRepo.GetByEmployee(ctx, employeeID); err == nil && fp != nil {
		session.OriginalFingerprintPath = fp.TemplatePath
	}
	if model, err := s.faceRepo.GetModel(ctx, employeeID); err == nil && model != nil {
		session.OriginalFacePaths = model.TemplatePaths
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pending[session.ID] = &pendingEnrollment{}
	s.mu.Unlock()

	s.audit.Record(ctx, "re-enrollment started for "+employeeID)
	return session, nil
}

// CommitReenrollment promotes the staged artifacts over the live ones and
// refreshes the database rows. The store handles the backup/promote/rollback
// dance; the rows are rebuilt from the promoted files.
func (s *EnrollmentServiceImpl) CommitReenrollment(ctx context.Context, sessionID uuid.UUID) error {
	session, p, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Mode != models.ModeReenroll {
		return fmt.Errorf("session %s is not a re-enrollment", sessionID)
	}
	if p.fingerprintPath == "" && len(p.facePaths) == 0 {
		return services.ErrIncompleteEnrollment
	}

	if err := s.store.CommitStaged(session.EmployeeID); err != nil {
		return err
	}

	if p.fingerprintPath != "" {
		livePath := s.store.FingerprintPath(session.EmployeeID)
		exists, err := s.fingerprintRepo.ExistsByEmployee(ctx, session.EmployeeID)
		if err != nil {
			return err
		}
		if exists {
			err = s.fingerprintRepo.UpdatePath(ctx, session.EmployeeID, livePath)
		} else {
			err = s.fingerprintRepo.Create(ctx, &models.Fingerprint{
				ID:           uuid.New(),
				EmployeeID:   session.EmployeeID,
				TemplatePath: livePath,
			})
		}
		if err != nil {
			return err
		}
	}

	if len(p.facePaths) > 0 {
		livePaths := make([]string, 0, 2*len(models.EnrollmentPoses))
		for _, pose := range models.EnrollmentPoses {
			npy, jpg := s.store.FacePaths(session.EmployeeID, pose)
			livePaths = append(livePaths, npy, jpg)
		}
		artifacts, err := s.buildArtifactRows(session.EmployeeID, livePaths)
		if err != nil {
			return err
		}
		if err := s.faceRepo.ReplaceArtifacts(ctx, session.EmployeeID, artifacts); err != nil {
			return err
		}
		if err := s.faceRepo.SaveModel(ctx, &models.FaceModel{
			ID:            uuid.New(),
			EmployeeID:    session.EmployeeID,
			TemplatePaths: models.JoinPaths(livePaths),
		}); err != nil {
			return err
		}
	}

	session.Status = models.SessionStatusCommitted
	if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.audit.Record(ctx, "re-enrollment committed for "+session.EmployeeID)
	return nil
}

// DiscardReenrollment drops the staging area; the live artifacts were never
// touched.
func (s *EnrollmentServiceImpl) DiscardReenrollment(ctx context.Context, sessionID uuid.UUID) error {
	session, _, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Mode != models.ModeReenroll {
		return fmt.Errorf("session %s is not a re-enrollment", sessionID)
	}

	if err := s.store.DiscardStaged(session.EmployeeID); err != nil {
		return err
	}

	session.Status = models.SessionStatusDiscarded
	if err := s.sessionRepo.Update(ctx, session.ID, session); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.audit.Record(ctx, "re-enrollment discarded for "+session.EmployeeID)
	return nil
}

func (s *EnrollmentServiceImpl) activeSession(ctx context.Context, sessionID uuid.UUID) (*models.EnrollmentSession, *pendingEnrollment, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, nil, services.ErrSessionNotFound
		}
		return nil, nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, nil, services.ErrSessionNotActive
	}

	s.mu.Lock()
	p, ok := s.pending[sessionID]
	s.mu.Unlock()
	if !ok {
		// The in-memory half did not survive a restart; the session cannot
		// be resumed.
		return nil, nil, services.ErrSessionNotFound
	}
	return session, p, nil
}

// buildArtifactRows turns stored npy/jpg pairs back into database rows, in
// enrollment pose order.
func (s *EnrollmentServiceImpl) buildArtifactRows(employeeID string, paths []string) ([]*models.FaceArtifact, error) {
	if len(paths) != 2*len(models.EnrollmentPoses) {
		return nil, fmt.Errorf("expected %d artifact paths, got %d", 2*len(models.EnrollmentPoses), len(paths))
	}
	artifacts := make([]*models.FaceArtifact, 0, len(models.EnrollmentPoses))
	for i, pose := range models.EnrollmentPoses {
		npyPath := paths[2*i]
		jpgPath := paths[2*i+1]
		embedding, err := s.store.LoadEmbedding(npyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load embedding for pose %s: %w", pose, err)
		}
		artifacts = append(artifacts, &models.FaceArtifact{
			ID:            uuid.New(),
			EmployeeID:    employeeID,
			Pose:          pose,
			Embedding:     pgvector.NewVector(embedding),
			EmbeddingPath: npyPath,
			ImagePath:     jpgPath,
		})
	}
	return artifacts, nil
}
