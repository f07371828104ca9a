package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

type coursePreferenceRepository interface {
	ListByParticipant(ctx context.Context, participantID string) ([]models.CourseTimingPreference, error)
	ReplaceForCourse(ctx context.Context, participantID, courseID string, prefs []models.CourseTimingPreference) error
}

// CoursePreferenceService manages the weekly times a participant would like to take a course.
type CoursePreferenceService struct {
	repo      coursePreferenceRepository
	catalog   *SlotCatalog
	projector *TimezoneProjector
	metrics   *MetricsService
	names     nameResolver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCoursePreferenceService constructs the preference service.
func NewCoursePreferenceService(
	repo coursePreferenceRepository,
	directory directoryReader,
	catalog *SlotCatalog,
	projector *TimezoneProjector,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CoursePreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoursePreferenceService{
		repo:      repo,
		catalog:   catalog,
		projector: projector,
		metrics:   metrics,
		names:     nameResolver{directory: directory, logger: logger},
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every preference of the participant projected into tz.
func (s *CoursePreferenceService) List(ctx context.Context, participantID, tz string) ([]dto.PreferenceView, error) {
	prefs, err := s.repo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preferences")
	}
	return s.views(ctx, prefs, tz), nil
}

// Replace swaps the participant's preferences for one course. Slots are read in the request
// timezone, must be catalog slots, and may not overlap each other or the participant's other
// course preferences.
func (s *CoursePreferenceService) Replace(ctx context.Context, participantID, courseID string, req dto.PreferenceSlotsRequest) ([]dto.PreferenceView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	participantID = strings.TrimSpace(participantID)
	courseID = strings.TrimSpace(courseID)
	if participantID == "" || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "participant and course are required")
	}
	if len(req.Slots) > models.MaxPreferencesPerCourse {
		return nil, s.reject(models.NewSchedulingError(models.KindCapacityExceeded,
			fmt.Sprintf("at most %d timing preferences per course", models.MaxPreferencesPerCourse)))
	}

	slots := make([]models.WeeklySlot, 0, len(req.Slots))
	for _, in := range req.Slots {
		slot, err := parseSlotInput(s.projector, in, req.Timezone)
		if err != nil {
			return nil, s.reject(err)
		}
		if !s.catalog.IsValidSlot(slot) {
			return nil, s.reject(&models.SchedulingError{Kind: models.KindInvalidSlot, Message: fmt.Sprintf("%s is not a catalog slot", slot), Slot: &slot})
		}
		for _, other := range slots {
			if Overlaps(other, slot) {
				return nil, s.reject(&models.SchedulingError{Kind: models.KindInvalidSlot, Message: fmt.Sprintf("%s overlaps %s", slot, other), Slot: &slot})
			}
		}
		slots = append(slots, slot)
	}

	existing, err := s.repo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preferences")
	}
	for _, slot := range slots {
		for _, pref := range existing {
			if pref.CourseID == courseID || !Overlaps(pref.Slot, slot) {
				continue
			}
			courses := s.names.resolve(ctx, models.DirectoryCourses, []string{pref.CourseID})
			return nil, s.reject(&models.SchedulingError{
				Kind:    models.KindParticipantConflict,
				Message: fmt.Sprintf("%s overlaps the preference for %s on %s", slot, nameOr(courses, pref.CourseID), s.projector.ReferenceLabel(pref.Slot)),
				Slot:    &slot,
				Conflicts: []models.SlotConflict{{
					ParticipantID: participantID,
					Proposed:      slot,
					Existing:      models.Occupancy{Slot: pref.Slot, CourseID: pref.CourseID, Role: models.OccupancyRoleParticipant},
				}},
			})
		}
	}

	displayTZ := strings.TrimSpace(req.Timezone)
	if displayTZ == "" {
		displayTZ = s.projector.Reference()
	}
	now := s.now().UTC()
	prefs := make([]models.CourseTimingPreference, 0, len(slots))
	for _, slot := range slots {
		projection, _ := s.projector.Project(slot, displayTZ)
		pref := models.CourseTimingPreference{
			ID:              uuid.NewString(),
			ParticipantID:   participantID,
			CourseID:        courseID,
			Slot:            slot,
			DisplayTimezone: displayTZ,
			DisplayLabel:    projection.Label,
			CreatedAt:       now,
		}
		pref.SyncColumns()
		prefs = append(prefs, pref)
	}
	if err := s.repo.ReplaceForCourse(ctx, participantID, courseID, prefs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save preferences")
	}
	s.logger.Info("course preferences replaced",
		zap.String("participant_id", participantID),
		zap.String("course_id", courseID),
		zap.Int("count", len(prefs)),
	)
	return s.views(ctx, prefs, displayTZ), nil
}

func (s *CoursePreferenceService) reject(err error) error {
	schedErr, ok := asSchedulingError(err)
	if !ok {
		return err
	}
	s.metrics.RecordRejection(string(schedErr.Kind))
	return schedulingAppError(schedErr)
}

func (s *CoursePreferenceService) views(ctx context.Context, prefs []models.CourseTimingPreference, tz string) []dto.PreferenceView {
	courseIDs := make([]string, 0, len(prefs))
	for _, pref := range prefs {
		courseIDs = append(courseIDs, pref.CourseID)
	}
	courses := s.names.resolve(ctx, models.DirectoryCourses, courseIDs)

	views := make([]dto.PreferenceView, 0, len(prefs))
	for _, pref := range prefs {
		projection, err := s.projector.Project(pref.Slot, tz)
		if err != nil {
			s.metrics.RecordProjectionFallback()
		}
		views = append(views, dto.PreferenceView{CourseTimingPreference: pref, CourseName: courses[pref.CourseID], Projection: projection})
	}
	return views
}
