package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/events"
)

type batchRepository interface {
	ListAll(ctx context.Context) ([]models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Save(ctx context.Context, batch *models.Batch, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

// BatchServiceConfig governs edit sessions.
type BatchServiceConfig struct {
	DraftTTL time.Duration
}

// BatchService runs the scheduling engine against persisted batches. Every call loads a fresh
// snapshot, so no index outlives the request that built it.
type BatchService struct {
	batches   batchRepository
	drafts    DraftStore
	publisher events.Publisher
	catalog   *SlotCatalog
	projector *TimezoneProjector
	metrics   *MetricsService
	names     nameResolver
	validator *validator.Validate
	logger    *zap.Logger
	tracer    trace.Tracer
	cfg       BatchServiceConfig
	now       func() time.Time
}

// NewBatchService wires batch scheduling dependencies.
func NewBatchService(
	batches batchRepository,
	directory directoryReader,
	drafts DraftStore,
	publisher events.Publisher,
	catalog *SlotCatalog,
	projector *TimezoneProjector,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg BatchServiceConfig,
) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 2 * time.Hour
	}
	return &BatchService{
		batches:   batches,
		drafts:    drafts,
		publisher: publisher,
		catalog:   catalog,
		projector: projector,
		metrics:   metrics,
		names:     nameResolver{directory: directory, logger: logger},
		validator: validate,
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/batch-slot-api/internal/service"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Catalog lists offered slots, optionally for one day, projected into tz.
func (s *BatchService) Catalog(ctx context.Context, day, tz string) (*dto.CatalogResponse, error) {
	days := s.catalog.Days()
	if strings.TrimSpace(day) != "" {
		parsed, err := models.ParseWeekday(day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
		}
		days = []models.Weekday{parsed}
	}
	resp := &dto.CatalogResponse{Timezone: s.projector.Reference(), SlotDurationMinutes: s.catalog.SlotDuration()}
	for _, d := range days {
		entry := dto.CatalogDay{Day: d, Slots: []models.Projection{}}
		for _, rng := range s.catalog.ListSlots(d) {
			projection := s.project(models.WeeklySlot{Day: d, Range: rng}, tz)
			resp.Timezone = projection.Timezone
			entry.Slots = append(entry.Slots, projection)
		}
		resp.Days = append(resp.Days, entry)
	}
	return resp, nil
}

// ProjectSlot renders a canonical slot in tz. An unknown tz yields the fallback projection and the
// UNKNOWN_TIMEZONE error together.
func (s *BatchService) ProjectSlot(ctx context.Context, req dto.ProjectSlotRequest) (*models.Projection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid projection payload")
	}
	slot, err := parseSlotInput(s.projector, req.Slot, "")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	projection, err := s.projector.Project(slot, req.Timezone)
	if err != nil {
		s.metrics.RecordProjectionFallback()
		return &projection, s.fail(ctx, err)
	}
	return &projection, nil
}

// CheckAvailability reports whether a participant can take the given slots.
func (s *BatchService) CheckAvailability(ctx context.Context, req dto.AvailabilityCheckRequest) (*dto.AvailabilityCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	slots := make([]models.WeeklySlot, 0, len(req.Slots))
	for _, in := range req.Slots {
		slot, err := parseSlotInput(s.projector, in, req.Timezone)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		slots = append(slots, slot)
	}
	detector, err := s.detector(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := detector.CheckAll(req.ParticipantID, slots, req.ExcludeBatchID)
	if conflicts == nil {
		conflicts = []models.SlotConflict{}
	}
	return &dto.AvailabilityCheckResponse{
		ParticipantID: req.ParticipantID,
		Free:          len(conflicts) == 0,
		Slots:         slots,
		Conflicts:     conflicts,
	}, nil
}

// Occupancy lists every slot the participant holds, projected into tz.
func (s *BatchService) Occupancy(ctx context.Context, participantID, excludeBatchID, tz string) (*dto.OccupancyResponse, error) {
	detector, err := s.detector(ctx)
	if err != nil {
		return nil, err
	}
	occupied := detector.Index().OccupancyOf(participantID, excludeBatchID)
	courseIDs := make([]string, 0, len(occupied))
	for _, occ := range occupied {
		courseIDs = append(courseIDs, occ.CourseID)
	}
	courses := s.names.resolve(ctx, models.DirectoryCourses, courseIDs)

	resp := &dto.OccupancyResponse{ParticipantID: participantID, Timezone: s.projector.Reference(), Items: []dto.OccupancyItem{}}
	for _, occ := range occupied {
		projection := s.project(occ.Slot, tz)
		resp.Timezone = projection.Timezone
		resp.Items = append(resp.Items, dto.OccupancyItem{Occupancy: occ, CourseName: courses[occ.CourseID], Projection: projection})
	}
	return resp, nil
}

// ListBatches returns every persisted batch.
func (s *BatchService) ListBatches(ctx context.Context, tz string) ([]dto.BatchView, error) {
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.batchViews(ctx, snapshot.Batches, tz), nil
}

// GetBatch returns one persisted batch.
func (s *BatchService) GetBatch(ctx context.Context, id, tz string) (*dto.BatchView, error) {
	batch, err := s.findBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	views := s.batchViews(ctx, []models.Batch{*batch}, tz)
	return &views[0], nil
}

// DeleteBatch removes a batch with its assignments and enrolments.
func (s *BatchService) DeleteBatch(ctx context.Context, id string) error {
	batch, err := s.findBatch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.batches.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	s.logger.Info("batch deleted", zap.String("batch_id", id), zap.String("course_id", batch.CourseID))
	s.publish(ctx, events.TypeBatchDeleted, *batch)
	return nil
}

// StartDraft opens an edit session, either blank or seeded from a persisted batch.
func (s *BatchService) StartDraft(ctx context.Context, req dto.StartDraftRequest, actorID string) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	now := s.now().UTC()
	draft := &models.BatchDraft{
		ID:                       uuid.NewString(),
		AllowParticipantConflict: req.AllowParticipantConflict,
		CreatedBy:                actorID,
		CreatedAt:                now,
		ExpiresAt:                now.Add(s.cfg.DraftTTL),
	}

	if strings.TrimSpace(req.BatchID) != "" {
		existing, err := s.findBatch(ctx, req.BatchID)
		if err != nil {
			return nil, err
		}
		draft.Batch = *existing
		draft.BaseVersion = existing.Version
	} else {
		mode := models.BatchMode(req.Mode)
		if mode == "" {
			mode = models.BatchModeOnline
		}
		draft.Batch = models.Batch{
			ID:         uuid.NewString(),
			CourseID:   strings.TrimSpace(req.CourseID),
			TeacherID:  trimmedPtr(req.TeacherID),
			Mode:       mode,
			LocationID: trimmedPtr(req.LocationID),
		}
	}

	assembler := NewBatchAssembler(s.catalog, NewConflictDetector(NewAvailabilityIndex(models.BatchSnapshot{})), draft.Batch, nil, false)
	draft.Batch = assembler.Batch()
	draft.Days = assembler.Days()
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	s.logger.Info("batch draft started",
		zap.String("draft_id", draft.ID),
		zap.String("batch_id", draft.Batch.ID),
		zap.Int("base_version", draft.BaseVersion),
	)
	view := s.draftView(draft, assembler, "")
	return &view, nil
}

// GetDraft returns the current draft projected into tz.
func (s *BatchService) GetDraft(ctx context.Context, id, tz string) (*dto.DraftView, error) {
	draft, assembler, err := s.openDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.draftView(draft, assembler, tz)
	return &view, nil
}

// DiscardDraft abandons an edit session.
func (s *BatchService) DiscardDraft(ctx context.Context, id string) error {
	if _, err := s.drafts.Get(ctx, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}

// SelectDay adds a weekday to the draft.
func (s *BatchService) SelectDay(ctx context.Context, id string, req dto.SelectDayRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day payload")
	}
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
	}
	return s.mutate(ctx, id, "select_day", func(a *BatchAssembler) error { return a.SelectDay(day) })
}

// DeselectDay removes a weekday and its slot from the draft.
func (s *BatchService) DeselectDay(ctx context.Context, id, rawDay string) (*dto.DraftView, error) {
	day, err := models.ParseWeekday(rawDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
	}
	return s.mutate(ctx, id, "deselect_day", func(a *BatchAssembler) error { return a.DeselectDay(day) })
}

// SelectSlot chooses the time for a weekday. When a timezone is given, the day and times are read
// in that zone and canonicalised first.
func (s *BatchService) SelectSlot(ctx context.Context, id, rawDay string, req dto.SelectSlotRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := parseSlotInput(s.projector, dto.SlotInput{Day: rawDay, Start: req.Start, End: req.End}, req.Timezone)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.mutate(ctx, id, "select_slot", func(a *BatchAssembler) error { return a.SelectSlot(slot.Day, slot.Range) })
}

// SetTeacher assigns or clears the draft's teacher.
func (s *BatchService) SetTeacher(ctx context.Context, id string, req dto.SetTeacherRequest) (*dto.DraftView, error) {
	return s.mutate(ctx, id, "set_teacher", func(a *BatchAssembler) error { return a.SetTeacher(req.TeacherID) })
}

// AssignParticipants enrols participants. Without OnlyAvailable the request is all-or-nothing.
func (s *BatchService) AssignParticipants(ctx context.Context, id string, req dto.AssignParticipantsRequest) (*dto.AssignParticipantsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participants payload")
	}
	resp := &dto.AssignParticipantsResponse{Added: []string{}}
	view, err := s.mutateWith(ctx, id, "assign_participants", func(draft *models.BatchDraft, a *BatchAssembler) error {
		if req.OnlyAvailable {
			added, skipped, err := a.AssignAvailable(req.ParticipantIDs)
			if err != nil {
				return err
			}
			resp.Added = append(resp.Added, added...)
			resp.Skipped = skipped
			return nil
		}
		allow := draft.AllowParticipantConflict
		if req.AllowConflict != nil {
			allow = *req.AllowConflict
		}
		for _, pid := range uniqueInOrder(req.ParticipantIDs) {
			warnings, err := a.AssignParticipant(pid, allow)
			if err != nil {
				return err
			}
			resp.Added = append(resp.Added, pid)
			resp.Warnings = append(resp.Warnings, warnings...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Skipped) > 0 {
		ids := make([]string, 0, len(resp.Skipped))
		for _, item := range resp.Skipped {
			ids = append(ids, item.ParticipantID)
		}
		people := s.names.resolve(ctx, models.DirectoryUsers, ids)
		for i := range resp.Skipped {
			resp.Skipped[i].Name = people[resp.Skipped[i].ParticipantID]
		}
	}
	resp.Draft = *view
	return resp, nil
}

// RemoveParticipant drops an enrolment from the draft.
func (s *BatchService) RemoveParticipant(ctx context.Context, id, participantID string) (*dto.DraftView, error) {
	return s.mutate(ctx, id, "remove_participant", func(a *BatchAssembler) error { return a.RemoveParticipant(participantID) })
}

// ParticipantAvailability flags candidates who would be double-booked by the draft's slots.
func (s *BatchService) ParticipantAvailability(ctx context.Context, id string, req dto.ParticipantAvailabilityRequest) ([]models.ParticipantAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	_, assembler, err := s.openDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	result := assembler.ParticipantAvailability(req.ParticipantIDs)
	people := s.names.resolve(ctx, models.DirectoryUsers, req.ParticipantIDs)
	for i := range result {
		result[i].Name = people[result[i].ParticipantID]
	}
	return result, nil
}

// CommitDraft validates the draft against a fresh snapshot and persists it with a version check.
func (s *BatchService) CommitDraft(ctx context.Context, id string) (*dto.BatchView, error) {
	ctx, span := s.tracer.Start(ctx, "BatchService.CommitDraft", trace.WithAttributes(attribute.String("draft.id", id)))
	defer span.End()

	draft, assembler, err := s.openDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	batch, err := assembler.Commit()
	if err != nil {
		s.metrics.RecordCommit("rejected")
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(ctx, err)
	}

	if err := s.batches.Save(ctx, &batch, draft.BaseVersion); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save batch")
		if errors.Is(err, models.ErrBatchVersionConflict) {
			s.metrics.RecordCommit("stale")
			return nil, appErrors.Clone(appErrors.ErrConflict, "batch was modified by someone else; start a new draft")
		}
		s.metrics.RecordCommit("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save batch")
	}
	s.metrics.RecordCommit("committed")
	span.SetAttributes(attribute.String("batch.id", batch.ID), attribute.Int("batch.version", batch.Version))

	if err := s.drafts.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to drop committed draft", zap.String("draft_id", id), zap.Error(err))
	}
	s.logger.Info("batch committed",
		zap.String("batch_id", batch.ID),
		zap.String("course_id", batch.CourseID),
		zap.Int("version", batch.Version),
		zap.Int("participants", len(batch.ParticipantIDs)),
	)
	s.publish(ctx, events.TypeBatchCommitted, batch)

	views := s.batchViews(ctx, []models.Batch{batch}, "")
	return &views[0], nil
}

func (s *BatchService) mutate(ctx context.Context, id, operation string, fn func(*BatchAssembler) error) (*dto.DraftView, error) {
	return s.mutateWith(ctx, id, operation, func(_ *models.BatchDraft, a *BatchAssembler) error { return fn(a) })
}

// mutateWith replays the draft over a fresh snapshot, applies fn and saves the result. A rejected
// operation leaves the stored draft untouched.
func (s *BatchService) mutateWith(ctx context.Context, id, operation string, fn func(*models.BatchDraft, *BatchAssembler) error) (*dto.DraftView, error) {
	draft, assembler, err := s.openDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(draft, assembler); err != nil {
		return nil, s.fail(ctx, err)
	}
	draft.Batch = assembler.Batch()
	draft.Days = assembler.Days()
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	s.logger.Debug("batch draft updated",
		zap.String("draft_id", id),
		zap.String("operation", operation),
		zap.String("state", string(assembler.State())),
	)
	view := s.draftView(draft, assembler, "")
	return &view, nil
}

func (s *BatchService) openDraft(ctx context.Context, id string) (*models.BatchDraft, *BatchAssembler, error) {
	draft, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	detector, err := s.detector(ctx)
	if err != nil {
		return nil, nil, err
	}
	return draft, NewBatchAssembler(s.catalog, detector, draft.Batch, draft.Days, draft.Committed), nil
}

func (s *BatchService) detector(ctx context.Context) (*ConflictDetector, error) {
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return NewConflictDetector(NewAvailabilityIndex(snapshot)), nil
}

func (s *BatchService) loadSnapshot(ctx context.Context) (models.BatchSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "BatchService.loadSnapshot")
	defer span.End()

	start := time.Now()
	batches, err := s.batches.ListAll(ctx)
	s.metrics.ObserveDBQuery("batch_snapshot", time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list batches")
		return models.BatchSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}
	span.SetAttributes(attribute.Int("batch.count", len(batches)))
	return models.BatchSnapshot{Batches: batches, TakenAt: s.now().UTC()}, nil
}

func (s *BatchService) findBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch batch")
	}
	return batch, nil
}

// fail converts engine rejections into API errors and counts them; other errors pass through.
func (s *BatchService) fail(ctx context.Context, err error) error {
	schedErr, ok := asSchedulingError(err)
	if !ok {
		return err
	}
	s.metrics.RecordRejection(string(schedErr.Kind))
	return schedulingAppError(describeConflict(ctx, s.names, s.projector, schedErr))
}

func (s *BatchService) project(slot models.WeeklySlot, tz string) models.Projection {
	projection, err := s.projector.Project(slot, tz)
	if err != nil {
		s.metrics.RecordProjectionFallback()
		s.logger.Debug("projection fell back to reference timezone", zap.String("timezone", tz), zap.Error(err))
	}
	return projection
}

func (s *BatchService) publish(ctx context.Context, eventType string, batch models.Batch) {
	event := events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: batch.ID,
		OccurredAt:  s.now().UTC(),
		Payload:     batch,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish batch event", zap.String("type", eventType), zap.String("batch_id", batch.ID), zap.Error(err))
	}
}

func (s *BatchService) draftView(draft *models.BatchDraft, assembler *BatchAssembler, tz string) dto.DraftView {
	days := assembler.Days()
	view := dto.DraftView{
		ID:                       draft.ID,
		State:                    assembler.State(),
		DayCount:                 len(days),
		BaseVersion:              draft.BaseVersion,
		AllowParticipantConflict: draft.AllowParticipantConflict,
		Batch:                    assembler.Batch(),
		Days:                     make([]dto.DraftDay, 0, len(days)),
		ExpiresAt:                draft.ExpiresAt,
	}
	for _, choice := range days {
		item := dto.DraftDay{Day: choice.Day, Range: choice.Range}
		if choice.Range != nil {
			projection := s.project(models.WeeklySlot{Day: choice.Day, Range: *choice.Range}, tz)
			item.Projection = &projection
		}
		view.Days = append(view.Days, item)
	}
	return view
}

func (s *BatchService) batchViews(ctx context.Context, batches []models.Batch, tz string) []dto.BatchView {
	courseIDs := make([]string, 0, len(batches))
	teacherIDs := make([]string, 0, len(batches))
	for _, b := range batches {
		courseIDs = append(courseIDs, b.CourseID)
		if t := b.Teacher(); t != "" {
			teacherIDs = append(teacherIDs, t)
		}
	}
	courses := s.names.resolve(ctx, models.DirectoryCourses, courseIDs)
	teachers := s.names.resolve(ctx, models.DirectoryUsers, teacherIDs)

	views := make([]dto.BatchView, 0, len(batches))
	for _, b := range batches {
		view := dto.BatchView{Batch: b, CourseName: courses[b.CourseID], TeacherName: teachers[b.Teacher()], Schedule: []models.Projection{}}
		for _, slot := range b.Slots() {
			view.Schedule = append(view.Schedule, s.project(slot, tz))
		}
		views = append(views, view)
	}
	return views
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uniqueInOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
