package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

type directoryReader interface {
	Names(ctx context.Context, kind models.DirectoryKind, ids []string) (map[string]string, error)
}

// nameResolver turns ids into display names for messages and views. Lookup failures degrade to ids.
type nameResolver struct {
	directory directoryReader
	logger    *zap.Logger
}

func (r nameResolver) resolve(ctx context.Context, kind models.DirectoryKind, ids []string) map[string]string {
	unique := uniqueIDs(ids)
	if r.directory == nil || len(unique) == 0 {
		return map[string]string{}
	}
	names, err := r.directory.Names(ctx, kind, unique)
	if err != nil {
		r.logger.Warn("directory lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return map[string]string{}
	}
	if names == nil {
		names = map[string]string{}
	}
	return names
}

func nameOr(names map[string]string, id string) string {
	if name := names[id]; name != "" {
		return name
	}
	return id
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// parseSlotInput canonicalises user input typed in tz.
func parseSlotInput(projector *TimezoneProjector, in dto.SlotInput, tz string) (models.WeeklySlot, error) {
	day, err := models.ParseWeekday(in.Day)
	if err != nil {
		return models.WeeklySlot{}, models.NewSchedulingError(models.KindInvalidSlot, err.Error())
	}
	start, err := models.ParseTimeOfDay(in.Start)
	if err != nil {
		return models.WeeklySlot{}, models.NewSchedulingError(models.KindInvalidSlot, err.Error())
	}
	end, err := models.ParseTimeOfDay(in.End)
	if err != nil {
		return models.WeeklySlot{}, models.NewSchedulingError(models.KindInvalidSlot, err.Error())
	}
	return projector.Canonicalize(day, start, end, tz)
}

// schedulingAppError maps an engine rejection onto the HTTP-aware error, keeping the rejection as details.
func schedulingAppError(err *models.SchedulingError) *appErrors.Error {
	base := appErrors.ErrValidation
	switch err.Kind {
	case models.KindInvalidSlot:
		base = appErrors.ErrInvalidSlot
	case models.KindTeacherConflict:
		base = appErrors.ErrTeacherConflict
	case models.KindParticipantConflict:
		base = appErrors.ErrParticipantConflict
	case models.KindCapacityExceeded:
		base = appErrors.ErrCapacityExceeded
	case models.KindIncompleteSchedule:
		base = appErrors.ErrIncompleteSchedule
	case models.KindUnknownTimezone:
		base = appErrors.ErrUnknownTimezone
	}
	return appErrors.WithDetails(appErrors.Wrap(err, base.Code, base.Status, err.Message), err)
}

// describeConflict rewrites a conflict rejection in terms of people and courses.
func describeConflict(ctx context.Context, resolver nameResolver, projector *TimezoneProjector, err *models.SchedulingError) *models.SchedulingError {
	if len(err.Conflicts) == 0 {
		return err
	}
	first := err.Conflicts[0]
	people := resolver.resolve(ctx, models.DirectoryUsers, []string{first.ParticipantID})
	courses := resolver.resolve(ctx, models.DirectoryCourses, []string{first.Existing.CourseID})
	who := nameOr(people, first.ParticipantID)
	course := nameOr(courses, first.Existing.CourseID)
	when := projector.ReferenceLabel(first.Existing.Slot)

	described := *err
	switch err.Kind {
	case models.KindTeacherConflict:
		described.Message = fmt.Sprintf("%s already teaches %s on %s", who, course, when)
	case models.KindParticipantConflict:
		described.Message = fmt.Sprintf("%s is already enrolled in %s on %s", who, course, when)
	}
	return &described
}

func asSchedulingError(err error) (*models.SchedulingError, bool) {
	var schedErr *models.SchedulingError
	if errors.As(err, &schedErr) {
		return schedErr, true
	}
	return nil, false
}
