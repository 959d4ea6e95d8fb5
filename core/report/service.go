package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type (
	Repository interface {
		// GetReportByKey looks a report up by its natural key. Returns
		// ErrNotFound when no report exists for the key.
		GetReportByKey(ctx context.Context, db core.DB, studentID, subjectID, teacherID, trimester string) (Report, error)
		CreateReport(ctx context.Context, db core.DB, r Report) (Report, error)
		UpdateReport(ctx context.Context, db core.DB, r Report) (Report, error)
		FilterReports(ctx context.Context, db core.DB, filter Filter) ([]Report, error)
		DeleteReport(ctx context.Context, db core.DB, id string) error

		// narrow name lookups; authoring identifies teacher and subject
		// by display name
		GetSubjectIDByName(ctx context.Context, db core.DB, name string) (string, error)
		GetTeacherIDByName(ctx context.Context, db core.DB, name string) (string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save creates the report or, when one already exists for the same
// (student, subject, teacher, trimester), replaces its content in place.
func (svc *Service) Save(ctx context.Context, db core.DB, sr SaveReport) (Report, error) {
	subjectID, err := svc.repo.GetSubjectIDByName(ctx, db, sr.SubjectName)
	if err != nil {
		return Report{}, errors.Wrapf(err, "resolving subject %q", sr.SubjectName)
	}
	teacherID, err := svc.repo.GetTeacherIDByName(ctx, db, sr.TeacherName)
	if err != nil {
		return Report{}, errors.Wrapf(err, "resolving teacher %q", sr.TeacherName)
	}

	now := time.Now().UTC()
	r := Report{
		StudentID:       sr.StudentID,
		SubjectID:       subjectID,
		TeacherID:       teacherID,
		Trimester:       sr.Trimester,
		Status:          sr.Status,
		Comment:         null.NewString(sr.Comment, sr.Comment != ""),
		Recommendations: sr.Recommendations,
		QuizScore:       null.IntFromPtr(sr.QuizScore),
		ProjectScore:    null.IntFromPtr(sr.ProjectScore),
		UpdatedAt:       now,
	}

	orig, err := svc.repo.GetReportByKey(ctx, db, sr.StudentID, subjectID, teacherID, sr.Trimester)
	switch errors.Cause(err) {
	case nil:
		r.ID = orig.ID
		r.CreatedAt = orig.CreatedAt
		return svc.repo.UpdateReport(ctx, db, r)
	case ErrNotFound:
		r.ID = uuid.NewString()
		r.CreatedAt = now
		return svc.repo.CreateReport(ctx, db, r)
	default:
		return Report{}, err
	}
}

func (svc *Service) Filter(ctx context.Context, db core.DB, filter Filter) ([]Report, error) {
	filter.Clean()
	return svc.repo.FilterReports(ctx, db, filter)
}

func (svc *Service) Delete(ctx context.Context, db core.DB, id string) error {
	return svc.repo.DeleteReport(ctx, db, id)
}
