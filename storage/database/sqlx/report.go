package sqlxrepos

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/roster"
)

type reportRepository struct {
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository() *reportRepository {
	return &reportRepository{}
}

const reportCols = `id, student_id, subject_id, teacher_id, trimester, status, comment,
	recommendations, quiz_score, project_score, created_at, updated_at`

func (repo reportRepository) GetReportByKey(ctx context.Context, db core.DB, studentID, subjectID, teacherID, trimester string) (report.Report, error) {
	var r report.Report
	err := db.GetContext(ctx, &r,
		`SELECT `+reportCols+` FROM student_reports
		 WHERE student_id = $1 AND subject_id = $2 AND teacher_id = $3 AND trimester = $4`,
		studentID, subjectID, teacherID, trimester,
	)
	if err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound, "getting report")
	}
	return r, nil
}

func (repo reportRepository) CreateReport(ctx context.Context, db core.DB, r report.Report) (report.Report, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO student_reports (`+reportCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.StudentID, r.SubjectID, r.TeacherID, r.Trimester, r.Status, r.Comment,
		r.Recommendations, r.QuizScore, r.ProjectScore, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "creating report")
	}
	return r, nil
}

func (repo reportRepository) UpdateReport(ctx context.Context, db core.DB, r report.Report) (report.Report, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE student_reports
		 SET status = $2, comment = $3, recommendations = $4, quiz_score = $5, project_score = $6, updated_at = $7
		 WHERE id = $1`,
		r.ID, r.Status, r.Comment, r.Recommendations, r.QuizScore, r.ProjectScore, r.UpdatedAt,
	)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "updating report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return report.Report{}, report.ErrNotFound
	}
	return r, nil
}

func (repo reportRepository) FilterReports(ctx context.Context, db core.DB, filter report.Filter) ([]report.Report, error) {
	q := `SELECT ` + reportCols + ` FROM student_reports WHERE true`
	args := make([]interface{}, 0, 3)
	add := func(col, val string) {
		args = append(args, val)
		q += ` AND ` + col + ` = $` + strconv.Itoa(len(args))
	}
	if filter.StudentID != "" {
		add("student_id", filter.StudentID)
	}
	if filter.TeacherID != "" {
		add("teacher_id", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		add("subject_id", filter.SubjectID)
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		q += ` AND student_id IN (SELECT id FROM students WHERE class_id = $` + strconv.Itoa(len(args)) + `)`
	}
	if filter.Trimester != "" {
		add("trimester", filter.Trimester)
	}
	q += ` ORDER BY created_at`

	reports := make([]report.Report, 0)
	if err := db.SelectContext(ctx, &reports, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering reports")
	}
	return reports, nil
}

func (repo reportRepository) DeleteReport(ctx context.Context, db core.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM student_reports WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return report.ErrNotFound
	}
	return nil
}

func (repo reportRepository) GetSubjectIDByName(ctx context.Context, db core.DB, name string) (string, error) {
	var id string
	err := db.GetContext(ctx, &id,
		`SELECT id FROM subjects WHERE lower(trim(name)) = lower(trim($1))`, name)
	if err != nil {
		return "", trapNoRowsErr(err, roster.ErrSubjectNotFound, "getting subject by name")
	}
	return id, nil
}

func (repo reportRepository) GetTeacherIDByName(ctx context.Context, db core.DB, name string) (string, error) {
	var id string
	err := db.GetContext(ctx, &id,
		`SELECT id FROM teachers WHERE lower(trim(name)) = lower(trim($1))`, name)
	if err != nil {
		return "", trapNoRowsErr(err, roster.ErrTeacherNotFound, "getting teacher by name")
	}
	return id, nil
}
