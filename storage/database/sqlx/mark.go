package sqlxrepos

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
)

type markRepository struct {
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository() *markRepository {
	return &markRepository{}
}

const markCols = `id, student_id, subject_id, class_teacher_id, academic_year, trimester,
	participation, homework, quiz, project, exam, class_activities, memorizing, oral, reading,
	total_marks, created_at, updated_at`

func (repo markRepository) GetMark(ctx context.Context, db core.DB, id string) (mark.Mark, error) {
	var m mark.Mark
	err := db.GetContext(ctx, &m, `SELECT `+markCols+` FROM marks WHERE id = $1`, id)
	if err != nil {
		return mark.Mark{}, trapNoRowsErr(err, mark.ErrNotFound, "getting mark")
	}
	return m, nil
}

func (repo markRepository) UpdateMarkValues(ctx context.Context, db core.DB, m mark.Mark) (mark.Mark, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE marks
		 SET participation = $2, homework = $3, quiz = $4, project = $5, exam = $6,
		     class_activities = $7, memorizing = $8, oral = $9, reading = $10,
		     total_marks = $11, updated_at = $12
		 WHERE id = $1`,
		m.ID, m.Participation, m.Homework, m.Quiz, m.Project, m.Exam,
		m.ClassActivities, m.Memorizing, m.Oral, m.Reading,
		m.Total, m.UpdatedAt,
	)
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "updating mark")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mark.Mark{}, mark.ErrNotFound
	}
	return m, nil
}

func (repo markRepository) CreateMarks(ctx context.Context, db core.DB, marks []mark.Mark) (int, error) {
	created := 0
	for _, m := range marks {
		res, err := db.ExecContext(ctx,
			`INSERT INTO marks (`+markCols+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			 ON CONFLICT (student_id, subject_id, academic_year, trimester) DO NOTHING`,
			m.ID, m.StudentID, m.SubjectID, m.ClassTeacherID, m.AcademicYear, m.Trimester,
			m.Participation, m.Homework, m.Quiz, m.Project, m.Exam,
			m.ClassActivities, m.Memorizing, m.Oral, m.Reading,
			m.Total, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return created, errors.Wrap(err, "creating marks")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

func (repo markRepository) FilterMarks(ctx context.Context, db core.DB, filter mark.Filter) ([]mark.Mark, error) {
	q := `SELECT ` + markCols + ` FROM marks WHERE true`
	args := make([]interface{}, 0, 5)
	add := func(cond, val string) {
		args = append(args, val)
		q += ` AND ` + cond + ` = $` + strconv.Itoa(len(args))
	}
	if filter.StudentID != "" {
		add("student_id", filter.StudentID)
	}
	if filter.SubjectID != "" {
		add("subject_id", filter.SubjectID)
	}
	if filter.Trimester != "" {
		add("trimester", filter.Trimester)
	}
	if filter.AcademicYear != "" {
		add("academic_year", filter.AcademicYear)
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		q += ` AND student_id IN (SELECT id FROM students WHERE class_id = $` + strconv.Itoa(len(args)) + `)`
	}
	q += ` ORDER BY trimester, created_at`

	marks := make([]mark.Mark, 0)
	if err := db.SelectContext(ctx, &marks, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering marks")
	}
	return marks, nil
}

func (repo markRepository) QueryStudentMarks(ctx context.Context, db core.DB, studentID string) ([]mark.Row, error) {
	rows := make([]mark.Row, 0)
	err := db.SelectContext(ctx, &rows,
		`SELECT m.id, m.student_id, m.subject_id, m.class_teacher_id, m.academic_year, m.trimester,
		        m.participation, m.homework, m.quiz, m.project, m.exam,
		        m.class_activities, m.memorizing, m.oral, m.reading,
		        m.total_marks, m.created_at, m.updated_at,
		        s.name AS subject_name, s.arabic_name AS subject_arabic_name
		 FROM marks m
		 JOIN subjects s ON s.id = m.subject_id
		 WHERE m.student_id = $1
		 ORDER BY s.name, m.trimester`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying student marks")
	}
	return rows, nil
}

func (repo markRepository) GetStudentClassGrade(ctx context.Context, db core.DB, studentID string) (string, error) {
	var grade string
	err := db.GetContext(ctx, &grade,
		`SELECT c.grade FROM classes c JOIN students s ON s.class_id = c.id WHERE s.id = $1`,
		studentID,
	)
	if err != nil {
		return "", trapNoRowsErr(err, mark.ErrStudentNotFound, "getting student class grade")
	}
	return grade, nil
}

func (repo markRepository) QueryClassSubjectIDs(ctx context.Context, db core.DB, classID string) ([]string, error) {
	ids := make([]string, 0)
	err := db.SelectContext(ctx, &ids,
		`SELECT subject_id FROM class_subjects WHERE class_id = $1`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class subject ids")
	}
	return ids, nil
}

func (repo markRepository) QueryClassStudentIDs(ctx context.Context, db core.DB, classID string) ([]string, error) {
	ids := make([]string, 0)
	err := db.SelectContext(ctx, &ids,
		`SELECT id FROM students WHERE class_id = $1`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class student ids")
	}
	return ids, nil
}

func (repo markRepository) QueryTeacherAssignments(ctx context.Context, db core.DB) ([]mark.Assignment, error) {
	assignments := make([]mark.Assignment, 0)
	err := db.SelectContext(ctx, &assignments,
		`SELECT t.id   AS teacher_id,
		        t.name AS teacher_name,
		        t.arabic_name AS teacher_arabic_name,
		        c.id   AS class_id,
		        c.name AS class_name,
		        c.grade AS class_grade,
		        s.id   AS subject_id,
		        s.name AS subject_name
		 FROM class_teachers ct
		 JOIN teachers t ON t.id = ct.teacher_id
		 JOIN classes  c ON c.id = ct.class_id
		 JOIN subjects s ON s.id = ct.subject_id
		 WHERE t.role = 'TEACHER'
		 ORDER BY t.name, c.name, s.name`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	return assignments, nil
}

func (repo markRepository) GetHeaderConfig(ctx context.Context, db core.DB, subjectID, grade string) (mark.HeaderConfig, error) {
	var cfg mark.HeaderConfig
	err := db.GetContext(ctx, &cfg,
		`SELECT id, subject_id, grade, headers, max_values, created_at, updated_at
		 FROM mark_header_configs
		 WHERE subject_id = $1 AND grade = $2`,
		subjectID, grade,
	)
	if err != nil {
		return mark.HeaderConfig{}, trapNoRowsErr(err, mark.ErrConfigNotFound, "getting header config")
	}
	return cfg, nil
}

func (repo markRepository) UpsertHeaderConfig(ctx context.Context, db core.DB, cfg mark.HeaderConfig) (mark.HeaderConfig, error) {
	row := db.QueryRowxContext(ctx,
		`INSERT INTO mark_header_configs (id, subject_id, grade, headers, max_values, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (subject_id, grade) DO UPDATE
		 SET headers = EXCLUDED.headers, max_values = EXCLUDED.max_values, updated_at = EXCLUDED.updated_at
		 RETURNING id, subject_id, grade, headers, max_values, created_at, updated_at`,
		cfg.ID, cfg.SubjectID, cfg.Grade, cfg.Headers, cfg.MaxValues, cfg.CreatedAt, cfg.UpdatedAt,
	)
	var out mark.HeaderConfig
	if err := row.StructScan(&out); err != nil {
		return mark.HeaderConfig{}, errors.Wrap(err, "upserting header config")
	}
	return out, nil
}
