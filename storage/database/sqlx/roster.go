package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/roster"
)

type rosterRepository struct {
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository() *rosterRepository {
	return &rosterRepository{}
}

// trapNoRowsErr maps psql "no rows" err to a domain not-found err
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Teachers

const teacherCols = `id, name, arabic_name, email, username, role, academic_year, signature, created_at, updated_at`

func (repo rosterRepository) CreateTeacher(ctx context.Context, db core.DB, t roster.Teacher) (roster.Teacher, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO teachers (`+teacherCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Name, t.ArabicName, t.Email, t.Username, t.Role, t.AcademicYear, t.Signature, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return roster.Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return t, nil
}

func (repo rosterRepository) QueryTeachers(ctx context.Context, db core.DB) ([]roster.Teacher, error) {
	teachers := make([]roster.Teacher, 0)
	err := db.SelectContext(ctx, &teachers, `SELECT `+teacherCols+` FROM teachers ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	return teachers, nil
}

func (repo rosterRepository) GetTeacherByID(ctx context.Context, db core.DB, id string) (roster.Teacher, error) {
	var t roster.Teacher
	err := db.GetContext(ctx, &t, `SELECT `+teacherCols+` FROM teachers WHERE id = $1`, id)
	if err != nil {
		return roster.Teacher{}, trapNoRowsErr(err, roster.ErrTeacherNotFound, "getting teacher")
	}
	return t, nil
}

func (repo rosterRepository) GetTeacherByName(ctx context.Context, db core.DB, name string) (roster.Teacher, error) {
	var t roster.Teacher
	err := db.GetContext(ctx, &t,
		`SELECT `+teacherCols+` FROM teachers WHERE lower(trim(name)) = lower(trim($1))`, name)
	if err != nil {
		return roster.Teacher{}, trapNoRowsErr(err, roster.ErrTeacherNotFound, "getting teacher by name")
	}
	return t, nil
}

func (repo rosterRepository) UpdateTeacher(ctx context.Context, db core.DB, t roster.Teacher) (roster.Teacher, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE teachers
		 SET name = $2, arabic_name = $3, email = $4, role = $5, academic_year = $6, signature = $7, updated_at = $8
		 WHERE id = $1`,
		t.ID, t.Name, t.ArabicName, t.Email, t.Role, t.AcademicYear, t.Signature, t.UpdatedAt,
	)
	if err != nil {
		return roster.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	return t, nil
}

func (repo rosterRepository) DeleteTeacher(ctx context.Context, db core.DB, id string) error {
	// class_teachers rows cascade; marks keep a NULLed class_teacher_id
	res, err := db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrTeacherNotFound
	}
	return nil
}

func (repo rosterRepository) AddTeacherSubject(ctx context.Context, db core.DB, teacherID, subjectID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)
		 ON CONFLICT (teacher_id, subject_id) DO NOTHING`,
		teacherID, subjectID,
	)
	return errors.Wrap(err, "linking teacher subject")
}

// Classes

func (repo rosterRepository) CreateClass(ctx context.Context, db core.DB, c roster.Class) (roster.Class, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO classes (id, name, grade) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		c.ID, c.Name, c.Grade,
	)
	if err != nil {
		return roster.Class{}, errors.Wrap(err, "creating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Class{}, roster.ErrClassExists
	}
	return c, nil
}

func (repo rosterRepository) QueryClasses(ctx context.Context, db core.DB) ([]roster.Class, error) {
	classes := make([]roster.Class, 0)
	err := db.SelectContext(ctx, &classes, `SELECT id, name, grade FROM classes ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo rosterRepository) GetClassByID(ctx context.Context, db core.DB, id string) (roster.Class, error) {
	var c roster.Class
	err := db.GetContext(ctx, &c, `SELECT id, name, grade FROM classes WHERE id = $1`, id)
	if err != nil {
		return roster.Class{}, trapNoRowsErr(err, roster.ErrClassNotFound, "getting class")
	}
	return c, nil
}

func (repo rosterRepository) GetClassByName(ctx context.Context, db core.DB, name string) (roster.Class, error) {
	var c roster.Class
	err := db.GetContext(ctx, &c,
		`SELECT id, name, grade FROM classes WHERE lower(trim(name)) = lower(trim($1))`, name)
	if err != nil {
		return roster.Class{}, trapNoRowsErr(err, roster.ErrClassNotFound, "getting class by name")
	}
	return c, nil
}

func (repo rosterRepository) DeleteClass(ctx context.Context, db core.DB, id string) error {
	// students and their marks cascade
	res, err := db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrClassNotFound
	}
	return nil
}

// Subjects

func (repo rosterRepository) CreateSubject(ctx context.Context, db core.DB, s roster.Subject) (roster.Subject, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO subjects (id, name, arabic_name) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		s.ID, s.Name, s.ArabicName,
	)
	if err != nil {
		return roster.Subject{}, errors.Wrap(err, "creating subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Subject{}, roster.ErrSubjectExists
	}
	return s, nil
}

func (repo rosterRepository) QuerySubjects(ctx context.Context, db core.DB) ([]roster.Subject, error) {
	subjects := make([]roster.Subject, 0)
	err := db.SelectContext(ctx, &subjects, `SELECT id, name, arabic_name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo rosterRepository) UpsertSubjectByName(ctx context.Context, db core.DB, s roster.Subject) (roster.Subject, error) {
	// DO UPDATE makes RETURNING yield the existing row on conflict
	row := db.QueryRowxContext(ctx,
		`INSERT INTO subjects (id, name, arabic_name) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, arabic_name`,
		s.ID, s.Name, s.ArabicName,
	)
	var out roster.Subject
	if err := row.StructScan(&out); err != nil {
		return roster.Subject{}, errors.Wrap(err, "upserting subject")
	}
	return out, nil
}

// Assignments

func (repo rosterRepository) UpsertClassSubject(ctx context.Context, db core.DB, classID, subjectID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2)
		 ON CONFLICT (class_id, subject_id) DO NOTHING`,
		classID, subjectID,
	)
	return errors.Wrap(err, "assigning subject to class")
}

func (repo rosterRepository) QueryClassSubjects(ctx context.Context, db core.DB, classID string) ([]roster.Subject, error) {
	subjects := make([]roster.Subject, 0)
	err := db.SelectContext(ctx, &subjects,
		`SELECT s.id, s.name, s.arabic_name
		 FROM subjects s
		 JOIN class_subjects cs ON cs.subject_id = s.id
		 WHERE cs.class_id = $1
		 ORDER BY s.name`,
		classID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying class subjects")
	}
	return subjects, nil
}

func (repo rosterRepository) UpsertClassTeacher(ctx context.Context, db core.DB, classID, teacherID, subjectID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO class_teachers (id, class_id, teacher_id, subject_id)
		 VALUES (gen_random_uuid(), $1, $2, $3)
		 ON CONFLICT (class_id, teacher_id, subject_id) DO NOTHING`,
		classID, teacherID, subjectID,
	)
	return errors.Wrap(err, "assigning teacher to class")
}

// Students

const studentCols = `id, name, arabic_name, class_id, date_of_birth, nationality, iqama_no, passport_no, expenses, username, created_at, updated_at`

func (repo rosterRepository) CreateStudent(ctx context.Context, db core.DB, s roster.Student) (roster.Student, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO students (`+studentCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Name, s.ArabicName, s.ClassID, s.DateOfBirth, s.Nationality,
		s.IqamaNo, s.PassportNo, s.Expenses, s.Username, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "creating student")
	}
	return s, nil
}

func (repo rosterRepository) FilterStudents(ctx context.Context, db core.DB, filter roster.StudentFilter) ([]roster.Student, error) {
	q := `SELECT ` + studentCols + ` FROM students WHERE true`
	args := make([]interface{}, 0, 2)
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		q += ` AND class_id = $1`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		if len(args) == 1 {
			q += ` AND (name ILIKE $1 OR arabic_name ILIKE $1)`
		} else {
			q += ` AND (name ILIKE $2 OR arabic_name ILIKE $2)`
		}
	}
	q += ` ORDER BY name`

	students := make([]roster.Student, 0)
	if err := db.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return students, nil
}

func (repo rosterRepository) GetStudentByID(ctx context.Context, db core.DB, id string) (roster.Student, error) {
	var s roster.Student
	err := db.GetContext(ctx, &s, `SELECT `+studentCols+` FROM students WHERE id = $1`, id)
	if err != nil {
		return roster.Student{}, trapNoRowsErr(err, roster.ErrStudentNotFound, "getting student")
	}
	return s, nil
}

func (repo rosterRepository) UpdateStudent(ctx context.Context, db core.DB, s roster.Student) (roster.Student, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE students
		 SET name = $2, arabic_name = $3, class_id = $4, date_of_birth = $5, nationality = $6,
		     iqama_no = $7, passport_no = $8, expenses = $9, updated_at = $10
		 WHERE id = $1`,
		s.ID, s.Name, s.ArabicName, s.ClassID, s.DateOfBirth, s.Nationality,
		s.IqamaNo, s.PassportNo, s.Expenses, s.UpdatedAt,
	)
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	return s, nil
}

func (repo rosterRepository) DeleteStudent(ctx context.Context, db core.DB, id string) error {
	// marks cascade
	res, err := db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrStudentNotFound
	}
	return nil
}
