package mark

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Trimesters
const (
	TrimesterFirst  = "First Trimester"
	TrimesterSecond = "Second Trimester"
	TrimesterThird  = "Third Trimester"

	// PeriodYearly selects the ceiling-averaged yearly view in results queries.
	PeriodYearly = "Yearly Result"
)

var Trimesters = []string{TrimesterFirst, TrimesterSecond, TrimesterThird}

// Score headers. Which of these are active for a mark row is governed by the
// (subject, grade) HeaderConfig; subjects use different subsets.
const (
	HeaderParticipation   = "participation"
	HeaderHomework        = "homework"
	HeaderQuiz            = "quiz"
	HeaderProject         = "project"
	HeaderExam            = "exam"
	HeaderClassActivities = "classActivities"
	HeaderMemorizing      = "memorizing"
	HeaderOral            = "oral"
	HeaderReading         = "reading"
)

var (
	PossibleHeaders = []string{
		HeaderParticipation,
		HeaderHomework,
		HeaderQuiz,
		HeaderProject,
		HeaderExam,
		HeaderClassActivities,
		HeaderMemorizing,
		HeaderOral,
		HeaderReading,
	}

	// DefaultHeaders is the hardcoded fallback set used when no HeaderConfig
	// exists for a (subject, grade).
	DefaultHeaders = []string{HeaderParticipation, HeaderHomework, HeaderQuiz, HeaderExam}
)

var (
	ErrNotFound        = errors.New("mark not found")
	ErrConfigNotFound  = errors.New("mark header configuration not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrClassNotFound   = errors.New("class not found")
)

// Mark is one row of scores per (student, subject, academic year, trimester).
// Score fields are nullable: the completeness rules distinguish never-written
// fields from explicit zeros, and both read as "missing".
type Mark struct {
	ID             string      `db:"id" json:"id"`
	StudentID      string      `db:"student_id" json:"student_id"`
	SubjectID      string      `db:"subject_id" json:"subject_id"`
	ClassTeacherID null.String `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	AcademicYear   string      `db:"academic_year" json:"academic_year"`
	Trimester      string      `db:"trimester" json:"trimester"`

	Participation   null.Int `db:"participation" json:"participation"`
	Homework        null.Int `db:"homework" json:"homework"`
	Quiz            null.Int `db:"quiz" json:"quiz"`
	Project         null.Int `db:"project" json:"project"`
	Exam            null.Int `db:"exam" json:"exam"`
	ClassActivities null.Int `db:"class_activities" json:"classActivities"`
	Memorizing      null.Int `db:"memorizing" json:"memorizing"`
	Oral            null.Int `db:"oral" json:"oral"`
	Reading         null.Int `db:"reading" json:"reading"`

	Total null.Int `db:"total_marks" json:"total_marks"`

	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // UTC
}

// Value returns the score for a header name.
func (m *Mark) Value(header string) null.Int {
	switch header {
	case HeaderParticipation:
		return m.Participation
	case HeaderHomework:
		return m.Homework
	case HeaderQuiz:
		return m.Quiz
	case HeaderProject:
		return m.Project
	case HeaderExam:
		return m.Exam
	case HeaderClassActivities:
		return m.ClassActivities
	case HeaderMemorizing:
		return m.Memorizing
	case HeaderOral:
		return m.Oral
	case HeaderReading:
		return m.Reading
	}
	return null.Int{}
}

// SetValue sets the score for a header name.
func (m *Mark) SetValue(header string, v null.Int) {
	switch header {
	case HeaderParticipation:
		m.Participation = v
	case HeaderHomework:
		m.Homework = v
	case HeaderQuiz:
		m.Quiz = v
	case HeaderProject:
		m.Project = v
	case HeaderExam:
		m.Exam = v
	case HeaderClassActivities:
		m.ClassActivities = v
	case HeaderMemorizing:
		m.Memorizing = v
	case HeaderOral:
		m.Oral = v
	case HeaderReading:
		m.Reading = v
	}
}

// Zeroed returns a zero-scored mark row for the given tuple, as created by the
// bulk import and mark-generation flows.
func Zeroed(studentID, subjectID, academicYear, trimester string) Mark {
	m := Mark{
		StudentID:    studentID,
		SubjectID:    subjectID,
		AcademicYear: academicYear,
		Trimester:    trimester,
	}
	for _, h := range PossibleHeaders {
		m.SetValue(h, null.IntFrom(0))
	}
	m.Total = null.IntFrom(0)
	return m
}

// Row is a Mark joined with its subject for result views.
type Row struct {
	Mark
	SubjectName       string      `db:"subject_name" json:"subject_name"`
	SubjectArabicName null.String `db:"subject_arabic_name" json:"subject_arabic_name"`
}

type (
	// HeaderList and MaxValueMap are stored as JSON columns.
	HeaderList  []string
	MaxValueMap map[string]int

	// HeaderConfig defines, per (subject, grade), the ordered active header
	// set and each header's maximum value.
	HeaderConfig struct {
		ID        string      `db:"id" json:"id"`
		SubjectID string      `db:"subject_id" json:"subject_id"`
		Grade     string      `db:"grade" json:"grade"`
		Headers   HeaderList  `db:"headers" json:"headers"`
		MaxValues MaxValueMap `db:"max_values" json:"max_values"`
		CreatedAt time.Time   `db:"created_at" json:"created_at"` // UTC
		UpdatedAt time.Time   `db:"updated_at" json:"updated_at"` // UTC
	}
)

func (l HeaderList) Value() (driver.Value, error) { return json.Marshal(l) }

func (l *HeaderList) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("scanning HeaderList: unexpected type %T", src)
	}
	return json.Unmarshal(b, l)
}

func (m MaxValueMap) Value() (driver.Value, error) { return json.Marshal(m) }

func (m *MaxValueMap) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("scanning MaxValueMap: unexpected type %T", src)
	}
	return json.Unmarshal(b, m)
}

// NewHeaderConfig contains information needed to create or replace a HeaderConfig.
type NewHeaderConfig struct {
	SubjectID string         `json:"subject_id" validate:"required"`
	Grade     string         `json:"grade" validate:"required"`
	Headers   []string       `json:"headers" validate:"required,min=1,dive,header"`
	MaxValues map[string]int `json:"max_values" validate:"required"`
}

func (nc *NewHeaderConfig) Validate(validate *validator.Validate) error {
	nc.SubjectID = core.CleanString(nc.SubjectID)
	nc.Grade = core.CleanString(nc.Grade)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	for _, h := range nc.Headers {
		if max, ok := nc.MaxValues[h]; !ok || max <= 0 {
			return core.NewValidationError(nil, core.FieldError{
				Field: "max_values",
				Error: "a positive maximum is required for header " + h,
			})
		}
	}
	return nil
}

// Values is the full-row mark write payload: all nine possible fields,
// zero-defaulted. Saves overwrite every field (last write wins); partial
// patches are not supported, so clients must post the complete row.
type Values struct {
	Participation   int `json:"participation" validate:"min=0"`
	Homework        int `json:"homework" validate:"min=0"`
	Quiz            int `json:"quiz" validate:"min=0"`
	Project         int `json:"project" validate:"min=0"`
	Exam            int `json:"exam" validate:"min=0"`
	ClassActivities int `json:"classActivities" validate:"min=0"`
	Memorizing      int `json:"memorizing" validate:"min=0"`
	Oral            int `json:"oral" validate:"min=0"`
	Reading         int `json:"reading" validate:"min=0"`
}

func (v Values) Validate(validate *validator.Validate) error { return validate.Struct(v) }

func (v Values) value(header string) int {
	switch header {
	case HeaderParticipation:
		return v.Participation
	case HeaderHomework:
		return v.Homework
	case HeaderQuiz:
		return v.Quiz
	case HeaderProject:
		return v.Project
	case HeaderExam:
		return v.Exam
	case HeaderClassActivities:
		return v.ClassActivities
	case HeaderMemorizing:
		return v.Memorizing
	case HeaderOral:
		return v.Oral
	case HeaderReading:
		return v.Reading
	}
	return 0
}

// Filter selects mark rows; empty fields are ignored.
type Filter struct {
	StudentID    string `query:"student"`
	ClassID      string `query:"class"`
	SubjectID    string `query:"subject"`
	Trimester    string `query:"trimester"`
	AcademicYear string `query:"year"`
}

func (f *Filter) Clean() {
	f.StudentID = core.CleanString(f.StudentID)
	f.ClassID = core.CleanString(f.ClassID)
	f.SubjectID = core.CleanString(f.SubjectID)
	f.Trimester = core.CleanString(f.Trimester)
	f.AcademicYear = core.CleanString(f.AcademicYear)
}

// Assignment is the (teacher, class, subject) read model backing progress
// computation: one row per class-teacher-subject link.
type Assignment struct {
	TeacherID         string      `db:"teacher_id" json:"teacher_id"`
	TeacherName       string      `db:"teacher_name" json:"teacher_name"`
	TeacherArabicName null.String `db:"teacher_arabic_name" json:"teacher_arabic_name"`
	ClassID           string      `db:"class_id" json:"class_id"`
	ClassName         string      `db:"class_name" json:"class_name"`
	ClassGrade        string      `db:"class_grade" json:"class_grade"`
	SubjectID         string      `db:"subject_id" json:"subject_id"`
	SubjectName       string      `db:"subject_name" json:"subject_name"`
}

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("header", headerValidation)
	core.RegisterCustomTranslation(validate, translator, "header", "unknown mark header")

	_ = validate.RegisterValidation("trimester", trimesterValidation)
	core.RegisterCustomTranslation(validate, translator, "trimester", "unknown trimester")
}

func headerValidation(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, h := range PossibleHeaders {
		if v == h {
			return true
		}
	}
	return false
}

func trimesterValidation(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, t := range Trimesters {
		if v == t {
			return true
		}
	}
	return false
}
