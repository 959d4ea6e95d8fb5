package report

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

// Report statuses
const (
	StatusExcellent    = "Excellent"
	StatusGood         = "Good"
	StatusAverage      = "Average"
	StatusBelowAverage = "Below Average"
)

var Statuses = []string{StatusExcellent, StatusGood, StatusAverage, StatusBelowAverage}

var ErrNotFound = errors.New("report not found")

// Recommendations is the advisory list attached to a report, stored as JSON.
type Recommendations []string

var _ driver.Valuer = (Recommendations)(nil)

func (r Recommendations) Value() (driver.Value, error) {
	if r == nil {
		r = Recommendations{}
	}
	return json.Marshal(r)
}

func (r *Recommendations) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unsupported type %T for recommendations", src)
	}
	return json.Unmarshal(b, r)
}

// Report is a teacher's per-trimester assessment of a student in one subject.
// Its natural key is (student, subject, teacher, trimester): saving over an
// existing key replaces the assessment.
type Report struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	SubjectID       string          `db:"subject_id" json:"subject_id"`
	TeacherID       string          `db:"teacher_id" json:"teacher_id"`
	Trimester       string          `db:"trimester" json:"trimester"`
	Status          string          `db:"status" json:"status"`
	Comment         null.String     `db:"comment" json:"comment"`
	Recommendations Recommendations `db:"recommendations" json:"recommendations"`
	QuizScore       null.Int        `db:"quiz_score" json:"quiz_score"`
	ProjectScore    null.Int        `db:"project_score" json:"project_score"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"` // UTC
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"` // UTC
}

// SaveReport contains information needed to save a student report. Teacher
// and subject come in by display name; imported sheets and the authoring UI
// identify both that way.
type SaveReport struct {
	StudentID       string   `json:"student_id" validate:"required"`
	SubjectName     string   `json:"subject_name" validate:"required"`
	TeacherName     string   `json:"teacher_name" validate:"required"`
	Trimester       string   `json:"trimester" validate:"required,trimester"`
	Status          string   `json:"status" validate:"required,reportstatus"`
	Comment         string   `json:"comment"`
	Recommendations []string `json:"recommendations" validate:"omitempty,dive,required"`
	QuizScore       *int     `json:"quiz_score" validate:"omitempty,gte=0"`
	ProjectScore    *int     `json:"project_score" validate:"omitempty,gte=0"`
}

func (sr *SaveReport) Validate(validate *validator.Validate) error {
	sr.StudentID = core.CleanString(sr.StudentID)
	sr.SubjectName = core.CleanString(sr.SubjectName)
	sr.TeacherName = core.CleanString(sr.TeacherName)
	sr.Trimester = core.CleanString(sr.Trimester)
	sr.Status = core.CleanString(sr.Status)
	sr.Comment = core.CleanString(sr.Comment)
	for i, r := range sr.Recommendations {
		sr.Recommendations[i] = core.CleanString(r)
	}
	return validate.Struct(sr)
}

// Filter selects reports; empty fields are ignored.
type Filter struct {
	StudentID string `query:"student"`
	TeacherID string `query:"teacher"`
	ClassID   string `query:"class"`
	SubjectID string `query:"subject"`
	Trimester string `query:"trimester"`
}

func (f *Filter) Clean() {
	f.StudentID = core.CleanString(f.StudentID)
	f.TeacherID = core.CleanString(f.TeacherID)
	f.ClassID = core.CleanString(f.ClassID)
	f.SubjectID = core.CleanString(f.SubjectID)
	f.Trimester = core.CleanString(f.Trimester)
}

// InitValidators registers this package's custom validators. The trimester
// tag is registered by the mark package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("reportstatus", statusValidation)
	core.RegisterCustomTranslation(validate, translator, "reportstatus", "unknown report status")
}

func statusValidation(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, s := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}
