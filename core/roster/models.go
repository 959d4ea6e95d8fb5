package roster

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Teacher roles
const (
	RoleTeacher    = "TEACHER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER-ADMIN"
)

var Roles = []string{RoleTeacher, RoleAdmin, RoleSuperAdmin}

var (
	// errors
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrClassExists     = errors.New("a class with this name already exists")
	ErrSubjectExists   = errors.New("a subject with this name already exists")
)

type Teacher struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	ArabicName   null.String `db:"arabic_name" json:"arabic_name"`
	Email        string      `db:"email" json:"email"`
	Username     string      `db:"username" json:"username"`
	Role         string      `db:"role" json:"role"`
	AcademicYear string      `db:"academic_year" json:"academic_year"`
	Signature    null.String `db:"signature" json:"signature,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

func (t *Teacher) IsAdmin() bool {
	return t.Role == RoleAdmin || t.Role == RoleSuperAdmin
}

// Class has a free-text grade label; header configs are keyed by it.
type Class struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Grade string `db:"grade" json:"grade"`
}

type Subject struct {
	ID         string      `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	ArabicName null.String `db:"arabic_name" json:"arabic_name"`
}

// ClassDetail is a class with its assigned subjects, for listing views.
type ClassDetail struct {
	Class
	Subjects []Subject `json:"subjects"`
}

type Student struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	ArabicName  null.String `db:"arabic_name" json:"arabic_name"`
	ClassID     string      `db:"class_id" json:"class_id"`
	DateOfBirth null.Time   `db:"date_of_birth" json:"date_of_birth"`
	Nationality null.String `db:"nationality" json:"nationality"`
	IqamaNo     null.String `db:"iqama_no" json:"iqama_no"`
	PassportNo  null.String `db:"passport_no" json:"passport_no"`
	Expenses    string      `db:"expenses" json:"expenses"`
	Username    null.String `db:"username" json:"username"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Name         string   `json:"name" validate:"required"`
	ArabicName   string   `json:"arabic_name"`
	Email        string   `json:"email" validate:"required,email"`
	Username     string   `json:"username" validate:"required"`
	Password     string   `json:"password" validate:"required"`
	Role         string   `json:"role" validate:"omitempty,role"`
	AcademicYear string   `json:"academic_year" validate:"required,academic_year"`
	Subjects     []string `json:"subjects" validate:"omitempty,dive,required"`
	Signature    string   `json:"signature"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.ArabicName = core.CleanString(nt.ArabicName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Role = core.CleanString(nt.Role)
	if nt.Role == "" {
		nt.Role = RoleTeacher
	}
	for i, s := range nt.Subjects {
		nt.Subjects[i] = core.CleanString(s)
	}
	return validate.Struct(nt)
}

// UpdateTeacher defines what may be modified on an existing Teacher.
type UpdateTeacher struct {
	Name         string `json:"name"`
	ArabicName   string `json:"arabic_name"`
	Email        string `json:"email" validate:"omitempty,email"`
	Role         string `json:"role" validate:"omitempty,role"`
	AcademicYear string `json:"academic_year" validate:"omitempty,academic_year"`
	Signature    string `json:"signature"`
}

func (ut_ *UpdateTeacher) Validate(orig Teacher, validate *validator.Validate) error {
	if name := core.CleanString(ut_.Name); name != "" {
		ut_.Name = name
	} else {
		ut_.Name = orig.Name
	}
	if email := core.CleanString(ut_.Email, true /* lower */); email != "" {
		ut_.Email = email
	} else {
		ut_.Email = orig.Email
	}
	if ut_.Role == "" {
		ut_.Role = orig.Role
	}
	if ut_.AcademicYear == "" {
		ut_.AcademicYear = orig.AcademicYear
	}
	return validate.Struct(ut_)
}

type NewClass struct {
	Name  string `json:"name" validate:"required"`
	Grade string `json:"grade"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	if nc.Grade == "" {
		nc.Grade = "1"
	}
	return validate.Struct(nc)
}

type NewSubject struct {
	Name       string `json:"name" validate:"required"`
	ArabicName string `json:"arabic_name" validate:"required"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ArabicName = core.CleanString(ns.ArabicName)
	return validate.Struct(ns)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name         string `json:"name" validate:"required"`
	ArabicName   string `json:"arabic_name"`
	ClassID      string `json:"class_id" validate:"required"`
	DateOfBirth  string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Nationality  string `json:"nationality"`
	IqamaNo      string `json:"iqama_no"`
	PassportNo   string `json:"passport_no"`
	Expenses     string `json:"expenses"`
	Username     string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ArabicName = core.CleanString(ns.ArabicName)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.DateOfBirth = CleanDate(ns.DateOfBirth)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	if ns.Expenses == "" {
		ns.Expenses = "paid"
	}
	return validate.Struct(ns)
}

// UpdateStudent defines what may be modified on an existing Student.
type UpdateStudent struct {
	Name        string `json:"name"`
	ArabicName  string `json:"arabic_name"`
	ClassID     string `json:"class_id"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Nationality string `json:"nationality"`
	IqamaNo     string `json:"iqama_no"`
	PassportNo  string `json:"passport_no"`
	Expenses    string `json:"expenses"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if us.ClassID == "" {
		us.ClassID = orig.ClassID
	}
	us.DateOfBirth = CleanDate(us.DateOfBirth)
	if us.Expenses == "" {
		us.Expenses = orig.Expenses
	}
	return validate.Struct(us)
}

// AssignSubjects assigns subjects to a class (upsert per pair).
type AssignSubjects struct {
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1,dive,required"`
}

func (as AssignSubjects) Validate(validate *validator.Validate) error { return validate.Struct(as) }

// TeacherSubject is one (teacher, subject) pair to assign to a class.
type TeacherSubject struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// AssignTeachers assigns teachers (with the subject they teach) to a class.
type AssignTeachers struct {
	Assignments []TeacherSubject `json:"assignments" validate:"required,min=1,dive"`
}

func (at AssignTeachers) Validate(validate *validator.Validate) error { return validate.Struct(at) }

// StudentFilter selects students; empty fields are ignored.
type StudentFilter struct {
	ClassID string `query:"class"`
	Search  string `query:"search"`
}

func (f *StudentFilter) Clean() {
	f.ClassID = core.CleanString(f.ClassID)
	f.Search = core.CleanString(f.Search)
}

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("role", roleValidation)
	core.RegisterCustomTranslation(validate, translator, "role", "unknown role")
}

func roleValidation(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, r := range Roles {
		if v == r {
			return true
		}
	}
	return false
}
