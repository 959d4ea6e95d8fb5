package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
)

type (
	Repository interface {
		// teachers
		CreateTeacher(ctx context.Context, db core.DB, t Teacher) (Teacher, error)
		QueryTeachers(ctx context.Context, db core.DB) ([]Teacher, error)
		GetTeacherByID(ctx context.Context, db core.DB, id string) (Teacher, error)
		GetTeacherByName(ctx context.Context, db core.DB, name string) (Teacher, error)
		UpdateTeacher(ctx context.Context, db core.DB, t Teacher) (Teacher, error)
		// DeleteTeacher removes the teacher and its assignment links;
		// historical marks are preserved.
		DeleteTeacher(ctx context.Context, db core.DB, id string) error
		// AddTeacherSubject links a teacher to a subject it teaches; reruns
		// are idempotent.
		AddTeacherSubject(ctx context.Context, db core.DB, teacherID, subjectID string) error

		// classes
		CreateClass(ctx context.Context, db core.DB, c Class) (Class, error)
		QueryClasses(ctx context.Context, db core.DB) ([]Class, error)
		GetClassByID(ctx context.Context, db core.DB, id string) (Class, error)
		// GetClassByName matches on the trimmed, lower-cased name.
		GetClassByName(ctx context.Context, db core.DB, name string) (Class, error)
		// DeleteClass cascades to its students, their marks and the class's
		// assignment links.
		DeleteClass(ctx context.Context, db core.DB, id string) error

		// subjects
		CreateSubject(ctx context.Context, db core.DB, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context, db core.DB) ([]Subject, error)
		// UpsertSubjectByName creates the subject if its natural key (name)
		// is new and returns the existing row otherwise.
		UpsertSubjectByName(ctx context.Context, db core.DB, s Subject) (Subject, error)

		// assignments (natural-key upserts; reruns are idempotent)
		UpsertClassSubject(ctx context.Context, db core.DB, classID, subjectID string) error
		QueryClassSubjects(ctx context.Context, db core.DB, classID string) ([]Subject, error)
		UpsertClassTeacher(ctx context.Context, db core.DB, classID, teacherID, subjectID string) error

		// students
		CreateStudent(ctx context.Context, db core.DB, s Student) (Student, error)
		FilterStudents(ctx context.Context, db core.DB, filter StudentFilter) ([]Student, error)
		GetStudentByID(ctx context.Context, db core.DB, id string) (Student, error)
		UpdateStudent(ctx context.Context, db core.DB, s Student) (Student, error)
		DeleteStudent(ctx context.Context, db core.DB, id string) error
	}

	Service struct {
		repo     Repository
		accounts core.AccountService
		marks    *mark.Service
		logger   core.Logger
	}
)

func NewService(repo Repository, accounts core.AccountService, marks *mark.Service, logger core.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, marks: marks, logger: logger}
}

// Teachers

// CreateTeacher creates the teacher row, links its subjects (upserting each by
// name) and provisions the identity-provider account. Account failure
// compensates with a delete of the just-created row: the external provider is
// not transactional with the local store.
func (svc *Service) CreateTeacher(ctx context.Context, db core.DB, tenant string, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		ID:           uuid.NewString(),
		Name:         nt.Name,
		ArabicName:   null.NewString(nt.ArabicName, nt.ArabicName != ""),
		Email:        nt.Email,
		Username:     nt.Username,
		Role:         nt.Role,
		AcademicYear: nt.AcademicYear,
		Signature:    null.NewString(nt.Signature, nt.Signature != ""),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t, err := svc.repo.CreateTeacher(ctx, db, t)
	if err != nil {
		return Teacher{}, err
	}

	for _, name := range nt.Subjects {
		subj, err := svc.repo.UpsertSubjectByName(ctx, db, Subject{
			ID:         uuid.NewString(),
			Name:       name,
			ArabicName: null.StringFrom(name),
		})
		if err == nil {
			err = svc.repo.AddTeacherSubject(ctx, db, t.ID, subj.ID)
		}
		if err != nil {
			if delErr := svc.repo.DeleteTeacher(ctx, db, t.ID); delErr != nil {
				svc.logger.Error(fmt.Sprintf("compensating teacher delete failed: %v", delErr), delErr)
			}
			return Teacher{}, errors.Wrapf(err, "linking subject %q", name)
		}
	}

	if err = svc.accounts.CreateAccount(ctx, core.Account{
		ExternalID: t.ID,
		Name:       t.Name,
		Username:   t.Username,
		Email:      t.Email,
		Password:   nt.Password,
		Role:       t.Role,
		School:     tenant,
	}); err != nil {
		if delErr := svc.repo.DeleteTeacher(ctx, db, t.ID); delErr != nil {
			svc.logger.Error(fmt.Sprintf("compensating teacher delete failed: %v", delErr), delErr)
		}
		return Teacher{}, errors.Wrap(err, "creating provider account")
	}
	return t, nil
}

func (svc *Service) QueryTeachers(ctx context.Context, db core.DB) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, db)
}

func (svc *Service) GetTeacher(ctx context.Context, db core.DB, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, db, id)
}

func (svc *Service) UpdateTeacher(ctx context.Context, db core.DB, id string, ut UpdateTeacher) (Teacher, error) {
	orig, err := svc.repo.GetTeacherByID(ctx, db, id)
	if err != nil {
		return Teacher{}, err
	}
	orig.Name = ut.Name
	if ut.ArabicName != "" {
		orig.ArabicName = null.StringFrom(ut.ArabicName)
	}
	orig.Email = ut.Email
	orig.Role = ut.Role
	orig.AcademicYear = ut.AcademicYear
	if ut.Signature != "" {
		orig.Signature = null.StringFrom(ut.Signature)
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, db, orig)
}

// DeleteTeacher removes the teacher and its assignment links; marks survive.
// The provider account is cleaned up best-effort.
func (svc *Service) DeleteTeacher(ctx context.Context, db core.DB, id string) error {
	if err := svc.repo.DeleteTeacher(ctx, db, id); err != nil {
		return err
	}
	if err := svc.accounts.DeleteAccount(ctx, id); err != nil {
		svc.logger.Warn(fmt.Sprintf("provider account cleanup failed for teacher %s: %v", id, err))
	}
	return nil
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, db core.DB, nc NewClass) (Class, error) {
	return svc.repo.CreateClass(ctx, db, Class{
		ID:    uuid.NewString(),
		Name:  nc.Name,
		Grade: nc.Grade,
	})
}

func (svc *Service) QueryClasses(ctx context.Context, db core.DB) ([]ClassDetail, error) {
	classes, err := svc.repo.QueryClasses(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]ClassDetail, 0, len(classes))
	for _, c := range classes {
		subjects, err := svc.repo.QueryClassSubjects(ctx, db, c.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "querying subjects of class %s", c.ID)
		}
		out = append(out, ClassDetail{Class: c, Subjects: subjects})
	}
	return out, nil
}

func (svc *Service) DeleteClass(ctx context.Context, db core.DB, id string) error {
	if _, err := svc.repo.GetClassByID(ctx, db, id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, db, id)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, db core.DB, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, db, Subject{
		ID:         uuid.NewString(),
		Name:       ns.Name,
		ArabicName: null.StringFrom(ns.ArabicName),
	})
}

func (svc *Service) QuerySubjects(ctx context.Context, db core.DB) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, db)
}

// Assignments

func (svc *Service) AssignSubjects(ctx context.Context, db core.DB, classID string, as AssignSubjects) error {
	if _, err := svc.repo.GetClassByID(ctx, db, classID); err != nil {
		return err
	}
	for _, subjectID := range as.SubjectIDs {
		if err := svc.repo.UpsertClassSubject(ctx, db, classID, subjectID); err != nil {
			return errors.Wrapf(err, "assigning subject %s", subjectID)
		}
	}
	return nil
}

func (svc *Service) AssignTeachers(ctx context.Context, db core.DB, classID string, at AssignTeachers) error {
	if _, err := svc.repo.GetClassByID(ctx, db, classID); err != nil {
		return err
	}
	for _, a := range at.Assignments {
		if err := svc.repo.UpsertClassTeacher(ctx, db, classID, a.TeacherID, a.SubjectID); err != nil {
			return errors.Wrapf(err, "assigning teacher %s for subject %s", a.TeacherID, a.SubjectID)
		}
	}
	return nil
}

// Students

// CreateStudent creates the student row, provisions the identity-provider
// account (compensating delete on failure) and seeds zeroed mark rows for
// every subject assigned to the class across the three trimesters.
func (svc *Service) CreateStudent(ctx context.Context, db core.DB, tenant string, ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetClassByID(ctx, db, ns.ClassID); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		ID:          uuid.NewString(),
		Name:        ns.Name,
		ArabicName:  null.NewString(ns.ArabicName, ns.ArabicName != ""),
		ClassID:     ns.ClassID,
		DateOfBirth: parseDate(ns.DateOfBirth),
		Nationality: null.NewString(ns.Nationality, ns.Nationality != ""),
		IqamaNo:     null.NewString(ns.IqamaNo, ns.IqamaNo != ""),
		PassportNo:  null.NewString(ns.PassportNo, ns.PassportNo != ""),
		Expenses:    ns.Expenses,
		Username:    null.NewString(ns.Username, ns.Username != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s, err := svc.repo.CreateStudent(ctx, db, s)
	if err != nil {
		return Student{}, err
	}

	if err = svc.accounts.CreateAccount(ctx, core.Account{
		ExternalID: s.ID,
		Name:       s.Name,
		Username:   ns.Username,
		Email:      ns.Username, // provider derives the address from the username
		Password:   ns.Password,
		Role:       "STUDENT",
		School:     tenant,
	}); err != nil {
		if delErr := svc.repo.DeleteStudent(ctx, db, s.ID); delErr != nil {
			svc.logger.Error(fmt.Sprintf("compensating student delete failed: %v", delErr), delErr)
		}
		return Student{}, errors.Wrap(err, "creating provider account")
	}

	if _, err = svc.marks.CreateForStudent(ctx, db, s.ID, s.ClassID, ns.AcademicYear); err != nil {
		return Student{}, errors.Wrap(err, "seeding marks")
	}
	return s, nil
}

func (svc *Service) FilterStudents(ctx context.Context, db core.DB, filter StudentFilter) ([]Student, error) {
	return svc.repo.FilterStudents(ctx, db, filter)
}

func (svc *Service) GetStudent(ctx context.Context, db core.DB, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, db, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, db core.DB, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudentByID(ctx, db, id)
	if err != nil {
		return Student{}, err
	}
	orig.Name = us.Name
	if us.ArabicName != "" {
		orig.ArabicName = null.StringFrom(us.ArabicName)
	}
	orig.ClassID = us.ClassID
	if us.DateOfBirth != "" {
		orig.DateOfBirth = parseDate(us.DateOfBirth)
	}
	if us.Nationality != "" {
		orig.Nationality = null.StringFrom(us.Nationality)
	}
	if us.IqamaNo != "" {
		orig.IqamaNo = null.StringFrom(us.IqamaNo)
	}
	if us.PassportNo != "" {
		orig.PassportNo = null.StringFrom(us.PassportNo)
	}
	orig.Expenses = us.Expenses
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, db, orig)
}

func (svc *Service) DeleteStudent(ctx context.Context, db core.DB, id string) error {
	if err := svc.repo.DeleteStudent(ctx, db, id); err != nil {
		return err
	}
	if err := svc.accounts.DeleteAccount(ctx, id); err != nil {
		svc.logger.Warn(fmt.Sprintf("provider account cleanup failed for student %s: %v", id, err))
	}
	return nil
}

func parseDate(s string) null.Time {
	if s == "" {
		return null.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}
