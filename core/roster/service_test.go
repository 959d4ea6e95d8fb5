package roster_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/roster"
	logsvc "github.com/trezcool/shule/services/logger"
)

func TestService_CreateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.seedClass(t, "5A", "5")

	s, err := f.svc.CreateStudent(ctx, nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      class.ID,
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		Expenses:     "paid",
		AcademicYear: academicYear,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.DateOfBirth.Valid)
	assert.True(t, f.accounts.Has(s.ID))

	// zeroed marks seeded for the class's one subject, all trimesters
	marks, err := f.markRepo.FilterMarks(ctx, nil, mark.Filter{StudentID: s.ID, AcademicYear: academicYear})
	assert.NoError(t, err)
	assert.Len(t, marks, 3)
}

func TestService_CreateStudent_unknownClass(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateStudent(context.Background(), nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      "nope",
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	assert.Equal(t, roster.ErrClassNotFound, err)
}

func TestService_CreateStudent_accountCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.seedClass(t, "5A", "5")
	f.accounts.FailCreate = assert.AnError

	_, err := f.svc.CreateStudent(ctx, nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      class.ID,
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	assert.Error(t, err)

	students, err := f.repo.FilterStudents(ctx, nil, roster.StudentFilter{})
	assert.NoError(t, err)
	assert.Empty(t, students)
}

func TestService_DeleteStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.seedClass(t, "5A", "5")

	s, err := f.svc.CreateStudent(ctx, nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      class.ID,
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	require.NoError(t, err)

	assert.NoError(t, f.svc.DeleteStudent(ctx, nil, s.ID))
	assert.False(t, f.accounts.Has(s.ID))
	_, err = f.svc.GetStudent(ctx, nil, s.ID)
	assert.Equal(t, roster.ErrStudentNotFound, err)

	// marks go with the student
	marks, err := f.markRepo.FilterMarks(ctx, nil, mark.Filter{StudentID: s.ID})
	assert.NoError(t, err)
	assert.Empty(t, marks)
}

func TestService_CreateTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	teacher, err := f.svc.CreateTeacher(ctx, nil, "alpha", roster.NewTeacher{
		Name:         "Mr. Kamau",
		Email:        "kamau@school.sa",
		Username:     "kamau",
		Password:     "secret",
		Role:         roster.RoleTeacher,
		AcademicYear: academicYear,
		Subjects:     []string{"Math", "Science"},
	})
	assert.NoError(t, err)
	assert.True(t, f.accounts.Has(teacher.ID))

	subjects, err := f.repo.QuerySubjects(ctx, nil)
	assert.NoError(t, err)
	assert.Len(t, subjects, 2)

	// subjects are upserted by name: a second teacher reuses them
	_, err = f.svc.CreateTeacher(ctx, nil, "alpha", roster.NewTeacher{
		Name:         "Ms. Noor",
		Email:        "noor@school.sa",
		Username:     "noor",
		Password:     "secret",
		Role:         roster.RoleTeacher,
		AcademicYear: academicYear,
		Subjects:     []string{"Math"},
	})
	assert.NoError(t, err)
	subjects, err = f.repo.QuerySubjects(ctx, nil)
	assert.NoError(t, err)
	assert.Len(t, subjects, 2)
}

func TestService_CreateTeacher_accountCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.accounts.FailCreate = assert.AnError

	_, err := f.svc.CreateTeacher(ctx, nil, "alpha", roster.NewTeacher{
		Name:         "Mr. Kamau",
		Email:        "kamau@school.sa",
		Username:     "kamau",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	assert.Error(t, err)

	teachers, err := f.svc.QueryTeachers(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, teachers)
}

func TestService_CreateTeacher_subjectLinkCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	svc := roster.NewService(failingLinkRepo{f.repo}, f.accounts, mark.NewService(f.markRepo), logger)

	_, err := svc.CreateTeacher(ctx, nil, "alpha", roster.NewTeacher{
		Name:         "Mr. Kamau",
		Email:        "kamau@school.sa",
		Username:     "kamau",
		Password:     "secret",
		AcademicYear: academicYear,
		Subjects:     []string{"Math"},
	})
	assert.Error(t, err)

	// the teacher row was compensated away; no account was provisioned
	teachers, err := f.svc.QueryTeachers(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, teachers)
	assert.Empty(t, f.accounts.Created())
}

func TestService_DeleteTeacher_keepsMarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.seedClass(t, "5A", "5")

	teacher, err := f.svc.CreateTeacher(ctx, nil, "alpha", roster.NewTeacher{
		Name:         "Mr. Kamau",
		Email:        "kamau@school.sa",
		Username:     "kamau",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	require.NoError(t, err)

	s, err := f.svc.CreateStudent(ctx, nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      class.ID,
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	require.NoError(t, err)

	assert.NoError(t, f.svc.DeleteTeacher(ctx, nil, teacher.ID))
	assert.False(t, f.accounts.Has(teacher.ID))
	_, err = f.svc.GetTeacher(ctx, nil, teacher.ID)
	assert.Equal(t, roster.ErrTeacherNotFound, err)

	// historical marks survive the teacher
	marks, err := f.markRepo.FilterMarks(ctx, nil, mark.Filter{StudentID: s.ID})
	assert.NoError(t, err)
	assert.Len(t, marks, 3)
}

func TestService_Classes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateClass(ctx, nil, roster.NewClass{Name: "5A", Grade: "5"})
	assert.NoError(t, err)

	// class names are unique
	_, err = f.svc.CreateClass(ctx, nil, roster.NewClass{Name: "5A", Grade: "5"})
	assert.Equal(t, roster.ErrClassExists, err)

	subj, err := f.svc.CreateSubject(ctx, nil, roster.NewSubject{Name: "Math", ArabicName: "رياضيات"})
	assert.NoError(t, err)
	_, err = f.svc.CreateSubject(ctx, nil, roster.NewSubject{Name: "Math", ArabicName: "رياضيات"})
	assert.Equal(t, roster.ErrSubjectExists, err)

	require.NoError(t, f.svc.AssignSubjects(ctx, nil, c.ID, roster.AssignSubjects{SubjectIDs: []string{subj.ID}}))

	details, err := f.svc.QueryClasses(ctx, nil)
	assert.NoError(t, err)
	if assert.Len(t, details, 1) {
		assert.Equal(t, "5A", details[0].Name)
		if assert.Len(t, details[0].Subjects, 1) {
			assert.Equal(t, "Math", details[0].Subjects[0].Name)
		}
	}

	assert.Equal(t, roster.ErrClassNotFound, f.svc.AssignSubjects(ctx, nil, "nope", roster.AssignSubjects{SubjectIDs: []string{subj.ID}}))
}

func TestService_DeleteClass_cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.seedClass(t, "5A", "5")

	s, err := f.svc.CreateStudent(ctx, nil, "alpha", roster.NewStudent{
		Name:         "Aya Hassan",
		ClassID:      class.ID,
		DateOfBirth:  "2015-04-12",
		Username:     "aya.hassan",
		Password:     "secret",
		AcademicYear: academicYear,
	})
	require.NoError(t, err)

	assert.NoError(t, f.svc.DeleteClass(ctx, nil, class.ID))
	assert.Equal(t, roster.ErrClassNotFound, f.svc.DeleteClass(ctx, nil, class.ID))

	_, err = f.svc.GetStudent(ctx, nil, s.ID)
	assert.Equal(t, roster.ErrStudentNotFound, err)
	marks, err := f.markRepo.FilterMarks(ctx, nil, mark.Filter{StudentID: s.ID})
	assert.NoError(t, err)
	assert.Empty(t, marks)
}

func TestService_FilterStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classA := f.seedClass(t, "5A", "5")

	classB, err := f.repo.CreateClass(ctx, nil, roster.Class{ID: uuid.NewString(), Name: "6B", Grade: "6"})
	require.NoError(t, err)

	seed := func(name, classID string) {
		_, err := f.repo.CreateStudent(ctx, nil, roster.Student{
			ID:         uuid.NewString(),
			Name:       name,
			ArabicName: null.StringFrom("آية"),
			ClassID:    classID,
		})
		require.NoError(t, err)
	}
	seed("Aya Hassan", classA.ID)
	seed("Bilal Omar", classB.ID)

	students, err := f.svc.FilterStudents(ctx, nil, roster.StudentFilter{ClassID: classA.ID})
	assert.NoError(t, err)
	if assert.Len(t, students, 1) {
		assert.Equal(t, "Aya Hassan", students[0].Name)
	}

	students, err = f.svc.FilterStudents(ctx, nil, roster.StudentFilter{Search: "bilal"})
	assert.NoError(t, err)
	assert.Len(t, students, 1)

	students, err = f.svc.FilterStudents(ctx, nil, roster.StudentFilter{})
	assert.NoError(t, err)
	assert.Len(t, students, 2)
}
