package roster_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/roster"
	dummyaccounts "github.com/trezcool/shule/services/accounts/dummy"
	logsvc "github.com/trezcool/shule/services/logger"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

const academicYear = "2025-2026"

type fixture struct {
	db       *dummydb.DB
	repo     roster.Repository
	markRepo mark.Repository
	accounts *dummyaccounts.Service
	svc      *roster.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		repo:     dummydb.NewRosterRepository(db),
		markRepo: dummydb.NewMarkRepository(db),
		accounts: dummyaccounts.NewService(),
	}
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	f.svc = roster.NewService(f.repo, f.accounts, mark.NewService(f.markRepo), logger)
	return f
}

// seedClass creates a class with one assigned subject so imported students get
// mark rows.
func (f *fixture) seedClass(t *testing.T, name, grade string) roster.Class {
	t.Helper()
	ctx := context.Background()

	c, err := f.repo.CreateClass(ctx, nil, roster.Class{ID: uuid.NewString(), Name: name, Grade: grade})
	require.NoError(t, err)
	s, err := f.repo.UpsertSubjectByName(ctx, nil, roster.Subject{ID: uuid.NewString(), Name: "Math " + grade})
	require.NoError(t, err)
	require.NoError(t, f.repo.UpsertClassSubject(ctx, nil, c.ID, s.ID))
	return c
}

func Test_CleanDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2015-04-12", "2015-04-12"},
		{" 2015-04-12 ", "2015-04-12"},
		{"2015‏-04‏-12", "2015-04-12"}, // RTL marks from Arabic sheets
		{"2015年-04-12", "2015-04-12"},
		{"12/04/2015", "12/04/2015"},
		{"abc2015-04-12xyz", "2015-04-12"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roster.CleanDate(tt.in), "in=%q", tt.in)
	}
}

func Test_ValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2015-04-12", true},
		{"2015-13-01", false}, // month out of range
		{"2015-02-30", false},
		{"12/04/2015", false},
		{"2015-4-12", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roster.ValidDate(tt.in), "in=%q", tt.in)
	}
}

func TestService_ImportStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedClass(t, "5A", "5")

	content := "name,className,dob,username,password\n" +
		"Aya Hassan,5A,2015-04-12,aya.hassan,secret1\n" +
		"Bilal Omar,5A,not-a-date,bilal.omar,secret2\n" +
		"Chidi Eze,5A,2015-09-30,chidi.eze,secret3\n"

	res, err := f.svc.ImportStudents(ctx, nil, "alpha", content, academicYear)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, res.Students, 2)
	assert.True(t, res.PartialFailure())
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 2, res.Errors[0].Row) // 1-indexed, header excluded
		assert.Contains(t, res.Errors[0].Message, "invalid date format")
	}

	// row 2's failure did not roll row 1 back
	students, err := f.repo.FilterStudents(ctx, nil, roster.StudentFilter{})
	assert.NoError(t, err)
	assert.Len(t, students, 2)

	// accounts provisioned and marks seeded for every created student
	for _, s := range res.Students {
		assert.True(t, f.accounts.Has(s.ID), s.Name)
		marks, err := f.markRepo.FilterMarks(ctx, nil, mark.Filter{StudentID: s.ID})
		assert.NoError(t, err)
		assert.Len(t, marks, 3) // one subject, three trimesters
	}
}

func TestService_ImportStudents_classResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedClass(t, "5A", "5")

	// class names match case-insensitively; unknown classes error per row
	content := "name,className,dob\n" +
		"Aya Hassan,5a,2015-04-12\n" +
		"Bilal Omar,9Z,2015-05-20\n" +
		",5A,2015-06-01\n"

	res, err := f.svc.ImportStudents(ctx, nil, "alpha", content, academicYear)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	if assert.Len(t, res.Errors, 2) {
		assert.Equal(t, 2, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Message, "class not found")
		assert.Equal(t, 3, res.Errors[1].Row)
		assert.Contains(t, res.Errors[1].Message, "missing required fields")
	}
}

func TestService_ImportStudents_accountCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedClass(t, "5A", "5")
	f.accounts.FailCreate = assert.AnError

	content := "name,className,dob\nAya Hassan,5A,2015-04-12\n"

	res, err := f.svc.ImportStudents(ctx, nil, "alpha", content, academicYear)
	assert.NoError(t, err)
	assert.Zero(t, res.Created)
	if assert.Len(t, res.Errors, 1) {
		assert.Contains(t, res.Errors[0].Message, "provider account")
	}

	// the created row was compensated away
	students, err := f.repo.FilterStudents(ctx, nil, roster.StudentFilter{})
	assert.NoError(t, err)
	assert.Empty(t, students)
	assert.Empty(t, f.accounts.Created())
}

func TestService_ImportStudents_noSubjectsAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// class exists but has no subjects: the student stays created, the row is
	// still flagged
	_, err := f.repo.CreateClass(ctx, nil, roster.Class{ID: uuid.NewString(), Name: "5A", Grade: "5"})
	require.NoError(t, err)

	content := "name,className,dob\nAya Hassan,5A,2015-04-12\n"

	res, err := f.svc.ImportStudents(ctx, nil, "alpha", content, academicYear)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	if assert.Len(t, res.Errors, 1) {
		assert.Contains(t, res.Errors[0].Message, "no subjects assigned")
	}
}

func TestService_ImportStudents_badInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ImportStudents(ctx, nil, "alpha", "", academicYear)
	assert.Error(t, err)

	_, err = f.svc.ImportStudents(ctx, nil, "alpha", "name,className,dob\n", "")
	assert.Error(t, err)

	// header-only file: nothing to do, nothing failed
	res, err := f.svc.ImportStudents(ctx, nil, "alpha", "name,className,dob\n", academicYear)
	assert.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.False(t, res.PartialFailure())
}

func TestService_ImportTeachers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := "name,email,academicYear,role,username,subjects,password\n" +
		"Mr. Kamau,kamau@school.sa,2025-2026,,kamau,\"Math, Science\",secret1\n" +
		"Ms. Noor,noor@school.sa,2025-2026,ADMIN,noor,Math,secret2\n" +
		",missing-name@school.sa,2025-2026,,x,,\n"

	res, err := f.svc.ImportTeachers(ctx, nil, "alpha", content)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, res.Teachers, 2)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 3, res.Errors[0].Row)
	}

	assert.Equal(t, roster.RoleTeacher, res.Teachers[0].Role) // empty role defaults
	assert.Equal(t, roster.RoleAdmin, res.Teachers[1].Role)
	for _, teacher := range res.Teachers {
		assert.True(t, f.accounts.Has(teacher.ID), teacher.Email)
	}

	// "Math" was upserted once across both rows
	subjects, err := f.repo.QuerySubjects(ctx, nil)
	assert.NoError(t, err)
	if assert.Len(t, subjects, 2) {
		assert.Equal(t, "Math", subjects[0].Name)
		assert.Equal(t, "Science", subjects[1].Name)
	}
}

func TestService_ImportTeachers_malformedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a bare quote makes row 2 unparseable; it is reported against its row and
	// the rows around it still go through
	content := "name,email,academicYear\n" +
		"Mr. Kamau,kamau@school.sa,2025-2026\n" +
		"bad\"row,broken@school.sa,2025-2026\n" +
		"Ms. Noor,noor@school.sa,2025-2026\n"

	res, err := f.svc.ImportTeachers(ctx, nil, "alpha", content)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, res.Teachers, 2)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 2, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Message, "malformed row")
	}

	teachers, err := f.repo.QueryTeachers(ctx, nil)
	assert.NoError(t, err)
	assert.Len(t, teachers, 2)
}

func TestService_ImportStudents_malformedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedClass(t, "5A", "5")

	content := "name,className,dob\n" +
		"Aya Hassan,5A,2015-04-12\n" +
		"bad\"row,5A,2015-05-20\n" +
		"Chidi Eze,5A,2015-09-30\n"

	res, err := f.svc.ImportStudents(ctx, nil, "alpha", content, academicYear)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 2, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Message, "malformed row")
	}
}

// failingLinkRepo breaks teacher-subject linking so compensation paths can be
// exercised.
type failingLinkRepo struct {
	roster.Repository
}

func (failingLinkRepo) AddTeacherSubject(context.Context, core.DB, string, string) error {
	return assert.AnError
}

func TestService_ImportTeachers_subjectLinkCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	svc := roster.NewService(failingLinkRepo{f.repo}, f.accounts, mark.NewService(f.markRepo), logger)

	content := "name,email,academicYear,subjects\nMr. Kamau,kamau@school.sa,2025-2026,Math\n"

	res, err := svc.ImportTeachers(ctx, nil, "alpha", content)
	assert.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Empty(t, res.Teachers)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 1, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Message, "failed to link subjects")
	}

	// the teacher row was compensated away; no account was provisioned
	teachers, err := f.repo.QueryTeachers(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, teachers)
	assert.Empty(t, f.accounts.Created())
}

func TestService_ImportTeachers_accountCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.accounts.FailCreate = assert.AnError

	content := "name,email,academicYear\nMr. Kamau,kamau@school.sa,2025-2026\n"

	res, err := f.svc.ImportTeachers(ctx, nil, "alpha", content)
	assert.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Len(t, res.Errors, 1)

	teachers, err := f.repo.QueryTeachers(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, teachers)
}
