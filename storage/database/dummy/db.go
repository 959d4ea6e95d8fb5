package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/roster"
)

// DB is an in-memory stand-in for one tenant's database, used by tests.
// Repositories built on it ignore the core.DB handle they receive.
type (
	DB struct {
		mu sync.RWMutex

		teachers map[string]*roster.Teacher
		classes  map[string]*roster.Class
		subjects map[string]*roster.Subject
		students map[string]*roster.Student

		teacherSubjects map[[2]string]struct{}         // (teacher, subject)
		classSubjects   map[[2]string]struct{}         // (class, subject)
		classTeachers   map[[3]string]classTeacherLink // (class, teacher, subject)

		marks         map[string]*mark.Mark
		headerConfigs map[string]*mark.HeaderConfig

		reports map[string]*report.Report
	}

	classTeacherLink struct {
		id string
	}
)

func Open() (*DB, error) {
	db := &DB{
		teachers:        make(map[string]*roster.Teacher),
		classes:         make(map[string]*roster.Class),
		subjects:        make(map[string]*roster.Subject),
		students:        make(map[string]*roster.Student),
		teacherSubjects: make(map[[2]string]struct{}),
		classSubjects:   make(map[[2]string]struct{}),
		classTeachers:   make(map[[3]string]classTeacherLink),
		marks:           make(map[string]*mark.Mark),
		headerConfigs:   make(map[string]*mark.HeaderConfig),
		reports:         make(map[string]*report.Report),
	}
	return db, nil
}
