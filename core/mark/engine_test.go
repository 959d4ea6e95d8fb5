package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func Test_Grade(t *testing.T) {
	tests := []struct {
		total null.Int
		want  string
	}{
		{null.Int{}, GradeNotAvailable},
		{null.IntFrom(0), GradeNotAvailable},
		{null.IntFrom(100), "A+"},
		{null.IntFrom(96), "A+"},
		{null.IntFrom(95), "A"},
		{null.IntFrom(93), "A"},
		{null.IntFrom(92), "A-"},
		{null.IntFrom(89), "A-"},
		{null.IntFrom(88), "B+"},
		{null.IntFrom(86), "B+"},
		{null.IntFrom(85), "B"},
		{null.IntFrom(83), "B"},
		{null.IntFrom(82), "B-"},
		{null.IntFrom(79), "B-"},
		{null.IntFrom(78), "C+"},
		{null.IntFrom(76), "C+"},
		{null.IntFrom(75), "C"},
		{null.IntFrom(73), "C"},
		{null.IntFrom(72), "C-"},
		{null.IntFrom(69), "C-"},
		{null.IntFrom(68), "D+"},
		{null.IntFrom(66), "D+"},
		{null.IntFrom(65), "D"},
		{null.IntFrom(63), "D"},
		{null.IntFrom(62), "D-"},
		{null.IntFrom(60), "D-"},
		{null.IntFrom(59), "F"},
		{null.IntFrom(1), "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.total), "total=%v", tt.total)
	}
}

func Test_ActiveHeaders(t *testing.T) {
	assert.Equal(t, DefaultHeaders, ActiveHeaders(nil))
	assert.Equal(t, DefaultHeaders, ActiveHeaders(&HeaderConfig{}))

	cfg := &HeaderConfig{Headers: HeaderList{HeaderMemorizing, HeaderOral, HeaderReading}}
	assert.Equal(t, []string{HeaderMemorizing, HeaderOral, HeaderReading}, ActiveHeaders(cfg))
}

func Test_Total(t *testing.T) {
	m := Mark{
		Participation: null.IntFrom(10),
		Homework:      null.IntFrom(15),
		Quiz:          null.IntFrom(20),
		Exam:          null.IntFrom(40),
		Project:       null.IntFrom(99), // inactive, must not count
	}
	assert.Equal(t, 85, Total(m, DefaultHeaders))

	// unset fields contribute 0
	m.Quiz = null.Int{}
	assert.Equal(t, 65, Total(m, DefaultHeaders))

	assert.Equal(t, 0, Total(Mark{}, DefaultHeaders))
}

func Test_RowState(t *testing.T) {
	active := []string{HeaderQuiz, HeaderExam}

	tests := []struct {
		name string
		mark Mark
		want State
	}{
		{"all filled", Mark{Quiz: null.IntFrom(18), Exam: null.IntFrom(50)}, StateComplete},
		{"zero counts as missing", Mark{Quiz: null.IntFrom(0), Exam: null.IntFrom(50)}, StatePartial},
		{"null counts as missing", Mark{Exam: null.IntFrom(50)}, StatePartial},
		{"all zeroes", Mark{Quiz: null.IntFrom(0), Exam: null.IntFrom(0)}, StateEmpty},
		{"all null", Mark{}, StateEmpty},
		{"inactive fields ignored", Mark{Participation: null.IntFrom(10), Homework: null.IntFrom(10)}, StateEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RowState(tt.mark, active))
		})
	}
}

func Test_AllComplete(t *testing.T) {
	active := []string{HeaderQuiz, HeaderExam}
	full := Mark{Quiz: null.IntFrom(15), Exam: null.IntFrom(45)}
	partial := Mark{Quiz: null.IntFrom(15)}

	// no rows is never complete
	assert.False(t, AllComplete(nil, active))
	assert.False(t, AllComplete([]Mark{}, active))

	assert.True(t, AllComplete([]Mark{full, full}, active))
	assert.False(t, AllComplete([]Mark{full, partial}, active))
	assert.False(t, AllComplete([]Mark{Zeroed("s", "sub", "2025-2026", TrimesterFirst)}, active))
}

func Test_YearlyAverage(t *testing.T) {
	row := func(subjID, subjName, trimester string, quiz, exam, total int) Row {
		return Row{
			Mark: Mark{
				StudentID: "stud1",
				SubjectID: subjID,
				Trimester: trimester,
				Quiz:      null.IntFrom(quiz),
				Exam:      null.IntFrom(exam),
				Total:     null.IntFrom(total),
			},
			SubjectName: subjName,
		}
	}

	rows := []Row{
		row("math", "Math", TrimesterFirst, 10, 70, 80),
		row("sci", "Science", TrimesterFirst, 20, 70, 90),
		row("math", "Math", TrimesterSecond, 15, 70, 85),
		row("sci", "Science", TrimesterSecond, 18, 74, 92),
		row("math", "Math", TrimesterThird, 19, 70, 89),
	}

	out := YearlyAverage(rows)
	assert.Len(t, out, 2)

	// first-seen subject order is preserved
	mathAvg, sciAvg := out[0], out[1]
	assert.Equal(t, "math", mathAvg.SubjectID)
	assert.Equal(t, "Math", mathAvg.SubjectName)
	assert.Equal(t, "sci", sciAvg.SubjectID)

	assert.Equal(t, PeriodYearly, mathAvg.Trimester)
	assert.Equal(t, PeriodYearly, sciAvg.Trimester)

	// ceil((80+85+89)/3) = ceil(84.67) = 85
	assert.Equal(t, null.IntFrom(85), mathAvg.Total)
	// ceil((10+15+19)/3) = ceil(14.67) = 15
	assert.Equal(t, null.IntFrom(15), mathAvg.Quiz)
	assert.Equal(t, null.IntFrom(70), mathAvg.Exam)

	// two trimesters only: ceil((90+92)/2) = 91
	assert.Equal(t, null.IntFrom(91), sciAvg.Total)
	assert.Equal(t, null.IntFrom(19), sciAvg.Quiz)
	assert.Equal(t, null.IntFrom(72), sciAvg.Exam)

	assert.Empty(t, YearlyAverage(nil))
}

func Test_Zeroed(t *testing.T) {
	m := Zeroed("stud1", "math", "2025-2026", TrimesterSecond)
	assert.Equal(t, "stud1", m.StudentID)
	assert.Equal(t, TrimesterSecond, m.Trimester)
	for _, h := range PossibleHeaders {
		assert.Equal(t, null.IntFrom(0), m.Value(h), h)
	}
	assert.Equal(t, null.IntFrom(0), m.Total)
	assert.Equal(t, StateEmpty, RowState(m, DefaultHeaders))
}
