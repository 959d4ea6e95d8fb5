package mark

import (
	"math"
	"sort"

	"github.com/volatiletech/null/v8"
)

// State classifies a mark row against its active header set.
type State int

const (
	StateEmpty State = iota
	StatePartial
	StateComplete
)

func (s State) String() string {
	switch s {
	case StatePartial:
		return "Partial"
	case StateComplete:
		return "Complete"
	}
	return "Empty"
}

// GradeNotAvailable is returned for rows whose total is null or zero.
const GradeNotAvailable = "-"

// ActiveHeaders returns the header set governing a row: the config's headers,
// or the hardcoded default set when no config exists.
func ActiveHeaders(cfg *HeaderConfig) []string {
	if cfg == nil || len(cfg.Headers) == 0 {
		return DefaultHeaders
	}
	return cfg.Headers
}

// Total sums the active header values of a row. Unset fields contribute 0;
// inactive fields never count.
func Total(m Mark, active []string) int {
	var sum int
	for _, h := range active {
		if v := m.Value(h); v.Valid {
			sum += v.Int
		}
	}
	return sum
}

// filled reports whether a score counts as present: non-null and strictly
// greater than zero. A zero is an unentered field, not a valid score of zero;
// the zeroed rows created by bulk import must read Empty.
func filled(v null.Int) bool {
	return v.Valid && v.Int > 0
}

// RowState classifies a row: Empty when no active field is filled, Complete
// when every active field is filled, Partial in between.
func RowState(m Mark, active []string) State {
	var n int
	for _, h := range active {
		if filled(m.Value(h)) {
			n++
		}
	}
	switch n {
	case 0:
		return StateEmpty
	case len(active):
		return StateComplete
	}
	return StatePartial
}

// AllComplete reports whether a (class, subject, trimester) mark set is
// complete: at least one row exists and every row is Complete.
func AllComplete(marks []Mark, active []string) bool {
	if len(marks) == 0 {
		return false
	}
	for _, m := range marks {
		if RowState(m, active) != StateComplete {
			return false
		}
	}
	return true
}

// Grade maps a 0–100 total to a letter grade. A null or zero total yields the
// "not available" sentinel, not an F.
func Grade(total null.Int) string {
	if !total.Valid || total.Int == 0 {
		return GradeNotAvailable
	}
	t := total.Int
	switch {
	case t >= 96:
		return "A+"
	case t >= 93:
		return "A"
	case t >= 89:
		return "A-"
	case t >= 86:
		return "B+"
	case t >= 83:
		return "B"
	case t >= 79:
		return "B-"
	case t >= 76:
		return "C+"
	case t >= 73:
		return "C"
	case t >= 69:
		return "C-"
	case t >= 66:
		return "D+"
	case t >= 63:
		return "D"
	case t >= 60:
		return "D-"
	}
	return "F"
}

// YearlyAverage collapses a student's trimester rows into one row per subject,
// averaging each header field and the total over the trimesters that have a
// row, rounding UP to the nearest integer.
func YearlyAverage(rows []Row) []Row {
	type acc struct {
		first  Row
		count  int
		sums   map[string]int
		total  int
		sorder int
	}
	bySubject := make(map[string]*acc)
	order := 0
	for _, r := range rows {
		a, ok := bySubject[r.SubjectID]
		if !ok {
			a = &acc{first: r, sums: make(map[string]int, len(PossibleHeaders)), sorder: order}
			order++
			bySubject[r.SubjectID] = a
		}
		a.count++
		for _, h := range PossibleHeaders {
			if v := r.Value(h); v.Valid {
				a.sums[h] += v.Int
			}
		}
		if r.Total.Valid {
			a.total += r.Total.Int
		}
	}

	out := make([]Row, 0, len(bySubject))
	for _, a := range bySubject {
		avg := a.first
		avg.Trimester = PeriodYearly
		for _, h := range PossibleHeaders {
			avg.SetValue(h, null.IntFrom(ceilDiv(a.sums[h], a.count)))
		}
		avg.Total = null.IntFrom(ceilDiv(a.total, a.count))
		out = append(out, avg)
	}
	sort.Slice(out, func(i, j int) bool {
		return bySubject[out[i].SubjectID].sorder < bySubject[out[j].SubjectID].sorder
	})
	return out
}

func ceilDiv(sum, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Ceil(float64(sum) / float64(count)))
}
