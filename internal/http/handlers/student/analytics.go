package student

import (
	"unicode/utf8"

	"github.com/aanand-mishra/student-records/internal/types"
)

// computeAnalytics aggregates over the whole collection. It reports
// false for an empty collection, which has no meaningful averages.
func computeAnalytics(students []types.Student) (types.Analytics, bool) {
	total := len(students)
	if total == 0 {
		return types.Analytics{}, false
	}

	var nameChars, withEmail int
	for _, s := range students {
		nameChars += utf8.RuneCountInString(s.Name)
		if s.HasEmail() {
			withEmail++
		}
	}

	return types.Analytics{
		TotalStudents:     total,
		AverageNameLength: float64(nameChars) / float64(total),
		StudentsWithEmail: withEmail,
		EmailPercentage:   float64(withEmail) / float64(total) * 100,
	}, true
}
