package sampledata

// Profile is a band of student performance used to draw marks and attendance.
type Profile struct {
	Name          string
	Weight        int // relative frequency
	MarksMin      float64
	MarksRange    float64
	AttendanceMin float64
	AttendRange   float64
}

// DefaultProfiles mixes mostly average students with rarer extremes so that
// every risk level shows up in a dataset of moderate size.
var DefaultProfiles = []Profile{
	{Name: "average", Weight: 3, MarksMin: 50, MarksRange: 25, AttendanceMin: 70, AttendRange: 20},
	{Name: "high", Weight: 2, MarksMin: 75, MarksRange: 15, AttendanceMin: 85, AttendRange: 12},
	{Name: "elite", Weight: 1, MarksMin: 90, MarksRange: 10, AttendanceMin: 94, AttendRange: 6},
	{Name: "struggling", Weight: 1, MarksMin: 35, MarksRange: 15, AttendanceMin: 55, AttendRange: 20},
	{Name: "failing", Weight: 1, MarksMin: 10, MarksRange: 25, AttendanceMin: 30, AttendRange: 30},
}

// DefaultSubjects is used when no subjects are configured.
var DefaultSubjects = []string{"Mathematics", "Physics", "Chemistry", "Biology", "English"}

var firstNames = []string{
	"Ada", "Bruno", "Chidi", "Dana", "Elif", "Farah", "Goran", "Hana", "Ivan", "Jun",
	"Kavya", "Lior", "Mei", "Nadia", "Omar", "Priya", "Quinn", "Rafael", "Sofia", "Tomás",
}

var lastNames = []string{
	"Abe", "Bauer", "Costa", "Diaz", "Eriksen", "Fischer", "Gupta", "Haddad", "Ito", "Jansen",
	"Kowalski", "Laine", "Moreau", "Novak", "Okafor", "Petrov", "Rossi", "Silva", "Tanaka", "Weber",
}

func totalWeight(ps []Profile) int {
	n := 0
	for _, p := range ps {
		n += p.Weight
	}
	return n
}
