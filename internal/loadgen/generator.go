package loadgen

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// subjectCatalog names the first subjects handed out; any further subjects
// are numbered electives.
var subjectCatalog = []string{
	"English Language",
	"Mathematics",
	"Integrated Science",
	"Social Studies",
	"French",
	"Computing",
	"Religious and Moral Education",
	"Creative Arts",
	"Ghanaian Language",
	"Career Technology",
}

// SubjectNames returns n subject names.
func SubjectNames(n int) []string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(subjectCatalog) {
			names = append(names, subjectCatalog[i])
			continue
		}
		names = append(names, fmt.Sprintf("Elective %02d", i-len(subjectCatalog)+1))
	}
	return names
}

// performer is an ability band: students draw a base ability in
// [min, min+span) and each subject wobbles around it.
type performer struct {
	min, span float64
}

// The mix is weighted towards average students with thin tails.
var performers = []performer{
	{0.40, 0.25}, // average
	{0.40, 0.25}, // average
	{0.65, 0.20}, // high
	{0.15, 0.25}, // low
	{0.88, 0.12}, // elite
	{0.02, 0.13}, // very low
	{0.55, 0.20}, // mid-high
	{0.25, 0.20}, // mid-low
}

const subjectWobble = 0.12

// Generator builds a deterministic synthetic cohort.
type Generator struct {
	src   *rand.ChaCha8
	rng   *rand.Rand
	rules grading.Configuration
}

// NewGenerator seeds a generator. The same seed and rules always yield the
// same submissions, ids included.
func NewGenerator(seed uint64, rules grading.Configuration) *Generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	return &Generator{src: src, rng: rand.New(src), rules: rules}
}

func (g *Generator) id() (string, error) {
	u, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return u.String(), nil
}

func (g *Generator) fraction(base float64) float64 {
	f := base + (g.rng.Float64()*2-1)*subjectWobble
	return math.Min(1, math.Max(0, f))
}

// marks draws section marks within the paper maxima. A normalized subject is
// marked out of its own ceiling, split in the same ratio as the standard papers.
func (g *Generator) marks(subject string, ability float64) (a, b float64) {
	maxA, maxB := g.rules.MaxSectionA, g.rules.MaxSectionB
	n := g.rules.Normalization
	if n.Enabled && n.Subject.String() == subject && maxA+maxB > 0 {
		scale := n.MaxScore / (maxA + maxB)
		maxA, maxB = math.Floor(maxA*scale), math.Floor(maxB*scale)
	}
	return math.Round(g.fraction(ability) * maxA), math.Round(g.fraction(ability) * maxB)
}

// Generate returns one submission per student per subject.
func (g *Generator) Generate(cycle string, students, subjects int) ([]Submission, error) {
	if students < 1 || subjects < 1 {
		return nil, fmt.Errorf("students and subjects must be positive (got %d, %d)", students, subjects)
	}
	names := SubjectNames(subjects)
	out := make([]Submission, 0, students*subjects)
	for i := 0; i < students; i++ {
		studentID, err := g.id()
		if err != nil {
			return nil, err
		}
		p := performers[g.rng.IntN(len(performers))]
		ability := p.min + g.rng.Float64()*p.span
		name := fmt.Sprintf("Student %05d", i+1)

		for _, subject := range names {
			subID, err := g.id()
			if err != nil {
				return nil, err
			}
			a, b := g.marks(subject, ability)
			s := Submission{
				SubmissionID: subID,
				Cycle:        cycle,
				StudentID:    studentID,
				StudentName:  name,
				Subject:      subject,
				SectionA:     a,
				SectionB:     b,
			}
			if g.rules.SBA.Enabled {
				s.SBA = math.Round(g.fraction(ability) * g.rules.MaxSBA)
			}
			out = append(out, s)
		}
	}
	return out, nil
}
