package sampledata

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/parser"
	"github.com/okian/gradelens/pkg/logger"
)

// Default generator sizes.
const (
	DefaultStudents  = 200
	DefaultSemesters = 2
	// semesterDrift is the maximum per-semester movement of a student's marks.
	semesterDrift = 8.0
)

// Generator produces synthetic records.
type Generator struct {
	rng       *rand.Rand
	profiles  []Profile
	newID     func() string
	assessTyp string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed makes generation deterministic.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithProfiles replaces the performance profiles.
func WithProfiles(ps []Profile) GeneratorOption {
	return func(g *Generator) {
		if totalWeight(ps) > 0 {
			g.profiles = ps
		}
	}
}

// WithIDFunc replaces the uuid student id source.
func WithIDFunc(fn func() string) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// NewGenerator creates a generator seeded from the clock unless WithSeed is given.
func NewGenerator(opts ...GeneratorOption) *Generator {
	seed := uint64(time.Now().UnixNano())
	g := &Generator{
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
		profiles:  DefaultProfiles,
		newID:     uuid.NewString,
		assessTyp: "Exam",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds students x subjects x semesters records.
func (g *Generator) Generate(ctx context.Context, cfg *Config) ([]model.Record, error) {
	students, subjects, semesters := resolve(cfg)
	if students <= 0 || semesters <= 0 || len(subjects) == 0 {
		return nil, fmt.Errorf("%w: students=%d subjects=%d semesters=%d", ErrInvalidConfig, students, len(subjects), semesters)
	}

	logger.Get().Info(ctx, "generating sample dataset",
		logger.Int("students", students),
		logger.Int("subjects", len(subjects)),
		logger.Int("semesters", semesters),
	)

	out := make([]model.Record, 0, students*len(subjects)*semesters)
	for i := 0; i < students; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		id := g.newID()
		name := firstNames[g.rng.IntN(len(firstNames))] + " " + lastNames[g.rng.IntN(len(lastNames))]
		p := g.pickProfile()
		for _, subject := range subjects {
			marks := p.MarksMin + g.rng.Float64()*p.MarksRange
			attendance := p.AttendanceMin + g.rng.Float64()*p.AttendRange
			for sem := 1; sem <= semesters; sem++ {
				out = append(out, model.Record{
					StudentID:      id,
					Name:           name,
					Subject:        subject,
					Marks:          round1(parser.Clamp(marks)),
					Attendance:     round1(parser.Clamp(attendance)),
					Semester:       strconv.Itoa(sem),
					AssessmentType: g.assessTyp,
				})
				marks += (g.rng.Float64()*2 - 1) * semesterDrift
				attendance += (g.rng.Float64()*2 - 1) * semesterDrift / 2
			}
		}
	}

	logger.Get().Info(ctx, "generated sample dataset", logger.Int("records", len(out)))
	return out, nil
}

func (g *Generator) pickProfile() Profile {
	n := g.rng.IntN(totalWeight(g.profiles))
	for _, p := range g.profiles {
		if n < p.Weight {
			return p
		}
		n -= p.Weight
	}
	return g.profiles[len(g.profiles)-1]
}

// WriteCSV writes records in the canonical export layout.
func WriteCSV(w io.Writer, records []model.Record) error {
	return parser.Serialize(w, records)
}

func resolve(cfg *Config) (students int, subjects []string, semesters int) {
	students, subjects, semesters = DefaultStudents, DefaultSubjects, DefaultSemesters
	if cfg == nil {
		return
	}
	if cfg.Students != 0 {
		students = cfg.Students
	}
	if len(cfg.Subjects) > 0 {
		subjects = cfg.Subjects
	}
	if cfg.Semesters != 0 {
		semesters = cfg.Semesters
	}
	return
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
