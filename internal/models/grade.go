package models

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

type Grade int

const (
	GradeNeedsImprovement Grade = 1
	GradeAverage          Grade = 2
	GradeGood             Grade = 3
	GradeVeryGood         Grade = 4
	GradeOutstanding      Grade = 5
)

var ErrInvalidGrade = errors.New("grade must be between 1 and 5")

var gradeLabels = map[Grade]string{
	GradeNeedsImprovement: "Needs Improvement",
	GradeAverage:          "Average",
	GradeGood:             "Good",
	GradeVeryGood:         "Very Good",
	GradeOutstanding:      "Outstanding",
}

func (g Grade) Valid() bool { return g >= GradeNeedsImprovement && g <= GradeOutstanding }

func (g Grade) Label() string { return gradeLabels[g] }

// Archives reports whether the grade closes the answer. Lower grades send it
// back to the student with remarks.
func (g Grade) Archives() bool { return g >= GradeVeryGood }

// ParseGrade accepts "4", "4.0" or a label such as "Very Good".
func ParseGrade(s string) (Grade, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		g := Grade(math.Round(f))
		if !g.Valid() {
			return 0, ErrInvalidGrade
		}
		return g, nil
	}

	for g, label := range gradeLabels {
		if strings.EqualFold(label, s) {
			return g, nil
		}
	}

	return 0, ErrInvalidGrade
}

func GradePtr(g Grade) *Grade { return &g }
