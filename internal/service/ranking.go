package service

import (
	"math"
	"sort"

	"github.com/prk-tuition/homework-service/internal/models"
)

// DenseRank ranks values in descending order. Equal values share a rank and
// the next distinct value takes the next integer: [90 90 80] -> [1 1 2].
func DenseRank(values []float64) []int {
	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))

	rankOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		ranks[i] = rankOf[v]
	}
	return ranks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SubjectAverages returns the mean mark per subject of graded answers,
// rounded to two decimals and ordered by subject.
func SubjectAverages(answers []models.Answer) []models.SubjectAverage {
	type acc struct {
		sum float64
		n   int
	}
	bySubject := make(map[string]*acc)
	for _, a := range answers {
		if !a.Graded() {
			continue
		}
		s, ok := bySubject[a.Subject]
		if !ok {
			s = &acc{}
			bySubject[a.Subject] = s
		}
		s.sum += float64(*a.Mark)
		s.n++
	}

	result := make([]models.SubjectAverage, 0, len(bySubject))
	for subject, s := range bySubject {
		result = append(result, models.SubjectAverage{
			Subject: subject,
			Average: round2(s.sum / float64(s.n)),
			Answers: s.n,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Subject < result[j].Subject })

	return result
}

// studentAverage is the unrounded mean mark of one student.
type studentAverage struct {
	user    *models.User
	average float64
}

// averagesByStudent averages graded answers per student. Answers of users
// missing from students are ignored.
func averagesByStudent(answers []models.Answer, students []models.User) []studentAverage {
	byEmail := make(map[string]*models.User, len(students))
	for i := range students {
		byEmail[students[i].Email] = &students[i]
	}

	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]*acc)
	order := make([]string, 0)
	for _, a := range answers {
		if !a.Graded() {
			continue
		}
		if _, ok := byEmail[a.StudentEmail]; !ok {
			continue
		}
		s, ok := sums[a.StudentEmail]
		if !ok {
			s = &acc{}
			sums[a.StudentEmail] = s
			order = append(order, a.StudentEmail)
		}
		s.sum += float64(*a.Mark)
		s.n++
	}

	result := make([]studentAverage, 0, len(order))
	for _, email := range order {
		s := sums[email]
		result = append(result, studentAverage{user: byEmail[email], average: s.sum / float64(s.n)})
	}
	return result
}

// rankEntries dense-ranks averages and returns entries sorted by rank, then
// name.
func rankEntries(averages []studentAverage) []models.LeaderboardEntry {
	values := make([]float64, len(averages))
	for i, a := range averages {
		values[i] = a.average
	}
	ranks := DenseRank(values)

	entries := make([]models.LeaderboardEntry, len(averages))
	for i, a := range averages {
		entries[i] = models.LeaderboardEntry{
			Rank:    ranks[i],
			Email:   a.user.Email,
			Name:    a.user.Name,
			Class:   a.user.Class,
			Average: round2(a.average),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// topPerClass ranks students within their class and keeps the first n rows of
// each class, sorted by class then rank.
func topPerClass(averages []studentAverage, n int) []models.LeaderboardEntry {
	byClass := make(map[string][]studentAverage)
	for _, a := range averages {
		byClass[a.user.Class] = append(byClass[a.user.Class], a)
	}

	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		ci, cj := classOrder(classes[i]), classOrder(classes[j])
		if ci != cj {
			return ci < cj
		}
		return classes[i] < classes[j]
	})

	result := make([]models.LeaderboardEntry, 0)
	for _, c := range classes {
		entries := rankEntries(byClass[c])
		if len(entries) > n {
			entries = entries[:n]
		}
		result = append(result, entries...)
	}
	return result
}
