package sheetstore

import (
	"sort"

	"github.com/prk-tuition/homework-service/internal/models"
)

// Ordering matches the SQL repositories: newest date first, then creation.

func sortQuestions(qs []models.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if !qs[i].Date.Equal(qs[j].Date) {
			return qs[i].Date.After(qs[j].Date)
		}
		return qs[i].CreatedAt.Before(qs[j].CreatedAt)
	})
}

func sortAnswers(as []models.Answer) {
	sort.SliceStable(as, func(i, j int) bool {
		if !as[i].Date.Equal(as[j].Date) {
			return as[i].Date.After(as[j].Date)
		}
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
}
