package sheetstore

import (
	"context"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/sheets"
)

// LegacyAnswer is a row of the original live-answer or answer-bank sheets,
// which linked answers to questions by text and date only.
type LegacyAnswer struct {
	StudentEmail string
	Date         models.Date
	Class        string
	Subject      string
	Question     string
	Answer       string
	Mark         *models.Grade
	Remarks      string
}

// ReadLegacyAnswers loads one of the original answer sheets without
// modifying it. Rows with unreadable dates or marks are skipped and counted.
func ReadLegacyAnswers(ctx context.Context, gw *sheets.Gateway, tableID string) ([]LegacyAnswer, int, error) {
	tb, err := gw.Load(ctx, tableID)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []LegacyAnswer
		skipped int
	)
	for i := 0; i < tb.Len(); i++ {
		date, err := models.ParseDate(tb.Get(i, colDate))
		if err != nil {
			skipped++
			continue
		}
		mark, err := parseMark(tb.Get(i, colMarks))
		if err != nil {
			skipped++
			continue
		}
		email := models.NormalizeEmail(tb.Get(i, colStudentEmail))
		if email == "" {
			skipped++
			continue
		}

		out = append(out, LegacyAnswer{
			StudentEmail: email,
			Date:         date,
			Class:        tb.Get(i, colClass),
			Subject:      tb.Get(i, colSubject),
			Question:     tb.Get(i, colQuestion),
			Answer:       tb.Get(i, colAnswer),
			Mark:         mark,
			Remarks:      tb.Get(i, colRemarks),
		})
	}

	return out, skipped, nil
}
