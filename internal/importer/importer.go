// Package importer copies the spreadsheets of the original deployment into
// the configured repositories.
package importer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/repository/sheetstore"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

// Repositories is one side of the copy.
type Repositories struct {
	Users         repository.UserRepository
	Questions     repository.QuestionRepository
	Answers       repository.AnswerRepository
	Announcements repository.AnnouncementRepository
}

// Source adds the two legacy answer sheets, which reference questions by
// text and date instead of by identifier. Either identifier may be empty.
type Source struct {
	Repositories
	Gateway       *sheets.Gateway
	LiveAnswersID string
	AnswerBankID  string
}

type Report struct {
	Users         int `json:"users"`
	Questions     int `json:"questions"`
	Announcements int `json:"announcements"`
	Answers       int `json:"answers"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
}

type Importer struct {
	src    Source
	dst    Repositories
	now    func() time.Time
	logger zerolog.Logger
}

func New(src Source, dst Repositories, logger zerolog.Logger) *Importer {
	return &Importer{src: src, dst: dst, now: time.Now, logger: logger}
}

// Run copies users, questions, announcements and answers in that order so
// foreign keys resolve. Records already present in the destination are
// skipped, which makes a re-run safe.
func (im *Importer) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := im.importUsers(ctx, report); err != nil {
		return report, err
	}

	questions, err := im.importQuestions(ctx, report)
	if err != nil {
		return report, err
	}

	if err := im.importAnnouncements(ctx, report); err != nil {
		return report, err
	}

	if err := im.importAnswers(ctx, report); err != nil {
		return report, err
	}

	for _, legacy := range []struct {
		id   string
		live bool
	}{
		// the bank first: a row moved to the bank whose live copy was never
		// deleted must keep its grade
		{im.src.AnswerBankID, false},
		{im.src.LiveAnswersID, true},
	} {
		if legacy.id == "" {
			continue
		}
		if err := im.importLegacyAnswers(ctx, legacy.id, legacy.live, questions, report); err != nil {
			return report, err
		}
	}

	im.logger.Info().
		Int("users", report.Users).
		Int("questions", report.Questions).
		Int("announcements", report.Announcements).
		Int("answers", report.Answers).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Import finished")

	return report, nil
}

func (im *Importer) importUsers(ctx context.Context, report *Report) error {
	users, err := im.src.Users.List(ctx, models.UserFilter{})
	if err != nil {
		return fmt.Errorf("failed to read users: %w", err)
	}

	for i := range users {
		u := &users[i]
		if u.CreatedAt.IsZero() {
			u.CreatedAt = im.now()
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = u.CreatedAt
		}

		err := im.dst.Users.Create(ctx, u)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			report.Skipped++
		case err != nil:
			report.Failed++
			im.logger.Warn().Err(err).Str("email", u.Email).Msg("Failed to import user")
		default:
			report.Users++
		}
	}

	return nil
}

// importQuestions returns every source question, imported or not, for
// resolving legacy answers.
func (im *Importer) importQuestions(ctx context.Context, report *Report) ([]models.Question, error) {
	questions, err := im.src.Questions.List(ctx, models.QuestionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	var fresh []models.Question
	for _, q := range questions {
		existing, err := im.dst.Questions.GetByID(ctx, q.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check question %s: %w", q.ID, err)
		}
		if existing != nil {
			report.Skipped++
			continue
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = q.Date.Time()
		}
		fresh = append(fresh, q)
	}

	if len(fresh) > 0 {
		if err := im.dst.Questions.CreateBatch(ctx, fresh); err != nil {
			return nil, fmt.Errorf("failed to write questions: %w", err)
		}
	}
	report.Questions += len(fresh)

	return questions, nil
}

func (im *Importer) importAnnouncements(ctx context.Context, report *Report) error {
	all, err := im.src.Announcements.List(ctx, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("failed to read announcements: %w", err)
	}
	present, err := im.dst.Announcements.List(ctx, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("failed to read existing announcements: %w", err)
	}

	seen := make(map[string]bool, len(present))
	for _, a := range present {
		seen[a.ID] = true
	}

	// oldest first, so the destination keeps newest-first order
	for i := len(all) - 1; i >= 0; i-- {
		a := all[i]
		if seen[a.ID] {
			report.Skipped++
			continue
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = a.Date.Time()
		}
		if err := im.dst.Announcements.Create(ctx, &a); err != nil {
			report.Failed++
			im.logger.Warn().Err(err).Str("announcement_id", a.ID).Msg("Failed to import announcement")
			continue
		}
		report.Announcements++
	}

	return nil
}

func (im *Importer) importAnswers(ctx context.Context, report *Report) error {
	if im.src.Answers == nil {
		return nil
	}

	answers, err := im.src.Answers.List(ctx, models.AnswerFilter{})
	if err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}

	for i := range answers {
		im.createAnswer(ctx, &answers[i], report)
	}
	return nil
}

func (im *Importer) importLegacyAnswers(ctx context.Context, tableID string, live bool, questions []models.Question, report *Report) error {
	rows, skipped, err := sheetstore.ReadLegacyAnswers(ctx, im.src.Gateway, tableID)
	if err != nil {
		return fmt.Errorf("failed to read legacy answers from %s: %w", tableID, err)
	}
	report.Skipped += skipped

	index := newQuestionIndex(questions)
	for _, row := range rows {
		q, ok := index.lookup(row.Question, row.Date, row.Class)
		if !ok {
			report.Skipped++
			im.logger.Warn().
				Str("student", row.StudentEmail).
				Str("date", row.Date.String()).
				Str("question", row.Question).
				Msg("No question matches legacy answer")
			continue
		}

		stage, ok := legacyStage(row.Mark, live)
		if !ok {
			report.Skipped++
			continue
		}

		ts := row.Date.Time()
		im.createAnswer(ctx, &models.Answer{
			ID:           uuid.New().String(),
			StudentEmail: row.StudentEmail,
			QuestionID:   q.ID,
			Date:         q.Date,
			Class:        q.Class,
			Subject:      q.Subject,
			Question:     q.Text,
			Text:         row.Answer,
			Mark:         row.Mark,
			Remarks:      row.Remarks,
			Stage:        stage,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}, report)
	}

	return nil
}

func (im *Importer) createAnswer(ctx context.Context, a *models.Answer, report *Report) {
	existing, err := im.dst.Answers.GetByStudentAndQuestion(ctx, a.StudentEmail, a.QuestionID)
	if err != nil {
		report.Failed++
		im.logger.Warn().Err(err).Str("answer_id", a.ID).Msg("Failed to check answer")
		return
	}
	if existing != nil {
		if existing.Stage.Live() && a.Stage == models.StageArchived {
			im.archive(ctx, existing, a, report)
			return
		}
		report.Skipped++
		return
	}

	if err := im.dst.Answers.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			report.Skipped++
			return
		}
		report.Failed++
		im.logger.Warn().Err(err).Str("student", a.StudentEmail).Msg("Failed to import answer")
		return
	}
	report.Answers++
}

// archive replaces a live answer imported earlier with its graded copy
// from the answer bank.
func (im *Importer) archive(ctx context.Context, existing, graded *models.Answer, report *Report) {
	existing.Text = graded.Text
	existing.Mark = graded.Mark
	existing.Remarks = graded.Remarks
	existing.Stage = models.StageArchived
	existing.UpdatedAt = im.now()

	if err := im.dst.Answers.Update(ctx, existing); err != nil {
		report.Failed++
		im.logger.Warn().Err(err).Str("answer_id", existing.ID).Msg("Failed to archive imported answer")
		return
	}
	report.Answers++
}

// legacyStage maps a row of the live sheet or the answer bank to a stage.
// Answer bank rows without a mark are unusable.
func legacyStage(mark *models.Grade, live bool) (models.AnswerStage, bool) {
	switch {
	case mark == nil && live:
		return models.StageSubmitted, true
	case mark == nil:
		return "", false
	case mark.Archives() || !live:
		return models.StageArchived, true
	default:
		return models.StageReturned, true
	}
}

type questionKey struct {
	text  string
	date  string
	class string
}

// questionIndex resolves legacy answers, which name their question by text,
// date and class. The class is optional in the oldest rows.
type questionIndex struct {
	exact  map[questionKey]models.Question
	byDate map[questionKey][]models.Question
}

func newQuestionIndex(questions []models.Question) *questionIndex {
	idx := &questionIndex{
		exact:  make(map[questionKey]models.Question, len(questions)),
		byDate: make(map[questionKey][]models.Question),
	}

	sorted := append([]models.Question(nil), questions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	for _, q := range sorted {
		k := questionKey{text: normalizeText(q.Text), date: q.Date.String(), class: q.Class}
		if _, dup := idx.exact[k]; !dup {
			idx.exact[k] = q
		}
		dk := questionKey{text: k.text, date: k.date}
		idx.byDate[dk] = append(idx.byDate[dk], q)
	}

	return idx
}

func (idx *questionIndex) lookup(text string, date models.Date, class string) (models.Question, bool) {
	k := questionKey{text: normalizeText(text), date: date.String(), class: strings.TrimSpace(class)}
	if q, ok := idx.exact[k]; ok {
		return q, true
	}

	if k.class != "" {
		return models.Question{}, false
	}

	// rows without a class match only when unambiguous
	candidates := idx.byDate[questionKey{text: k.text, date: k.date}]
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return models.Question{}, false
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
