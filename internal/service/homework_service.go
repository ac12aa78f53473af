package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/rs/zerolog"
)

const defaultReportDays = 7

type HomeworkService interface {
	CreateHomework(ctx context.Context, teacher *auth.Session, req *models.CreateHomeworkRequest) ([]models.Question, error)
	TodaySummary(ctx context.Context, teacher *auth.Session) ([]models.ClassSubjectCount, error)
	QuestionsFor(ctx context.Context, class, subject string, date models.Date) ([]models.Question, error)
	PendingHomework(ctx context.Context, student *auth.Session) ([]models.PendingHomework, error)
	SubmitAnswer(ctx context.Context, student *auth.Session, req *models.SubmitAnswerRequest) (*models.Answer, error)
	UngradedAnswers(ctx context.Context, teacher *auth.Session) ([]models.StudentAnswers, error)
	GradeAnswer(ctx context.Context, teacher *auth.Session, answerID string, req *models.GradeAnswerRequest) (*models.Answer, error)
	RevisionZone(ctx context.Context, student *auth.Session) ([]models.RevisionItem, error)
	HomeworkReport(ctx context.Context, teacher *auth.Session, from, to models.Date) ([]models.ClassSubjectCount, error)
}

type homeworkService struct {
	userRepo     repository.UserRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	events       integration.EventPublisher
	validator    *Validator
	clock        Clock
	logger       zerolog.Logger
}

func NewHomeworkService(
	userRepo repository.UserRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	events integration.EventPublisher,
	validator *Validator,
	clock Clock,
	logger zerolog.Logger,
) HomeworkService {
	return &homeworkService{
		userRepo:     userRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		events:       events,
		validator:    validator,
		clock:        clock,
		logger:       logger,
	}
}

func (s *homeworkService) CreateHomework(ctx context.Context, teacher *auth.Session, req *models.CreateHomeworkRequest) ([]models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = s.clock.Today()
	}

	now := s.clock.Now()
	questions := make([]models.Question, 0, len(req.Questions))
	for _, text := range req.Questions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		questions = append(questions, models.Question{
			ID:         uuid.New().String(),
			Class:      req.Class,
			Date:       date,
			UploadedBy: teacher.Name,
			Subject:    req.Subject,
			Text:       text,
			CreatedAt:  now,
		})
	}

	if len(questions) == 0 {
		return nil, newValidationError("questions", "at least one question must have text")
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to create homework: %w", err)
	}

	s.logger.Info().
		Str("teacher", teacher.Email).
		Str("class", req.Class).
		Str("subject", req.Subject).
		Str("date", date.String()).
		Int("questions", len(questions)).
		Msg("Homework created")

	return questions, nil
}

func (s *homeworkService) TodaySummary(ctx context.Context, teacher *auth.Session) ([]models.ClassSubjectCount, error) {
	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{
		UploadedBy: teacher.Name,
		Date:       s.clock.Today(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return countByClassSubject(questions), nil
}

func (s *homeworkService) QuestionsFor(ctx context.Context, class, subject string, date models.Date) ([]models.Question, error) {
	if date.IsZero() {
		date = s.clock.Today()
	}

	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{
		Class:   class,
		Subject: subject,
		Date:    date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// PendingHomework lists the questions of the student's class that are either
// unanswered or were returned with remarks, newest first.
func (s *homeworkService) PendingHomework(ctx context.Context, student *auth.Session) ([]models.PendingHomework, error) {
	user, err := s.student(ctx, student)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{Class: user.Class})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{StudentEmail: user.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	byQuestion := make(map[string]*models.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	pending := make([]models.PendingHomework, 0)
	for _, q := range questions {
		a, answered := byQuestion[q.ID]
		switch {
		case !answered:
			pending = append(pending, models.PendingHomework{Question: q})
		case a.NeedsRework():
			pending = append(pending, models.PendingHomework{
				Question:       q,
				PreviousAnswer: a.Text,
				Remarks:        a.Remarks,
				Mark:           a.Mark,
			})
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Question.Date.After(pending[j].Question.Date)
	})

	return pending, nil
}

func (s *homeworkService) SubmitAnswer(ctx context.Context, student *auth.Session, req *models.SubmitAnswerRequest) (*models.Answer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.student(ctx, student)
	if err != nil {
		return nil, err
	}

	question, err := s.questionRepo.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}
	if question.Class != user.Class {
		return nil, ErrWrongClass
	}

	existing, err := s.answerRepo.GetByStudentAndQuestion(ctx, user.Email, question.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}

	now := s.clock.Now()
	text := strings.TrimSpace(req.Answer)

	var answer *models.Answer
	switch {
	case existing == nil:
		answer = &models.Answer{
			ID:           uuid.New().String(),
			StudentEmail: user.Email,
			QuestionID:   question.ID,
			Date:         question.Date,
			Class:        question.Class,
			Subject:      question.Subject,
			Question:     question.Text,
			Text:         text,
			Stage:        models.StageSubmitted,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.answerRepo.Create(ctx, answer); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrNotEditable
			}
			return nil, fmt.Errorf("failed to save answer: %w", err)
		}

	case existing.Stage == models.StageReturned:
		answer = existing
		answer.Text = text
		answer.Mark = nil
		answer.Remarks = ""
		answer.Stage = models.StageSubmitted
		answer.UpdatedAt = now
		if err := s.answerRepo.Update(ctx, answer); err != nil {
			return nil, fmt.Errorf("failed to resubmit answer: %w", err)
		}

	default:
		return nil, ErrNotEditable
	}

	s.logger.Info().
		Str("student", user.Email).
		Str("question_id", question.ID).
		Str("answer_id", answer.ID).
		Bool("resubmission", existing != nil).
		Msg("Answer submitted")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventAnswerSubmitted,
		Email: user.Email,
		Name:  user.Name,
		Data: map[string]string{
			"answer_id":   answer.ID,
			"subject":     answer.Subject,
			"uploaded_by": question.UploadedBy,
		},
	})

	return answer, nil
}

// UngradedAnswers returns live answers without a mark to questions written
// by the teacher, grouped by student in order of first appearance.
func (s *homeworkService) UngradedAnswers(ctx context.Context, teacher *auth.Session) ([]models.StudentAnswers, error) {
	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{UploadedBy: teacher.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	groups := make([]models.StudentAnswers, 0)
	if len(questions) == 0 {
		return groups, nil
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{
		QuestionIDs:  ids,
		Stages:       models.LiveStages,
		UngradedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	if len(answers) == 0 {
		return groups, nil
	}

	students, err := s.userRepo.List(ctx, models.UserFilter{Roles: []models.Role{models.RoleStudent}})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	names := make(map[string]string, len(students))
	for i := range students {
		names[students[i].Email] = students[i].DisplayName()
	}

	index := make(map[string]int)
	for _, a := range answers {
		i, ok := index[a.StudentEmail]
		if !ok {
			name := names[a.StudentEmail]
			if name == "" {
				name = a.StudentEmail
			}
			groups = append(groups, models.StudentAnswers{
				StudentEmail: a.StudentEmail,
				DisplayName:  name,
			})
			i = len(groups) - 1
			index[a.StudentEmail] = i
		}
		groups[i].Answers = append(groups[i].Answers, a)
	}

	return groups, nil
}

// GradeAnswer marks an ungraded answer. Grades 1 to 3 return the answer to
// the student with remarks; grades 4 and 5 archive it. Each grading earns the
// teacher one point.
func (s *homeworkService) GradeAnswer(ctx context.Context, teacher *auth.Session, answerID string, req *models.GradeAnswerRequest) (*models.Answer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	grade := models.Grade(req.Grade)
	remarks := strings.TrimSpace(req.Remarks)
	if !grade.Archives() && remarks == "" {
		return nil, ErrRemarksRequired
	}

	answer, err := s.answerRepo.GetByID(ctx, answerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	if answer == nil {
		return nil, ErrAnswerNotFound
	}
	if answer.Graded() || !answer.Stage.Live() {
		return nil, ErrAlreadyGraded
	}

	question, err := s.questionRepo.GetByID(ctx, answer.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question == nil || question.UploadedBy != teacher.Name {
		return nil, ErrNotYourQuestion
	}

	answer.Mark = models.GradePtr(grade)
	answer.Remarks = remarks
	answer.UpdatedAt = s.clock.Now()
	if grade.Archives() {
		answer.Stage = models.StageArchived
	} else {
		answer.Stage = models.StageReturned
	}

	if err := s.answerRepo.Grade(ctx, answer); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyGraded
		}
		return nil, fmt.Errorf("failed to grade answer: %w", err)
	}

	points, err := s.userRepo.IncrementSalaryPoints(ctx, teacher.Email, 1)
	if err != nil {
		s.logger.Error().Err(err).Str("teacher", teacher.Email).Msg("Failed to award salary point")
	}

	s.logger.Info().
		Str("teacher", teacher.Email).
		Str("answer_id", answer.ID).
		Int("grade", int(grade)).
		Str("stage", string(answer.Stage)).
		Int("salary_points", points).
		Msg("Answer graded")

	publishEvent(ctx, s.events, s.clock, s.logger, &models.Event{
		Type:  models.EventAnswerGraded,
		Email: answer.StudentEmail,
		Data: map[string]string{
			"answer_id": answer.ID,
			"subject":   answer.Subject,
			"date":      answer.Date.String(),
			"grade":     grade.Label(),
			"remarks":   remarks,
			"stage":     string(answer.Stage),
		},
	})

	return answer, nil
}

func (s *homeworkService) RevisionZone(ctx context.Context, student *auth.Session) ([]models.RevisionItem, error) {
	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{
		StudentEmail: student.Email,
		Stages:       []models.AnswerStage{models.StageArchived},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	items := make([]models.RevisionItem, 0, len(answers))
	for _, a := range answers {
		if !a.Graded() {
			continue
		}
		items = append(items, models.RevisionItem{Answer: a, Grade: a.Mark.Label()})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Answer.Date.After(items[j].Answer.Date)
	})

	return items, nil
}

// HomeworkReport counts the teacher's questions per class and subject in
// [from, to]. A zero range means the last seven days.
func (s *homeworkService) HomeworkReport(ctx context.Context, teacher *auth.Session, from, to models.Date) ([]models.ClassSubjectCount, error) {
	if to.IsZero() {
		to = s.clock.Today()
	}
	if from.IsZero() {
		from = to.AddDays(-(defaultReportDays - 1))
	}
	if from.After(to) {
		return nil, newValidationError("from", "must not be after to")
	}

	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{
		UploadedBy: teacher.Name,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	return countByClassSubject(questions), nil
}

func (s *homeworkService) student(ctx context.Context, session *auth.Session) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, session.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role != models.RoleStudent {
		return nil, ErrNotStudent
	}
	return user, nil
}

func countByClassSubject(questions []models.Question) []models.ClassSubjectCount {
	type key struct{ class, subject string }
	counts := make(map[key]int)
	for _, q := range questions {
		counts[key{q.Class, q.Subject}]++
	}

	result := make([]models.ClassSubjectCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, models.ClassSubjectCount{Class: k.class, Subject: k.subject, Count: n})
	}

	sort.Slice(result, func(i, j int) bool {
		ci, cj := classOrder(result[i].Class), classOrder(result[j].Class)
		if ci != cj {
			return ci < cj
		}
		if result[i].Class != result[j].Class {
			return result[i].Class < result[j].Class
		}
		return result[i].Subject < result[j].Subject
	})

	return result
}

// classOrder sorts "5th" before "10th".
func classOrder(class string) int {
	for i, c := range models.Classes {
		if c == class {
			return i
		}
	}
	return len(models.Classes)
}
