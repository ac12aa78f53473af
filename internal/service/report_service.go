package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/rs/zerolog"
)

const (
	DefaultTopN     = 3
	DefaultWeakestN = 5
)

var archivedOnly = []models.AnswerStage{models.StageArchived}

type ReportService interface {
	StudentPerformance(ctx context.Context, student *auth.Session) ([]models.SubjectAverage, error)
	ClassLeaderboard(ctx context.Context, student *auth.Session) (*models.ClassLeaderboard, error)
	TopPerClass(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	TeacherLeaderboard(ctx context.Context) ([]models.TeacherRank, error)
	TeacherActivityToday(ctx context.Context) ([]models.TeacherActivity, error)
	WeakestStudents(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	StudentMarks(ctx context.Context, email string) ([]models.StudentMark, error)
	TeacherQuestionsBySubject(ctx context.Context, name string) ([]models.SubjectCount, error)
}

type reportService struct {
	userRepo     repository.UserRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	clock        Clock
	logger       zerolog.Logger
}

func NewReportService(
	userRepo repository.UserRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	clock Clock,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		userRepo:     userRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		clock:        clock,
		logger:       logger,
	}
}

func (s *reportService) StudentPerformance(ctx context.Context, student *auth.Session) ([]models.SubjectAverage, error) {
	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{
		StudentEmail: student.Email,
		Stages:       archivedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return SubjectAverages(answers), nil
}

func (s *reportService) ClassLeaderboard(ctx context.Context, student *auth.Session) (*models.ClassLeaderboard, error) {
	user, err := s.userRepo.GetByEmail(ctx, student.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	students, err := s.userRepo.List(ctx, models.UserFilter{
		Roles: []models.Role{models.RoleStudent},
		Class: user.Class,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	board := &models.ClassLeaderboard{Class: user.Class, Entries: []models.LeaderboardEntry{}}
	if len(students) == 0 {
		return board, nil
	}

	emails := make([]string, len(students))
	for i := range students {
		emails[i] = students[i].Email
	}

	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{
		StudentEmails: emails,
		Stages:        archivedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	board.Entries = rankEntries(averagesByStudent(answers, students))
	for _, e := range board.Entries {
		if e.Email == user.Email {
			board.MyRank = e.Rank
			break
		}
	}

	return board, nil
}

func (s *reportService) TopPerClass(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	averages, err := s.allStudentAverages(ctx)
	if err != nil {
		return nil, err
	}
	return topPerClass(averages, n), nil
}

func (s *reportService) WeakestStudents(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultWeakestN
	}

	averages, err := s.allStudentAverages(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(averages, func(i, j int) bool { return averages[i].average < averages[j].average })
	if len(averages) > n {
		averages = averages[:n]
	}

	entries := make([]models.LeaderboardEntry, len(averages))
	for i, a := range averages {
		entries[i] = models.LeaderboardEntry{
			Rank:    i + 1,
			Email:   a.user.Email,
			Name:    a.user.Name,
			Class:   a.user.Class,
			Average: round2(a.average),
		}
	}
	return entries, nil
}

func (s *reportService) allStudentAverages(ctx context.Context) ([]studentAverage, error) {
	students, err := s.userRepo.List(ctx, models.UserFilter{Roles: []models.Role{models.RoleStudent}})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{Stages: archivedOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	return averagesByStudent(answers, students), nil
}

// TeacherLeaderboard orders teachers by salary points. Ties keep the
// repository order and the rank is the position.
func (s *reportService) TeacherLeaderboard(ctx context.Context) ([]models.TeacherRank, error) {
	teachers, err := s.userRepo.List(ctx, models.UserFilter{Roles: []models.Role{models.RoleTeacher}})
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}

	sort.SliceStable(teachers, func(i, j int) bool {
		return teachers[i].SalaryPoints > teachers[j].SalaryPoints
	})

	ranks := make([]models.TeacherRank, len(teachers))
	for i, t := range teachers {
		ranks[i] = models.TeacherRank{
			Rank:         i + 1,
			Email:        t.Email,
			Name:         t.Name,
			SalaryPoints: t.SalaryPoints,
		}
	}
	return ranks, nil
}

// TeacherActivityToday reports, per staff member, the questions they created
// today and the ungraded live answers to any of their questions. Questions
// are matched to staff by exact name.
func (s *reportService) TeacherActivityToday(ctx context.Context) ([]models.TeacherActivity, error) {
	staff, err := s.userRepo.List(ctx, models.UserFilter{Roles: models.StaffRoles})
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	ungraded, err := s.answerRepo.List(ctx, models.AnswerFilter{
		Stages:       models.LiveStages,
		UngradedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	today := s.clock.Today()
	author := make(map[string]string, len(questions))
	createdToday := make(map[string]int)
	for _, q := range questions {
		author[q.ID] = q.UploadedBy
		if q.Date.Equal(today) {
			createdToday[q.UploadedBy]++
		}
	}

	pending := make(map[string]int)
	for _, a := range ungraded {
		if name, ok := author[a.QuestionID]; ok {
			pending[name]++
		}
	}

	activity := make([]models.TeacherActivity, len(staff))
	for i, u := range staff {
		activity[i] = models.TeacherActivity{
			Email:          u.Email,
			Name:           u.Name,
			Role:           u.Role,
			CreatedToday:   createdToday[u.Name],
			PendingAnswers: pending[u.Name],
		}
	}
	return activity, nil
}

func (s *reportService) StudentMarks(ctx context.Context, email string) ([]models.StudentMark, error) {
	email = models.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role != models.RoleStudent {
		return nil, ErrNotStudent
	}

	answers, err := s.answerRepo.List(ctx, models.AnswerFilter{
		StudentEmail: email,
		Stages:       archivedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	marks := make([]models.StudentMark, 0, len(answers))
	for _, a := range answers {
		if !a.Graded() {
			continue
		}
		marks = append(marks, models.StudentMark{Date: a.Date, Subject: a.Subject, Mark: *a.Mark})
	}

	sort.SliceStable(marks, func(i, j int) bool { return marks[i].Date.Before(marks[j].Date) })

	return marks, nil
}

func (s *reportService) TeacherQuestionsBySubject(ctx context.Context, name string) ([]models.SubjectCount, error) {
	if trim(name) == "" {
		return nil, newValidationError("name", "name is required")
	}

	questions, err := s.questionRepo.List(ctx, models.QuestionFilter{UploadedBy: trim(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.Subject]++
	}

	result := make([]models.SubjectCount, 0, len(counts))
	for subject, n := range counts {
		result = append(result, models.SubjectCount{Subject: subject, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Subject < result[j].Subject })

	return result, nil
}
