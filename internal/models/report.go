package models

type PendingHomework struct {
	Question       Question `json:"question"`
	PreviousAnswer string   `json:"previous_answer,omitempty"`
	Remarks        string   `json:"remarks,omitempty"`
	Mark           *Grade   `json:"mark,omitempty"`
}

type RevisionItem struct {
	Answer Answer `json:"answer"`
	Grade  string `json:"grade"`
}

type ClassSubjectCount struct {
	Class   string `json:"class"`
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

type SubjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Answers int     `json:"answers"`
}

type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Class   string  `json:"class"`
	Average float64 `json:"average"`
}

type ClassLeaderboard struct {
	Class   string             `json:"class"`
	Entries []LeaderboardEntry `json:"entries"`
	MyRank  int                `json:"my_rank,omitempty"`
}

type TeacherRank struct {
	Rank         int    `json:"rank"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	SalaryPoints int    `json:"salary_points"`
}

type TeacherActivity struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	CreatedToday   int    `json:"created_today"`
	PendingAnswers int    `json:"pending_answers"`
}

type StudentAnswers struct {
	StudentEmail string   `json:"student_email"`
	DisplayName  string   `json:"display_name"`
	Answers      []Answer `json:"answers"`
}

type StudentMark struct {
	Date    Date   `json:"date"`
	Subject string `json:"subject"`
	Mark    Grade  `json:"mark"`
}

type AdminOverview struct {
	TotalStudents   int `json:"total_students"`
	TotalTeachers   int `json:"total_teachers"`
	PendingStudents int `json:"pending_students"`
	PendingStaff    int `json:"pending_staff"`
}

type PlansResponse struct {
	Plans []Plan `json:"plans"`
	UPIID string `json:"upi_id,omitempty"`
}
