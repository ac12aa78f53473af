package models

import (
	"strings"
	"time"
)

// AnswerStage replaces the separate live and archive tables: submitted and
// returned answers are live, archived answers form the answer bank.
type AnswerStage string

const (
	StageSubmitted AnswerStage = "submitted"
	StageReturned  AnswerStage = "returned"
	StageArchived  AnswerStage = "archived"
)

var LiveStages = []AnswerStage{StageSubmitted, StageReturned}

func (s AnswerStage) Live() bool {
	return s == StageSubmitted || s == StageReturned
}

func ParseStage(s string) AnswerStage {
	switch AnswerStage(strings.ToLower(strings.TrimSpace(s))) {
	case StageReturned:
		return StageReturned
	case StageArchived:
		return StageArchived
	default:
		return StageSubmitted
	}
}

type Answer struct {
	ID           string      `json:"id"`
	StudentEmail string      `json:"student_email"`
	QuestionID   string      `json:"question_id"`
	Date         Date        `json:"date"`
	Class        string      `json:"class"`
	Subject      string      `json:"subject"`
	Question     string      `json:"question"`
	Text         string      `json:"answer"`
	Mark         *Grade      `json:"mark"`
	Remarks      string      `json:"remarks"`
	Stage        AnswerStage `json:"stage"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (a *Answer) Graded() bool { return a.Mark != nil }

// NeedsRework reports whether the teacher returned the answer with remarks,
// which makes its question pending again for the student.
func (a *Answer) NeedsRework() bool {
	return a.Stage == StageReturned && strings.TrimSpace(a.Remarks) != ""
}

type AnswerFilter struct {
	StudentEmail  string
	StudentEmails []string
	QuestionIDs   []string
	Stages        []AnswerStage
	Class         string
	UngradedOnly  bool
}

func (f AnswerFilter) Match(a *Answer) bool {
	if f.StudentEmail != "" && a.StudentEmail != f.StudentEmail {
		return false
	}
	if f.StudentEmails != nil && !contains(f.StudentEmails, a.StudentEmail) {
		return false
	}
	if f.QuestionIDs != nil && !contains(f.QuestionIDs, a.QuestionID) {
		return false
	}
	if f.Stages != nil {
		ok := false
		for _, s := range f.Stages {
			if a.Stage == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Class != "" && a.Class != f.Class {
		return false
	}
	if f.UngradedOnly && a.Graded() {
		return false
	}
	return true
}
