package models

import "time"

var Subjects = []string{"Hindi", "English", "Math", "Science", "SST", "Computer", "GK", "Advance Classes"}

var Classes = []string{"5th", "6th", "7th", "8th", "9th", "10th", "11th", "12th"}

func ValidSubject(s string) bool { return contains(Subjects, s) }

func ValidClass(c string) bool { return contains(Classes, c) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Question is a single homework question. It is never edited once created.
type Question struct {
	ID         string    `json:"id"`
	Class      string    `json:"class"`
	Date       Date      `json:"date"`
	UploadedBy string    `json:"uploaded_by"`
	Subject    string    `json:"subject"`
	Text       string    `json:"question"`
	CreatedAt  time.Time `json:"created_at"`
}

type QuestionFilter struct {
	Class      string
	Subject    string
	UploadedBy string
	Date       Date
	From       Date
	To         Date
	IDs        []string
}

func (f QuestionFilter) Match(q *Question) bool {
	if f.Class != "" && q.Class != f.Class {
		return false
	}
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.UploadedBy != "" && q.UploadedBy != f.UploadedBy {
		return false
	}
	if !f.Date.IsZero() && !q.Date.Equal(f.Date) {
		return false
	}
	if !f.From.IsZero() && q.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && q.Date.After(f.To) {
		return false
	}
	if f.IDs != nil && !contains(f.IDs, q.ID) {
		return false
	}
	return true
}
