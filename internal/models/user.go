package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent   Role = "Student"
	RoleTeacher   Role = "Teacher"
	RoleAdmin     Role = "Admin"
	RolePrincipal Role = "Principal"
)

var StaffRoles = []Role{RoleTeacher, RoleAdmin, RolePrincipal}

func (r Role) String() string { return string(r) }

// IsStaff reports whether the role logs in through administrator confirmation
// rather than a paid subscription.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin || r == RolePrincipal
}

func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleStudent, RoleTeacher, RoleAdmin, RolePrincipal} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type InstructionStatus string

const (
	InstructionNone    InstructionStatus = ""
	InstructionSent    InstructionStatus = "Sent"
	InstructionReplied InstructionStatus = "Replied"
)

// SecurityQuestions are the only questions offered at registration.
var SecurityQuestions = []string{
	"What is your mother's maiden name?",
	"What was the name of your first pet?",
	"What city were you born in?",
}

func ValidSecurityQuestion(q string) bool {
	for _, s := range SecurityQuestions {
		if s == q {
			return true
		}
	}
	return false
}

type User struct {
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	FatherName        string            `json:"father_name,omitempty"`
	Mobile            string            `json:"mobile"`
	Class             string            `json:"class,omitempty"`
	Role              Role              `json:"role"`
	PasswordHash      string            `json:"-"`
	Plan              string            `json:"plan,omitempty"`
	SecurityQuestion  string            `json:"security_question"`
	SecurityAnswer    string            `json:"-"`
	PaymentConfirmed  bool              `json:"payment_confirmed"`
	Confirmed         bool              `json:"confirmed"`
	SubscriptionStart Date              `json:"subscription_start"`
	SubscribedTill    Date              `json:"subscribed_till"`
	ParentPhonePe     string            `json:"parent_phonepe,omitempty"`
	SalaryPoints      int               `json:"salary_points"`
	Instruction       string            `json:"instruction,omitempty"`
	InstructionReply  string            `json:"instruction_reply,omitempty"`
	InstructionStatus InstructionStatus `json:"instruction_status,omitempty"`
	ReceiptKey        string            `json:"-"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// DisplayName renders students as "Name (Class)" and everyone else by name.
func (u *User) DisplayName() string {
	if u.Role == RoleStudent && u.Class != "" {
		return fmt.Sprintf("%s (%s)", u.Name, u.Class)
	}
	return u.Name
}

// SubscriptionActive reports whether a student may log in on the given day.
func (u *User) SubscriptionActive(today Date) bool {
	if !u.PaymentConfirmed || u.SubscribedTill.IsZero() {
		return false
	}
	return !today.After(u.SubscribedTill)
}

// HasPendingInstruction reports whether the principal's instruction still
// awaits a reply.
func (u *User) HasPendingInstruction() bool {
	return u.InstructionStatus == InstructionSent &&
		strings.TrimSpace(u.Instruction) != "" &&
		strings.TrimSpace(u.InstructionReply) == ""
}

// NormalizeEmail trims and lower-cases an address; it is the user key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAnswer prepares a security answer for storage and comparison.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

type UserFilter struct {
	Roles            []Role
	Class            string
	PaymentConfirmed *bool
	Confirmed        *bool
}

// Profile is what a logged-in user sees about themselves.
type Profile struct {
	User             *User `json:"user"`
	MilestoneReached bool  `json:"milestone_reached"`
	DaysRemaining    *int  `json:"days_remaining,omitempty"`
}
