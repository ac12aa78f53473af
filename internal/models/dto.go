package models

import "time"

// Data Transfer Objects

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
	User      *User     `json:"user"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	SecurityAnswer  string `json:"security_answer" validate:"required,notblank"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type RegisterStudentRequest struct {
	Name             string `json:"name" validate:"required,notblank,max=255"`
	FatherName       string `json:"father_name" validate:"required,notblank,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Mobile           string `json:"mobile" validate:"required,notblank,max=20"`
	Class            string `json:"class" validate:"required,class"`
	ParentPhonePe    string `json:"parent_phonepe" validate:"required,notblank,max=20"`
	Password         string `json:"password" validate:"required"`
	ConfirmPassword  string `json:"confirm_password" validate:"required"`
	Plan             string `json:"plan" validate:"required,plan"`
	SecurityQuestion string `json:"security_question" validate:"required,security_question"`
	SecurityAnswer   string `json:"security_answer" validate:"required,notblank"`
}

type RegisterTeacherRequest struct {
	Name             string `json:"name" validate:"required,notblank,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Mobile           string `json:"mobile" validate:"required,notblank,max=20"`
	Password         string `json:"password" validate:"required"`
	ConfirmPassword  string `json:"confirm_password" validate:"required"`
	SecurityQuestion string `json:"security_question" validate:"required,security_question"`
	SecurityAnswer   string `json:"security_answer" validate:"required,notblank"`
}

type CreateHomeworkRequest struct {
	Class     string   `json:"class" validate:"required,class"`
	Subject   string   `json:"subject" validate:"required,subject"`
	Date      Date     `json:"date"`
	Questions []string `json:"questions" validate:"required,min=1"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"required,notblank"`
}

type GradeAnswerRequest struct {
	Grade   int    `json:"grade" validate:"required,min=1,max=5"`
	Remarks string `json:"remarks" validate:"max=2000"`
}

type AnnouncementRequest struct {
	Message string `json:"message" validate:"required,notblank,max=2000"`
}

type InstructionRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Instruction string `json:"instruction" validate:"required,notblank,max=2000"`
}

type InstructionReplyRequest struct {
	Reply string `json:"reply" validate:"required,notblank,max=2000"`
}

// ReceiptUpload is sent before the student can log in, so it carries the
// password instead of a session.
type ReceiptUpload struct {
	Email       string
	Password    string
	FileName    string
	ContentType string
	Size        int64
}

type InstructionResponse struct {
	Instruction string            `json:"instruction,omitempty"`
	Reply       string            `json:"reply,omitempty"`
	Status      InstructionStatus `json:"status,omitempty"`
	AwaitsReply bool              `json:"awaits_reply"`
}
