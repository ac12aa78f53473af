package sheetstore

import (
	"context"
	"strconv"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/rs/zerolog"
)

// Column names follow the original users sheet so existing data loads as is.
const (
	colUserName          = "User Name"
	colFatherName        = "Father Name"
	colEmail             = "Gmail ID"
	colMobile            = "Mobile Number"
	colClass             = "Class"
	colPassword          = "Password"
	colPlan              = "Subscription Plan"
	colSecurityQuestion  = "Security Question"
	colSecurityAnswer    = "Security Answer"
	colRole              = "Role"
	colPaymentConfirmed  = "Payment Confirmed"
	colSubscriptionDate  = "Subscription Date"
	colSubscribedTill    = "Subscribed Till"
	colParentPhonePe     = "Parent PhonePe"
	colConfirmed         = "Confirmed"
	colSalaryPoints      = "Salary Points"
	colInstruction       = "Instruction"
	colInstructionReply  = "Instruction_Reply"
	colInstructionStatus = "Instruction_Status"
	colReceiptKey        = "Receipt Key"
)

var userColumns = []string{
	colUserName, colFatherName, colEmail, colMobile, colClass, colPassword,
	colPlan, colSecurityQuestion, colSecurityAnswer, colRole,
	colPaymentConfirmed, colSubscriptionDate, colSubscribedTill,
	colParentPhonePe, colConfirmed, colSalaryPoints, colInstruction,
	colInstructionReply, colInstructionStatus, colReceiptKey, colCreatedAt,
	colUpdatedAt,
}

type userRepository struct {
	t *table
}

func NewUserRepository(gw *sheets.Gateway, tableID string, logger zerolog.Logger) repository.UserRepository {
	return &userRepository{t: newTable(gw, tableID, userColumns, logger)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	tb, err := r.t.load(ctx)
	if err != nil {
		return err
	}
	if len(tb.Find(colEmail, user.Email)) > 0 {
		return repository.ErrDuplicate
	}

	rec := userRecord(user)
	rec[colPassword] = user.PasswordHash
	rec[colSalaryPoints] = strconv.Itoa(user.SalaryPoints)
	rec[colCreatedAt] = formatTime(user.CreatedAt)

	return r.t.append(ctx, rec)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	rows := tb.Find(colEmail, email)
	if len(rows) == 0 {
		return nil, nil
	}

	return r.parse(tb, rows[0]), nil
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	tb, err := r.t.load(ctx)
	if err != nil {
		return nil, err
	}

	var users []models.User
	for i := 0; i < tb.Len(); i++ {
		u := r.parse(tb, i)
		if u.Email == "" || !matchUser(filter, u) {
			continue
		}
		users = append(users, *u)
	}

	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	rec := userRecord(user)
	_, err := r.t.update(ctx, colEmail, user.Email, func(tb *sheets.Table, row int) {
		for col, v := range rec {
			tb.Set(row, col, v)
		}
	})
	return err
}

func (r *userRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := r.t.update(ctx, colEmail, email, func(tb *sheets.Table, row int) {
		tb.Set(row, colPassword, passwordHash)
	})
	return err
}

func (r *userRepository) IncrementSalaryPoints(ctx context.Context, email string, delta int) (int, error) {
	var points int
	_, err := r.t.update(ctx, colEmail, email, func(tb *sheets.Table, row int) {
		points = parseInt(tb.Get(row, colSalaryPoints)) + delta
		tb.Set(row, colSalaryPoints, strconv.Itoa(points))
	})
	return points, err
}

// userRecord holds every column Update may rewrite.
func userRecord(u *models.User) map[string]string {
	return map[string]string{
		colUserName:          u.Name,
		colFatherName:        u.FatherName,
		colEmail:             u.Email,
		colMobile:            u.Mobile,
		colClass:             u.Class,
		colPlan:              u.Plan,
		colSecurityQuestion:  u.SecurityQuestion,
		colSecurityAnswer:    u.SecurityAnswer,
		colRole:              string(u.Role),
		colPaymentConfirmed:  yesNo(u.PaymentConfirmed),
		colSubscriptionDate:  u.SubscriptionStart.String(),
		colSubscribedTill:    u.SubscribedTill.String(),
		colParentPhonePe:     u.ParentPhonePe,
		colConfirmed:         yesNo(u.Confirmed),
		colInstruction:       u.Instruction,
		colInstructionReply:  u.InstructionReply,
		colInstructionStatus: string(u.InstructionStatus),
		colReceiptKey:        u.ReceiptKey,
		colUpdatedAt:         formatTime(u.UpdatedAt),
	}
}

func (r *userRepository) parse(tb *sheets.Table, row int) *models.User {
	role, err := models.ParseRole(tb.Get(row, colRole))
	if err != nil {
		role = models.Role(tb.Get(row, colRole))
	}

	return &models.User{
		Email:             models.NormalizeEmail(tb.Get(row, colEmail)),
		Name:              tb.Get(row, colUserName),
		FatherName:        tb.Get(row, colFatherName),
		Mobile:            tb.Get(row, colMobile),
		Class:             tb.Get(row, colClass),
		Role:              role,
		PasswordHash:      tb.Get(row, colPassword),
		Plan:              tb.Get(row, colPlan),
		SecurityQuestion:  tb.Get(row, colSecurityQuestion),
		SecurityAnswer:    tb.Get(row, colSecurityAnswer),
		PaymentConfirmed:  parseYes(tb.Get(row, colPaymentConfirmed)),
		Confirmed:         parseYes(tb.Get(row, colConfirmed)),
		SubscriptionStart: r.t.parseDate(tb.Get(row, colSubscriptionDate), colSubscriptionDate),
		SubscribedTill:    r.t.parseDate(tb.Get(row, colSubscribedTill), colSubscribedTill),
		ParentPhonePe:     tb.Get(row, colParentPhonePe),
		SalaryPoints:      parseInt(tb.Get(row, colSalaryPoints)),
		Instruction:       tb.Get(row, colInstruction),
		InstructionReply:  tb.Get(row, colInstructionReply),
		InstructionStatus: models.InstructionStatus(tb.Get(row, colInstructionStatus)),
		ReceiptKey:        tb.Get(row, colReceiptKey),
		CreatedAt:         parseTime(tb.Get(row, colCreatedAt)),
		UpdatedAt:         parseTime(tb.Get(row, colUpdatedAt)),
	}
}

func matchUser(f models.UserFilter, u *models.User) bool {
	if len(f.Roles) > 0 {
		ok := false
		for _, role := range f.Roles {
			if u.Role == role {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Class != "" && u.Class != f.Class {
		return false
	}
	if f.PaymentConfirmed != nil && u.PaymentConfirmed != *f.PaymentConfirmed {
		return false
	}
	if f.Confirmed != nil && u.Confirmed != *f.Confirmed {
		return false
	}
	return true
}
