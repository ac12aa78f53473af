package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/rs/zerolog"
)

// UserRepository stores accounts keyed by normalized email. Update never
// touches the password hash or salary points; those have their own
// single-column writes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	IncrementSalaryPoints(ctx context.Context, email string, delta int) (int, error)
}

type userRepository struct {
	*PostgresRepository
}

func NewUserRepository(db *sql.DB, logger zerolog.Logger) UserRepository {
	return &userRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const userColumns = `
	email, name, father_name, mobile, class, role, password_hash, plan,
	security_question, security_answer, payment_confirmed, confirmed,
	subscription_start, subscribed_till, parent_phonepe, salary_points,
	instruction, instruction_reply, instruction_status, receipt_key,
	created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.FatherName,
		user.Mobile,
		user.Class,
		string(user.Role),
		user.PasswordHash,
		user.Plan,
		user.SecurityQuestion,
		user.SecurityAnswer,
		user.PaymentConfirmed,
		user.Confirmed,
		user.SubscriptionStart,
		user.SubscribedTill,
		user.ParentPhonePe,
		user.SalaryPoints,
		user.Instruction,
		user.InstructionReply,
		string(user.InstructionStatus),
		user.ReceiptKey,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}

	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var c conditions
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		c.add("role = ANY($%d)", pq.Array(roles))
	}
	if filter.Class != "" {
		c.add("class = $%d", filter.Class)
	}
	if filter.PaymentConfirmed != nil {
		c.add("payment_confirmed = $%d", *filter.PaymentConfirmed)
	}
	if filter.Confirmed != nil {
		c.add("confirmed = $%d", *filter.Confirmed)
	}

	query := `SELECT ` + userColumns + ` FROM users` + c.where() + ` ORDER BY created_at, email`

	rows, err := r.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, father_name = $2, mobile = $3, class = $4, role = $5, plan = $6,
			security_question = $7, security_answer = $8, payment_confirmed = $9,
			confirmed = $10, subscription_start = $11, subscribed_till = $12,
			parent_phonepe = $13, instruction = $14, instruction_reply = $15,
			instruction_status = $16, receipt_key = $17, updated_at = $18
		WHERE email = $19
	`

	_, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.FatherName,
		user.Mobile,
		user.Class,
		string(user.Role),
		user.Plan,
		user.SecurityQuestion,
		user.SecurityAnswer,
		user.PaymentConfirmed,
		user.Confirmed,
		user.SubscriptionStart,
		user.SubscribedTill,
		user.ParentPhonePe,
		user.Instruction,
		user.InstructionReply,
		string(user.InstructionStatus),
		user.ReceiptKey,
		user.UpdatedAt,
		user.Email,
	)

	return err
}

func (r *userRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE email = $2`
	_, err := r.db.ExecContext(ctx, query, passwordHash, email)
	return err
}

func (r *userRepository) IncrementSalaryPoints(ctx context.Context, email string, delta int) (int, error) {
	query := `
		UPDATE users
		SET salary_points = salary_points + $1, updated_at = NOW()
		WHERE email = $2
		RETURNING salary_points
	`

	var points int
	err := r.db.QueryRowContext(ctx, query, delta, email).Scan(&points)
	return points, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role, status string

	err := row.Scan(
		&user.Email,
		&user.Name,
		&user.FatherName,
		&user.Mobile,
		&user.Class,
		&role,
		&user.PasswordHash,
		&user.Plan,
		&user.SecurityQuestion,
		&user.SecurityAnswer,
		&user.PaymentConfirmed,
		&user.Confirmed,
		&user.SubscriptionStart,
		&user.SubscribedTill,
		&user.ParentPhonePe,
		&user.SalaryPoints,
		&user.Instruction,
		&user.InstructionReply,
		&status,
		&user.ReceiptKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	user.InstructionStatus = models.InstructionStatus(status)
	return user, nil
}
