package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/core/port"
	"github.com/edujoy/auth-service/internal/repository"
)

var studentColumns = []string{
	"id",
	"user_id",
	"parent_id",
	"name",
	"grade",
	"gender",
	"date_of_birth",
	"xp",
	"created_at",
}

// StudentRepository implements port.StudentRepository using PostgreSQL.
type StudentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewStudentRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewStudentRepository(exec pgExecutor) *StudentRepository {
	repo := &StudentRepository{
		exec:    exec,
		builder: newBuilder(),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *StudentRepository) WithTx(tx pgx.Tx) *StudentRepository {
	if tx == nil {
		return r
	}
	return &StudentRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new student profile.
func (r *StudentRepository) Create(ctx context.Context, student domain.Student) error {
	stmt, args, err := r.builder.Insert("students").
		Columns(studentColumns...).
		Values(
			student.ID,
			student.UserID,
			student.ParentID,
			student.Name,
			student.Grade,
			student.Gender,
			student.DateOfBirth,
			student.XP,
			student.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert student sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}

	return nil
}

// GetByUserID retrieves the student profile attached to a user account.
func (r *StudentRepository) GetByUserID(ctx context.Context, userID string) (*domain.Student, error) {
	stmt, args, err := r.builder.
		Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select student sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var student domain.Student
	if err := row.Scan(
		&student.ID,
		&student.UserID,
		&student.ParentID,
		&student.Name,
		&student.Grade,
		&student.Gender,
		&student.DateOfBirth,
		&student.XP,
		&student.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}

	return &student, nil
}

// ListByParent returns all child profiles owned by the parent, oldest first.
func (r *StudentRepository) ListByParent(ctx context.Context, parentID string) ([]domain.Student, error) {
	stmt, args, err := r.builder.
		Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"parent_id": parentID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list students sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []domain.Student
	for rows.Next() {
		var student domain.Student
		if err := rows.Scan(
			&student.ID,
			&student.UserID,
			&student.ParentID,
			&student.Name,
			&student.Grade,
			&student.Gender,
			&student.DateOfBirth,
			&student.XP,
			&student.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}

var _ port.StudentRepository = (*StudentRepository)(nil)
