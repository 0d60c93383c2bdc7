package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"challenge-cards/internal/domain"
	"challenge-cards/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	age_group TEXT NOT NULL,
	profession TEXT NOT NULL,
	gender TEXT NOT NULL,
	background TEXT NOT NULL,
	education_level TEXT NOT NULL,
	country TEXT NULL,
	experience TEXT NULL,
	created_at DATETIME NOT NULL,
	last_login DATETIME NULL
);
`

const selectUser = `
SELECT id, email, password_hash, first_name, last_name, age_group, profession, gender,
	background, education_level, country, experience, created_at, last_login
FROM users`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	user.CreatedAt = time.Now().UTC()

	d := user.Demographics
	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, password_hash, first_name, last_name, age_group, profession, gender,
	background, education_level, country, experience, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		d.AgeGroup,
		d.Profession,
		d.Gender,
		d.Background,
		d.EducationLevel,
		d.Country,
		d.Experience,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: user already exists", domain.ErrConflict)
		}
		return 0, fmt.Errorf("%w: insert user: %v", domain.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: user last insert id: %v", domain.ErrStorage, err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: update last login: %v", domain.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: last login rows affected: %v", domain.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count users: %v", domain.ErrStorage, err)
	}
	return n, nil
}

func (r *UserRepository) DemographicBreakdown(ctx context.Context) ([]domain.DemographicGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT age_group, profession, gender, background, education_level, COUNT(*)
FROM users
GROUP BY age_group, profession, gender, background, education_level
ORDER BY COUNT(*) DESC, age_group, profession`)
	if err != nil {
		return nil, fmt.Errorf("%w: demographics: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var groups []domain.DemographicGroup
	for rows.Next() {
		var g domain.DemographicGroup
		if err := rows.Scan(&g.AgeGroup, &g.Profession, &g.Gender, &g.Background, &g.EducationLevel, &g.Count); err != nil {
			return nil, fmt.Errorf("%w: scan demographics: %v", domain.ErrStorage, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate demographics: %v", domain.ErrStorage, err)
	}
	return groups, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user       domain.User
		country    sql.NullString
		experience sql.NullString
		lastLogin  sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Demographics.AgeGroup,
		&user.Demographics.Profession,
		&user.Demographics.Gender,
		&user.Demographics.Background,
		&user.Demographics.EducationLevel,
		&country,
		&experience,
		&user.CreatedAt,
		&lastLogin,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: scan user: %v", domain.ErrStorage, err)
	}
	if country.Valid {
		user.Demographics.Country = &country.String
	}
	if experience.Valid {
		user.Demographics.Experience = &experience.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}
