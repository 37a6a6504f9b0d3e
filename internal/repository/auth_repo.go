package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"influx_events/internal/models"
)

const usersTable = "users"

type UserRepository struct {
	db       *sql.DB
	sb       sq.StatementBuilderType
	postgres bool
}

func NewUserRepository(db *sql.DB, driver string) *UserRepository {
	return &UserRepository{db: db, sb: statementBuilder(driver), postgres: driver == "postgres"}
}

// Ensure implementation of Authorization interface at compile time.
var _ Authorization = (*UserRepository)(nil)

// Create inserts a new user and returns its ID.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (int, error) {
	ins := r.sb.Insert(usersTable).Columns("username", "password_hash").Values(username, passwordHash)

	// lib/pq does not implement LastInsertId
	if r.postgres {
		q, args, err := ins.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "build insert user")
		}
		var id int
		if err := r.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, errors.Wrapf(err, "insert user %q", username)
		}
		return id, nil
	}

	q, args, err := ins.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build insert user")
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "insert user %q", username)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrapf(err, "get last insert id for user %q", username)
	}
	return int(lastID), nil
}

// GetByUsername fetches a user by username. Returns (nil, nil) if not found.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	q, args, err := r.sb.Select("id", "username", "password_hash").
		From(usersTable).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select user")
	}

	var u models.User
	err = r.db.QueryRowContext(ctx, q, args...).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "select user %q", username)
	}
	return &u, nil
}
