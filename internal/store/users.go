package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"codehive/backend/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, username, email, avatar, passwordHash string) (models.User, error) {
	user := models.User{Username: username, Email: email, Avatar: avatar}
	query := `INSERT INTO users (username, email, avatar, password_hash) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, query, username, email, avatar, passwordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	query := `SELECT id, username, email, avatar, password_hash, created_at, updated_at FROM users WHERE email = $1`
	err := s.pool.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.Avatar, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	query := `SELECT id, username, email, avatar, password_hash, created_at, updated_at FROM users WHERE username = $1`
	err := s.pool.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.Avatar, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
