package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/auditorium_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository читает таблицу users. Пишет в неё сервис аутентификации,
// нам нужно только количество для метрик
type UserRepository struct {
	*base.Repository
}

// NewUserRepository создаёт репозиторий пользователей
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// CountUsers количество зарегистрированных пользователей
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
