package db

import (
	"context"
	"fmt"
)

// Residents and posts are owned by other services; tests seed them directly.

type residentRow struct {
	Login       string
	DisplayName string
	Email       string
	IsActive    bool
}

func createResident(ctx context.Context, conn DBTX, row residentRow) (int64, error) {
	var id int64
	err := conn.QueryRow(ctx, `
		INSERT INTO residents (login, display_name, email, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		row.Login, row.DisplayName, row.Email, row.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed resident %q: %w", row.Login, err)
	}
	return id, nil
}

func createPost(ctx context.Context, conn DBTX, authorID int64, content string) (int64, error) {
	var id int64
	err := conn.QueryRow(ctx, `
		INSERT INTO posts (author_id, content)
		VALUES ($1, $2)
		RETURNING id`,
		authorID, content,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed post: %w", err)
	}
	return id, nil
}
