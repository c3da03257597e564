package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

// CreateComment checks the one-comment-per-author rule and inserts inside a
// single transaction, so two concurrent attempts cannot both pass the check.
// The UNIQUE(item_id, author_id) constraint backs the same rule at the
// storage level.
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE item_id = ? AND author_id = ?)`,
		comment.ItemID, comment.AuthorID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing comment: %w", err)
	}
	if exists {
		return fmt.Errorf("item %d author %d: %w", comment.ItemID, comment.AuthorID, ErrDuplicateComment)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO comments (item_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.ItemID, comment.AuthorID, comment.Text, comment.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("item %d author %d: %w", comment.ItemID, comment.AuthorID, ErrDuplicateComment)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comment: %w", err)
	}

	comment.ID = id
	return nil
}

func (db *DB) HasCommentFrom(ctx context.Context, itemID, authorID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE item_id = ? AND author_id = ?)`,
		itemID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check comment existence: %w", err)
	}
	return exists, nil
}

// GetItemComments returns the item's comments ordered by creation time,
// ties broken by id.
func (db *DB) GetItemComments(ctx context.Context, itemID int64) ([]models.Comment, error) {
	query := `SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created_at
              FROM comments c JOIN users u ON u.id = c.author_id
              WHERE c.item_id = ? ORDER BY c.created_at, c.id`
	rows, err := db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var created time.Time
		err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = created
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}
