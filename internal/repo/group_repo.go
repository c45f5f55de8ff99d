package repo

import (
	"context"
	"database/sql"
	"errors"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{db: db} }

// GetSubject returns the display name of the group identified by its
// conversation id (e.g. "1203630...@g.us").
func (r *GroupRepo) GetSubject(ctx context.Context, groupJID string) (string, error) {
	var subject string
	err := r.db.QueryRowContext(ctx, `
SELECT subject
FROM wa_group
WHERE jid=? AND status=1
LIMIT 1
`, groupJID).Scan(&subject)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGroupNotFound
	}
	if err != nil {
		return "", err
	}
	return subject, nil
}
