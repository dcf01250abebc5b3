package gen

import (
	"context"
)

const appendActivity = `-- name: AppendActivity :exec
INSERT INTO activity (id, user_id, action, metadata, created_at)
VALUES (?, ?, ?, ?, ?)
`

type AppendActivityParams struct {
	ID        string
	UserID    string
	Action    string
	Metadata  string
	CreatedAt string
}

func (q *Queries) AppendActivity(ctx context.Context, arg AppendActivityParams) error {
	_, err := q.db.ExecContext(ctx, appendActivity,
		arg.ID,
		arg.UserID,
		arg.Action,
		arg.Metadata,
		arg.CreatedAt,
	)
	return err
}

const listRecentActivity = `-- name: ListRecentActivity :many
SELECT id, user_id, action, metadata, created_at
FROM activity
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentActivity(ctx context.Context, limit int64) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, listRecentActivity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Activity
	for rows.Next() {
		var i Activity
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Action,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
