package gen

import (
	"context"
)

const createResource = `-- name: CreateResource :exec
INSERT INTO resources (id, system, type, data, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateResourceParams struct {
	ID        string
	System    string
	Type      string
	Data      string
	OwnerID   string
	CreatedAt string
	UpdatedAt string
}

func (q *Queries) CreateResource(ctx context.Context, arg CreateResourceParams) error {
	_, err := q.db.ExecContext(ctx, createResource,
		arg.ID,
		arg.System,
		arg.Type,
		arg.Data,
		arg.OwnerID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getResource = `-- name: GetResource :one
SELECT id, system, type, data, owner_id, created_at, updated_at
FROM resources
WHERE system = ? AND type = ? AND id = ?
`

type GetResourceParams struct {
	System string
	Type   string
	ID     string
}

func (q *Queries) GetResource(ctx context.Context, arg GetResourceParams) (Resource, error) {
	row := q.db.QueryRowContext(ctx, getResource, arg.System, arg.Type, arg.ID)
	var i Resource
	err := row.Scan(
		&i.ID,
		&i.System,
		&i.Type,
		&i.Data,
		&i.OwnerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const replaceResourceData = `-- name: ReplaceResourceData :execrows
UPDATE resources
SET data = ?, updated_at = ?
WHERE system = ? AND type = ? AND id = ?
`

type ReplaceResourceDataParams struct {
	Data      string
	UpdatedAt string
	System    string
	Type      string
	ID        string
}

func (q *Queries) ReplaceResourceData(ctx context.Context, arg ReplaceResourceDataParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, replaceResourceData,
		arg.Data,
		arg.UpdatedAt,
		arg.System,
		arg.Type,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteResource = `-- name: DeleteResource :execrows
DELETE FROM resources WHERE system = ? AND type = ? AND id = ?
`

type DeleteResourceParams struct {
	System string
	Type   string
	ID     string
}

func (q *Queries) DeleteResource(ctx context.Context, arg DeleteResourceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteResource, arg.System, arg.Type, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countByMonthAndType = `-- name: CountByMonthAndType :many
SELECT CAST(substr(created_at, 6, 2) AS INTEGER) AS month, type, COUNT(*) AS count
FROM resources
WHERE system = ? AND created_at >= ?
GROUP BY month, type
ORDER BY month, type
`

type CountByMonthAndTypeParams struct {
	System string
	Since  string
}

type CountByMonthAndTypeRow struct {
	Month int64
	Type  string
	Count int64
}

func (q *Queries) CountByMonthAndType(ctx context.Context, arg CountByMonthAndTypeParams) ([]CountByMonthAndTypeRow, error) {
	rows, err := q.db.QueryContext(ctx, countByMonthAndType, arg.System, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountByMonthAndTypeRow
	for rows.Next() {
		var i CountByMonthAndTypeRow
		if err := rows.Scan(&i.Month, &i.Type, &i.Count); err != nil {
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

const countResources = `-- name: CountResources :one
SELECT COUNT(*) FROM resources WHERE system = ?
`

func (q *Queries) CountResources(ctx context.Context, system string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countResources, system)
	var count int64
	err := row.Scan(&count)
	return count, err
}
