package gen

import (
	"context"
)

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.Name,
		arg.PasswordHash,
		arg.Role,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Role,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM users
WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Role,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM users
ORDER BY id
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.ID,
			&i.Email,
			&i.Name,
			&i.PasswordHash,
			&i.Role,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateUserName = `-- name: UpdateUserName :execrows
UPDATE users SET name = ? WHERE id = ?
`

type UpdateUserNameParams struct {
	Name string
	ID   string
}

func (q *Queries) UpdateUserName(ctx context.Context, arg UpdateUserNameParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserName, arg.Name, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateUserRole = `-- name: UpdateUserRole :execrows
UPDATE users SET role = ? WHERE id = ?
`

type UpdateUserRoleParams struct {
	Role string
	ID   string
}

func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserRole, arg.Role, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const touchUser = `-- name: TouchUser :execrows
UPDATE users SET updated_at = ? WHERE id = ?
`

type TouchUserParams struct {
	UpdatedAt string
	ID        string
}

func (q *Queries) TouchUser(ctx context.Context, arg TouchUserParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, touchUser, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = ?
`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countAdmins = `-- name: CountAdmins :one
SELECT COUNT(*) FROM users WHERE role = 'admin'
`

func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAdmins)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const addUserSystem = `-- name: AddUserSystem :exec
INSERT OR IGNORE INTO user_systems (user_id, system) VALUES (?, ?)
`

type AddUserSystemParams struct {
	UserID string
	System string
}

func (q *Queries) AddUserSystem(ctx context.Context, arg AddUserSystemParams) error {
	_, err := q.db.ExecContext(ctx, addUserSystem, arg.UserID, arg.System)
	return err
}

const clearUserSystems = `-- name: ClearUserSystems :exec
DELETE FROM user_systems WHERE user_id = ?
`

func (q *Queries) ClearUserSystems(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, clearUserSystems, userID)
	return err
}

const listUserSystems = `-- name: ListUserSystems :many
SELECT system FROM user_systems WHERE user_id = ? ORDER BY system
`

func (q *Queries) ListUserSystems(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUserSystems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var system string
		if err := rows.Scan(&system); err != nil {
			return nil, err
		}
		items = append(items, system)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAllUserSystems = `-- name: ListAllUserSystems :many
SELECT user_id, system FROM user_systems ORDER BY user_id, system
`

func (q *Queries) ListAllUserSystems(ctx context.Context) ([]UserSystem, error) {
	rows, err := q.db.QueryContext(ctx, listAllUserSystems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserSystem
	for rows.Next() {
		var i UserSystem
		if err := rows.Scan(&i.UserID, &i.System); err != nil {
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
