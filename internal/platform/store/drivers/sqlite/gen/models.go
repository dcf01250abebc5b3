package gen

// Timestamps are kept as the stored text; the driver parses them.

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

type UserSystem struct {
	UserID string
	System string
}

type Resource struct {
	ID        string
	System    string
	Type      string
	Data      string
	OwnerID   string
	CreatedAt string
	UpdatedAt string
}

type Activity struct {
	ID        string
	UserID    string
	Action    string
	Metadata  string
	CreatedAt string
}
