package model

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleFriend Role = "friend"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleFriend
}

// User is a participant of the dashboard.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Task is a template activity that progress records refer to.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ProgressRecord is one day of logged activity for one user.
// At most one record exists per (UserID, Date).
type ProgressRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Date           string    `json:"date"` // YYYY-MM-DD
	CompletedTasks []string  `json:"completedTasks"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Attachment is an opaque reference to content stored elsewhere.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Message is a direct message between two users. Immutable once created.
type Message struct {
	ID         string      `json:"id"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Post is an entry in a group feed.
type Post struct {
	ID         string      `json:"id"`
	AuthorID   string      `json:"authorId"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Group is a named set of members sharing a feed.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Members     []string `json:"members"`
	Posts       []Post   `json:"posts"`
}

// StatusUpdate is a short broadcast from one user.
type StatusUpdate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppState is the whole persisted application state. It is saved and
// loaded wholesale; CurrentUser is a view of the session identity.
type AppState struct {
	Users       []User           `json:"users"`
	Tasks       []Task           `json:"tasks"`
	Records     []ProgressRecord `json:"records"`
	Messages    []Message        `json:"messages"`
	Groups      []Group          `json:"groups"`
	Statuses    []StatusUpdate   `json:"statuses"`
	CurrentUser *User            `json:"currentUser"`
}

// seedEpoch is the fixed join time of seeded users.
var seedEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultState returns a fresh state with the seeded coach and task
// templates and empty (non-nil) collections.
func DefaultState() AppState {
	return AppState{
		Users: []User{
			{ID: "coach", Name: "Coach", Username: "coach", Role: RoleAdmin, JoinedAt: seedEpoch},
		},
		Tasks: []Task{
			{ID: "workout", Title: "Workout", Description: "30 minutes of exercise"},
			{ID: "reading", Title: "Reading", Description: "Read 20 pages"},
			{ID: "water", Title: "Hydration", Description: "Drink 2L of water"},
			{ID: "journal", Title: "Journal", Description: "Write down the day"},
		},
		Records:  []ProgressRecord{},
		Messages: []Message{},
		Groups:   []Group{},
		Statuses: []StatusUpdate{},
	}
}

// Normalize replaces nil collections with empty ones so that a decoded
// partial blob behaves like a complete state.
func (s AppState) Normalize() AppState {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Records == nil {
		s.Records = []ProgressRecord{}
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.Groups == nil {
		s.Groups = []Group{}
	}
	if s.Statuses == nil {
		s.Statuses = []StatusUpdate{}
	}
	return s
}
