package models

import (
	"database/sql"
	"time"
)

type Order struct {
	ID            int64
	UserID        sql.NullInt64
	Package       string
	AddOns        sql.NullString
	ParentOrderID sql.NullInt64
	CreatedAt     time.Time
}

type UploadedImage struct {
	ID               int64
	OrderID          int64
	Filename         string
	StoredFilename   string
	Prompt           sql.NullString
	VideoPath        sql.NullString
	VideoURL         sql.NullString
	UploadTime       time.Time
	VideoGeneratedAt sql.NullTime
}

type Video struct {
	ID            int64
	ImageID       int64
	Prompt        string
	RemoteJobID   sql.NullString
	Status        VideoStatus
	VideoPath     sql.NullString
	VideoURL      sql.NullString
	ParentVideoID sql.NullInt64
	Iteration     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Feedback struct {
	ID           int64
	VideoID      int64
	FeedbackText string
	NewPrompt    string
	CreatedAt    time.Time
}

type Invoice struct {
	ID        int64
	OrderID   int64
	UserID    int64
	Amount    int64
	IsPaid    bool
	PaidAt    sql.NullTime
	CreatedAt time.Time
}

type User struct {
	ID           int64
	Email        sql.NullString
	PasswordHash sql.NullString
	IsGuest      bool
	IsAdmin      bool
	CreatedAt    time.Time
}

type Notification struct {
	ID        int64
	UserID    int64
	Category  string
	Message   string
	CreatedAt time.Time
}
