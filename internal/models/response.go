package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type UploadResponse struct {
	OrderID int64          `json:"order_id"`
	Package string         `json:"package"`
	AddOns  string         `json:"add_ons,omitempty"`
	Status  string         `json:"status"`
	Images  []ImageSummary `json:"images"`
	Invoice *InvoiceInfo   `json:"invoice,omitempty"`
}

type ImageSummary struct {
	ImageID  int64  `json:"image_id,omitempty"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type VideoStatusResponse struct {
	VideoID     int64     `json:"video_id"`
	ImageID     int64     `json:"image_id"`
	Status      string    `json:"status"`
	Prompt      string    `json:"prompt"`
	RemoteJobID string    `json:"remote_job_id,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	VideoPath   string    `json:"video_path,omitempty"`
	Iteration   int       `json:"iteration"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FeedbackResponse struct {
	FeedbackID int64  `json:"feedback_id"`
	NewVideoID int64  `json:"new_video_id"`
	Status     string `json:"status"`
	NewPrompt  string `json:"new_prompt"`
	Iteration  int    `json:"iteration"`
}

type AdminOrderSummary struct {
	OrderID    int64            `json:"order_id"`
	ClientID   *int64           `json:"client_id,omitempty"`
	Package    string           `json:"package"`
	AddOns     string           `json:"add_ons,omitempty"`
	PhotoCount int              `json:"photos"`
	Status     string           `json:"status"`
	Date       time.Time        `json:"date"`
	Videos     []AdminVideoInfo `json:"videos"`
}

type AdminVideoInfo struct {
	VideoID   int64  `json:"video_id"`
	ImageID   int64  `json:"image_id"`
	Filename  string `json:"filename,omitempty"`
	URL       string `json:"url,omitempty"`
	Status    string `json:"status"`
	Iteration int    `json:"iteration"`
}

type AdminOrdersResponse struct {
	Orders []AdminOrderSummary `json:"orders"`
	Count  int                 `json:"count"`
}

type AdminStatusResponse struct {
	ImageID   int64  `json:"image_id"`
	VideoID   int64  `json:"video_id"`
	Status    string `json:"status"`
	VideoPath string `json:"video_path,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
}

type DownloadEntry struct {
	OrderID int64           `json:"order_id"`
	Package string          `json:"package"`
	AddOns  string          `json:"add_ons,omitempty"`
	Date    time.Time       `json:"date"`
	Videos  []DownloadVideo `json:"videos"`
}

type DownloadVideo struct {
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
}

type DownloadCenterResponse struct {
	Downloads []DownloadEntry `json:"downloads"`
	Count     int             `json:"count"`
}

type InvoiceInfo struct {
	ID      int64      `json:"id"`
	OrderID int64      `json:"order_id"`
	Amount  int64      `json:"amount"`
	Status  string     `json:"status"`
	Date    time.Time  `json:"date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
}

type NotificationInfo struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type GenerationStatusResponse struct {
	Mock          bool   `json:"mock"`
	APIKeyPresent bool   `json:"api_key_present"`
	Model         string `json:"model"`
	WillCharge    bool   `json:"will_charge"`
	VideosDir     string `json:"videos_dir"`
	UploadsDir    string `json:"uploads_dir"`
}

type AuthResponse struct {
	User        UserInfo `json:"user"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
}

type UserInfo struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email,omitempty"`
	IsGuest   bool      `json:"is_guest"`
	CreatedAt time.Time `json:"created_at"`
}
