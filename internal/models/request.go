package models

type FeedbackRequest struct {
	FeedbackText string `json:"feedback_text" binding:"required"`
}

type AdminStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AdminRegenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
