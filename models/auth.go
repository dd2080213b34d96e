package models

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// ReferenceResponse is returned after a report has been filed
type ReferenceResponse struct {
	ReferenceNumber string `json:"referenceNumber"`
}
