package domain

// User is a wallet owner. Authentication and KYC live outside this system;
// only the owner reference that accounts hang off is kept here.
type User struct {
	UserID string `json:"userID"` // Primary Key (UUID)
	Email  string `json:"email"`
	Name   string `json:"name"`
	AuditFields
}
