package admin

// ParentSummary is the admin's view of a parent account (GET /api/admin/parents).
type ParentSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Child string `json:"child,omitempty"`
}

// StudentCredentials is the reply of POST /api/admin/students.
// DefaultPassword is handed to the mail service and never displayed.
type StudentCredentials struct {
	Message         string `json:"message"`
	RollNo          string `json:"rollNo"`
	Email           string `json:"email"`
	DefaultPassword string `json:"defaultPassword"`
	EmailSent       bool   `json:"emailSent"`
}
