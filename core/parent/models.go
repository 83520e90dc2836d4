package parent

type Profile struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
	Child       string `json:"child"`
	ChildRollNo string `json:"childRollNo,omitempty"`
}
