// model/student.go
package model

type Student struct {
	ID          int64  `json:"id"`
	AdmissionNo string `json:"admission_no"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	ClassName   string `json:"class_name"`
	Section     string `json:"section"`
	BranchID    int64  `json:"branch_id"`
}

func (s Student) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
