package users

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
	// 1ユーザに割当できるIP数の上限
	MaxAssignedIPs = 10
)

type UserResponse struct {
	UserID         int64  `json:"user_id"`
	PersonnelNo    string `json:"personnel_no"`
	FullName       string `json:"full_name"`
	DepartmentCode string `json:"department_code,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	AssignedIPs    string `json:"assigned_ip_addresses,omitempty"`
}

type UpdateAssignedIPsRequest struct {
	// 空文字で割当解除
	AssignedIPs string `json:"assigned_ip_addresses"`
}

type ListQuery struct {
	DepartmentCode *string
	Limit          int
	Offset         int
}
