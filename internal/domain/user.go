package domain

type UserRole string

const (
	UserRoleStaff     UserRole = "staff"
	UserRoleApprover  UserRole = "approver"
	UserRoleAdmin     UserRole = "admin"
	UserRoleSuperuser UserRole = "superuser"
)

// ApproverRoles are the roles allowed to decide an application.
var ApproverRoles = []UserRole{UserRoleApprover, UserRoleAdmin, UserRoleSuperuser}

type User struct {
	ID           int32    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PhoneNumber  string   `json:"phone_number"`
	PasswordHash string   `json:"-"`
	Grade        int32    `json:"grade"`
	Role         UserRole `json:"role"`
	Division     string   `json:"division"`
	CreatedOn    string   `json:"created_on"`
	UpdatedOn    string   `json:"updated_on"`
}

func (u *User) HasApproverRole() bool {
	for _, r := range ApproverRoles {
		if u.Role == r {
			return true
		}
	}
	return false
}
