package users

import (
	"database/sql"
	"time"
)

// usersテーブルの行
type userRow struct {
	UserID         int64
	TcNo           string
	PersonnelNo    string
	FirstName      string
	LastName       string
	DepartmentCode sql.NullString
	DepartmentName sql.NullString
	AssignedIPs    sql.NullString
	CreatedAt      time.Time
}

type User struct {
	UserID         int64
	TcNo           string
	PersonnelNo    string
	FirstName      string
	LastName       string
	DepartmentCode string
	DepartmentName string
	// 割当IPの区切り文字列（"," / ";"）。空 = 割当なし。
	AssignedIPs string
	CreatedAt   time.Time
}

func (r userRow) toModel() User {
	return User{
		UserID:         r.UserID,
		TcNo:           r.TcNo,
		PersonnelNo:    r.PersonnelNo,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		DepartmentCode: r.DepartmentCode.String,
		DepartmentName: r.DepartmentName.String,
		AssignedIPs:    r.AssignedIPs.String,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u User) toDTO() UserResponse {
	return UserResponse{
		UserID:         u.UserID,
		PersonnelNo:    u.PersonnelNo,
		FullName:       u.FullName(),
		DepartmentCode: u.DepartmentCode,
		DepartmentName: u.DepartmentName,
		AssignedIPs:    u.AssignedIPs,
	}
}
