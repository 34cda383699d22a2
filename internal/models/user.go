package models

import "slices"

// RoleSuperAdmin видит всё меню независимо от ролей узлов.
const RoleSuperAdmin = "super_admin"

// User — профиль текущего пользователя (GET /auth/me).
type User struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"user_nm"`
	Email       string   `json:"email_adres,omitempty"`
	OrgID       string   `json:"orgnzt_id,omitempty"`
	GroupID     string   `json:"group_id,omitempty"`
	Position    string   `json:"ofcps_nm,omitempty"`
	Status      string   `json:"emplyr_sttus_code,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasRole — проверка роли без учёта super_admin.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// IsSuperAdmin — пользователь с неограниченным доступом.
func (u *User) IsSuperAdmin() bool { return u.HasRole(RoleSuperAdmin) }

// HasPermission — проверка кода права.
func (u *User) HasPermission(code string) bool {
	return u != nil && slices.Contains(u.Permissions, code)
}
