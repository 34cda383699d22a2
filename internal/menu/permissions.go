package menu

import (
	"slices"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
)

// Visible — может ли пользователь видеть узел.
//
// Неактивные узлы скрыты всегда. super_admin видит остальное без проверок;
// иначе узел с Permissions требует хотя бы одно из прав, узел с Roles —
// хотя бы одну из ролей.
func Visible(n *models.MenuNode, u *models.User) bool {
	if n == nil || !n.IsActive {
		return false
	}
	if u.IsSuperAdmin() {
		return true
	}
	if len(n.Permissions) > 0 && !slices.ContainsFunc(n.Permissions, u.HasPermission) {
		return false
	}
	if len(n.Roles) > 0 && !slices.ContainsFunc(n.Roles, u.HasRole) {
		return false
	}

	return true
}

// Filter возвращает копию дерева из видимых пользователю узлов.
// Скрытый узел скрывает всё поддерево.
func Filter(roots []*models.MenuNode, u *models.User) []*models.MenuNode {
	return prune(roots, func(n *models.MenuNode) bool { return Visible(n, u) })
}

// CanAccess — путь есть в дереве и он и все его предки видимы пользователю.
func (t *Tree) CanAccess(path string, u *models.User) bool {
	n, ok := t.ByPath(path)
	if !ok {
		return false
	}

	for _, step := range t.Breadcrumb(n.ID) {
		if !Visible(step, u) {
			return false
		}
	}

	return true
}
