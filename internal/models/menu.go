package models

// MenuNode — нормализованный узел дерева меню.
//
// Инварианты:
//   - ParentID == 0 — корень;
//   - Children упорядочены по возрастанию Order (при равенстве сохраняется
//     исходный порядок).
type MenuNode struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Path        string      `json:"path,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	ParentID    int64       `json:"parent_id,omitempty"`
	Order       float64     `json:"order"`
	IsActive    bool        `json:"is_active"`
	Roles       []string    `json:"roles,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
	Children    []*MenuNode `json:"children,omitempty"`
}

// IsRoot — узел верхнего уровня.
func (n *MenuNode) IsRoot() bool { return n.ParentID == 0 }
