package menu

import (
	"slices"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
)

// Flatten разворачивает дерево в прямом порядке (узел, затем его дети).
//
// Возвращаются копии без Children; у вложенных узлов ParentID приводится к
// фактическому родителю в дереве.
func Flatten(roots []*models.MenuNode) []*models.MenuNode {
	var out []*models.MenuNode

	var walk func(nodes []*models.MenuNode, parent *models.MenuNode)
	walk = func(nodes []*models.MenuNode, parent *models.MenuNode) {
		for _, n := range nodes {
			if n == nil {
				continue
			}

			cp := *n
			cp.Children = nil
			if parent != nil {
				cp.ParentID = parent.ID
			}
			out = append(out, &cp)

			walk(n.Children, n)
		}
	}
	walk(roots, nil)

	return out
}

// BuildTree собирает дерево из плоского списка по ParentID.
//
// Братья сортируются по возрастанию Order, при равенстве сохраняется исходный
// порядок. Узлы с отсутствующим родителем становятся корнями, циклы
// разрываются на первом по порядку узле цикла. Повторный ID игнорируется.
// Входные узлы не изменяются.
func BuildTree(flat []*models.MenuNode) []*models.MenuNode {
	nodes := make([]*models.MenuNode, 0, len(flat))
	byID := make(map[int64]*models.MenuNode, len(flat))
	for _, n := range flat {
		if n == nil {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			continue
		}

		cp := *n
		cp.Children = nil
		nodes = append(nodes, &cp)
		byID[cp.ID] = &cp
	}

	parent := make(map[int64]*models.MenuNode, len(nodes))
	for _, n := range nodes {
		if p, ok := byID[n.ParentID]; ok && n.ParentID != 0 && p != n {
			parent[n.ID] = p
		}
	}

	// Узел, цепочка предков которого возвращается к нему самому, лежит на цикле.
	for _, n := range nodes {
		cur := parent[n.ID]
		for steps := 0; cur != nil && cur != n && steps < len(nodes); steps++ {
			cur = parent[cur.ID]
		}
		if cur == n {
			delete(parent, n.ID)
		}
	}

	var roots []*models.MenuNode
	for _, n := range nodes {
		if p, ok := parent[n.ID]; ok {
			p.Children = append(p.Children, n)
			continue
		}
		roots = append(roots, n)
	}

	sortByOrder(roots)
	for _, n := range nodes {
		sortByOrder(n.Children)
	}

	return roots
}

func sortByOrder(nodes []*models.MenuNode) {
	slices.SortStableFunc(nodes, func(a, b *models.MenuNode) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		}
		return 0
	})
}

// Tree — дерево меню с индексами для навигации. Неизменяемо после создания.
type Tree struct {
	roots  []*models.MenuNode
	flat   []*models.MenuNode
	byID   map[int64]*models.MenuNode
	byPath map[string]*models.MenuNode
	parent map[int64]*models.MenuNode
}

// NewTree индексирует готовое дерево (обычно результат BuildTree).
func NewTree(roots []*models.MenuNode) *Tree {
	t := &Tree{
		roots:  roots,
		byID:   make(map[int64]*models.MenuNode),
		byPath: make(map[string]*models.MenuNode),
		parent: make(map[int64]*models.MenuNode),
	}

	var walk func(nodes []*models.MenuNode, parent *models.MenuNode)
	walk = func(nodes []*models.MenuNode, parent *models.MenuNode) {
		for _, n := range nodes {
			if _, seen := t.byID[n.ID]; seen {
				continue
			}

			t.flat = append(t.flat, n)
			t.byID[n.ID] = n
			if parent != nil {
				t.parent[n.ID] = parent
			}
			if _, taken := t.byPath[n.Path]; n.Path != "" && !taken {
				t.byPath[n.Path] = n
			}

			walk(n.Children, n)
		}
	}
	walk(roots, nil)

	return t
}

// Roots — корневые узлы.
func (t *Tree) Roots() []*models.MenuNode { return slices.Clone(t.roots) }

// Flat — все узлы в прямом порядке.
func (t *Tree) Flat() []*models.MenuNode { return slices.Clone(t.flat) }

// Len — число узлов.
func (t *Tree) Len() int { return len(t.flat) }

func (t *Tree) ByID(id int64) (*models.MenuNode, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// ByPath — первый в прямом порядке узел с данным путём.
func (t *Tree) ByPath(path string) (*models.MenuNode, bool) {
	n, ok := t.byPath[path]
	return n, ok
}

// Breadcrumb — цепочка от корня до узла включительно; nil для неизвестного id.
func (t *Tree) Breadcrumb(id int64) []*models.MenuNode {
	n, ok := t.byID[id]
	if !ok {
		return nil
	}

	var chain []*models.MenuNode
	for cur := n; cur != nil; cur = t.parent[cur.ID] {
		chain = append(chain, cur)
	}
	slices.Reverse(chain)

	return chain
}

// ActiveRoots — копия дерева только из активных узлов. Неактивный узел
// скрывает и всё своё поддерево.
func (t *Tree) ActiveRoots() []*models.MenuNode {
	return prune(t.roots, func(n *models.MenuNode) bool { return n.IsActive })
}

// prune копирует поддеревья, узлы которых проходят keep.
func prune(nodes []*models.MenuNode, keep func(*models.MenuNode) bool) []*models.MenuNode {
	var out []*models.MenuNode
	for _, n := range nodes {
		if !keep(n) {
			continue
		}

		cp := *n
		cp.Children = prune(n.Children, keep)
		out = append(out, &cp)
	}

	return out
}
