// menu — нормализация дерева меню бэкенда, построение/разворачивание дерева,
// индекс для навигации и фильтрация по правам пользователя.
package menu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
)

var (
	// ErrMalformed — ответ не похож на список узлов меню.
	ErrMalformed = errors.New("malformed menu payload")
	// ErrMissingID — у узла нет числового идентификатора.
	ErrMissingID = errors.New("menu node has no id")
)

// Таблица соответствия полей. Ключи перечислены в порядке приоритета:
// берётся первый непустой.
//
//	ID       id, menu_id, menu_no
//	Name     menu_nm, name
//	Path     path, progrm_file_nm, url
//	Icon     icon, relate_image_nm
//	ParentID upper_menu_no, parent_id (иначе — охватывающий узел)
//	Order    menu_ordr, order_num, sort_order, order
//	IsActive display_yn != "N" и is_active != false
//	Roles    roles, required_roles, required_role
//	Children children
var (
	idKeys     = []string{"id", "menu_id", "menu_no"}
	nameKeys   = []string{"menu_nm", "name"}
	pathKeys   = []string{"path", "progrm_file_nm", "url"}
	iconKeys   = []string{"icon", "relate_image_nm"}
	parentKeys = []string{"upper_menu_no", "parent_id"}
	orderKeys  = []string{"menu_ordr", "order_num", "sort_order", "order"}
	roleKeys   = []string{"roles", "required_roles", "required_role"}
)

// Normalize разбирает ответ эндпоинта дерева меню.
//
// Принимает массив узлов, обёртки {"data": ...} и {"items": ...} или одиночный
// объект. Вложенность children сохраняется; для плоских списков дерево
// собирается через BuildTree.
func Normalize(raw []byte) ([]*models.MenuNode, error) {
	const op = "menu.Normalize"

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
	}

	items, err := unwrap(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	nodes, err := normalizeList(items, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nodes, nil
}

func unwrap(doc any) ([]any, error) {
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"data", "items"} {
			if inner, ok := v[key]; ok {
				if _, isNode := lookup(v, idKeys); !isNode {
					return unwrap(inner)
				}
			}
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformed, doc)
	}
}

func normalizeList(items []any, parent int64) ([]*models.MenuNode, error) {
	out := make([]*models.MenuNode, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %T", ErrMalformed, i, it)
		}

		n, err := normalizeNode(m, parent)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, n)
	}
	sortByOrder(out)

	return out, nil
}

func normalizeNode(m map[string]any, enclosing int64) (*models.MenuNode, error) {
	id, ok := intField(m, idKeys)
	if !ok {
		return nil, ErrMissingID
	}

	n := &models.MenuNode{
		ID:          id,
		Name:        stringField(m, nameKeys),
		Path:        stringField(m, pathKeys),
		Icon:        stringField(m, iconKeys),
		ParentID:    enclosing,
		IsActive:    active(m),
		Roles:       stringsField(m, roleKeys),
		Permissions: stringsField(m, []string{"permissions"}),
	}

	if p, ok := intField(m, parentKeys); ok && p != 0 {
		n.ParentID = p
	}
	if o, ok := floatField(m, orderKeys); ok {
		n.Order = o
	}

	if kids, ok := m["children"].([]any); ok && len(kids) > 0 {
		children, err := normalizeList(kids, n.ID)
		if err != nil {
			return nil, fmt.Errorf("menu %d: %w", n.ID, err)
		}
		n.Children = children
	}

	return n, nil
}

func active(m map[string]any) bool {
	if yn, ok := m["display_yn"].(string); ok && strings.EqualFold(strings.TrimSpace(yn), "N") {
		return false
	}

	switch v := m["is_active"].(type) {
	case bool:
		return v
	case string:
		return !strings.EqualFold(v, "false")
	}

	return true
}

// lookup возвращает первое непустое значение по списку ключей.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}

	return nil, false
}

func stringField(m map[string]any, keys []string) string {
	v, ok := lookup(m, keys)
	if !ok {
		return ""
	}

	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	}

	return ""
}

func floatField(m map[string]any, keys []string) (float64, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return 0, false
	}

	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// intField понимает "12", 12 и 12.0; дробная часть отбрасывается.
func intField(m map[string]any, keys []string) (int64, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return 0, false
	}

	if n, isNum := v.(json.Number); isNum {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	if s, isStr := v.(string); isStr {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}

	f, ok := floatField(map[string]any{"v": v}, []string{"v"})
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}

	return int64(f), true
}

func stringsField(m map[string]any, keys []string) []string {
	v, ok := lookup(m, keys)
	if !ok {
		return nil
	}

	switch x := v.(type) {
	case string:
		return []string{strings.TrimSpace(x)}
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	return nil
}
