package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Graph - отображение id -> Scenario с сохранением порядка вставки.
// Порядок важен: в нём сценарии показываются редактору, перечисляются
// достижения и записываются ключи в JSON.
type Graph struct {
	order []string
	items map[string]Scenario
}

// NewGraph создает граф из сценариев в переданном порядке.
// Повторный id заменяет сценарий, сохраняя его первую позицию.
func NewGraph(scenarios ...Scenario) *Graph {
	g := &Graph{items: make(map[string]Scenario, len(scenarios))}
	for _, s := range scenarios {
		g.Put(s.ID, s)
	}
	return g
}

// Len возвращает количество сценариев.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Has сообщает, есть ли сценарий с таким id.
func (g *Graph) Has(id string) bool {
	if g == nil {
		return false
	}
	_, ok := g.items[id]
	return ok
}

// Get возвращает копию сценария.
func (g *Graph) Get(id string) (Scenario, bool) {
	if g == nil {
		return Scenario{}, false
	}
	s, ok := g.items[id]
	if !ok {
		return Scenario{}, false
	}
	return s.Clone(), true
}

// Scenario позволяет использовать статичный граф как источник данных для движка игры.
func (g *Graph) Scenario(id string) (Scenario, bool) {
	return g.Get(id)
}

// IDs возвращает идентификаторы в порядке графа.
func (g *Graph) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Scenarios возвращает копии всех сценариев в порядке графа.
func (g *Graph) Scenarios() []Scenario {
	if g == nil {
		return nil
	}
	out := make([]Scenario, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.items[id].Clone())
	}
	return out
}

// Put вставляет или заменяет сценарий под ключом id.
// Поле ID сценария приводится к ключу.
func (g *Graph) Put(id string, s Scenario) {
	if g.items == nil {
		g.items = make(map[string]Scenario)
	}
	s = s.Clone()
	s.ID = id
	if _, exists := g.items[id]; !exists {
		g.order = append(g.order, id)
	}
	g.items[id] = s
}

// Delete удаляет сценарий. Возвращает false, если его не было.
func (g *Graph) Delete(id string) bool {
	if _, ok := g.items[id]; !ok {
		return false
	}
	delete(g.items, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// Rekey переносит сценарий oldID под ключ newID на ту же позицию.
// Ссылки в выборах не трогает. Вызывающий проверяет, что newID свободен.
func (g *Graph) Rekey(oldID, newID string) bool {
	s, ok := g.items[oldID]
	if !ok {
		return false
	}
	delete(g.items, oldID)
	s.ID = newID
	g.items[newID] = s
	for i, v := range g.order {
		if v == oldID {
			g.order[i] = newID
			break
		}
	}
	return true
}

// Clone возвращает глубокую копию графа.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return NewGraph()
	}
	c := &Graph{
		order: make([]string, len(g.order)),
		items: make(map[string]Scenario, len(g.items)),
	}
	copy(c.order, g.order)
	for id, s := range g.items {
		c.items[id] = s.Clone()
	}
	return c
}

// Equal сравнивает порядок ключей и содержимое сценариев.
func (g *Graph) Equal(o *Graph) bool {
	if g.Len() != o.Len() {
		return false
	}
	if g.Len() == 0 {
		return true
	}
	for i, id := range g.order {
		if o.order[i] != id {
			return false
		}
		if !g.items[id].Equal(o.items[id]) {
			return false
		}
	}
	return true
}

// MarshalJSON пишет объект, ключи которого идут в порядке графа.
func (g *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if g != nil {
		for i, id := range g.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(id)
			if err != nil {
				return nil, err
			}
			s := g.items[id]
			if s.Choices == nil {
				s.Choices = []Choice{}
			}
			val, err := json.Marshal(s)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: %w", id, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON читает объект сценариев, сохраняя порядок ключей документа.
// Неизвестные поля сценариев и выборов игнорируются.
func (g *Graph) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid scenarios JSON", ErrParse)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: scenarios must be an object", ErrSchema)
	}

	decoded := NewGraph()
	var decodeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			decodeErr = fmt.Errorf("%w: scenario %q must be an object", ErrSchema, key.String())
			return false
		}
		var s Scenario
		if err := json.Unmarshal([]byte(value.Raw), &s); err != nil {
			decodeErr = fmt.Errorf("%w: scenario %q: %v", ErrSchema, key.String(), err)
			return false
		}
		decoded.Put(key.String(), s)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}

	*g = *decoded
	return nil
}
