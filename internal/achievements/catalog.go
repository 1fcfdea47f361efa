package achievements

import "quest-maker/internal/models"

// GraphReader - всё, что нужно каталогу от хранилища.
type GraphReader interface {
	Graph() *models.Graph
}

// Catalog - производное представление: список достижений квеста.
// Своего состояния не хранит, пересчитывается при каждом вызове.
type Catalog struct {
	source GraphReader
}

// NewCatalog создает каталог поверх источника графа.
func NewCatalog(source GraphReader) *Catalog {
	return &Catalog{source: source}
}

// List возвращает непустые достижения в порядке графа.
func (c *Catalog) List() []string {
	return FromGraph(c.source.Graph())
}

// FromGraph перечисляет непустые достижения графа в порядке вставки.
// Повторы не схлопываются: два сценария с одним достижением дают две записи.
func FromGraph(g *models.Graph) []string {
	list := []string{}
	for _, s := range g.Scenarios() {
		if s.Achievement != "" {
			list = append(list, s.Achievement)
		}
	}
	return list
}
