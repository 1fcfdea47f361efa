package serializer

import (
	"encoding/json"
	"fmt"
	"regexp"

	"quest-maker/internal/models"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ContentType - тип документа данных при скачивании.
const ContentType = "application/json"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Dump сериализует квест в документ {title, icon, scenarios} с отступом в два пробела.
// Значения не преобразуются, порядок сценариев сохраняется.
func Dump(meta models.GameMeta) ([]byte, error) {
	if meta.Scenarios == nil {
		meta.Scenarios = models.NewGraph()
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quest: %w", err)
	}
	return data, nil
}

// Load разбирает документ данных.
// Некорректный JSON - ErrParse; отсутствие или неверный тип title/icon/scenarios,
// а также граф без "start" - ErrSchema. Лишние поля игнорируются.
func Load(data []byte) (models.GameMeta, error) {
	if !gjson.ValidBytes(data) {
		return models.GameMeta{}, fmt.Errorf("%w: document is not valid JSON", models.ErrParse)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return models.GameMeta{}, fmt.Errorf("%w: document must be an object", models.ErrSchema)
	}

	title, err := stringField(root, "title")
	if err != nil {
		return models.GameMeta{}, err
	}
	icon, err := stringField(root, "icon")
	if err != nil {
		return models.GameMeta{}, err
	}

	raw := root.Get("scenarios")
	if !raw.Exists() {
		return models.GameMeta{}, fmt.Errorf("%w: missing %q", models.ErrSchema, "scenarios")
	}
	graph, err := LoadGraph([]byte(raw.Raw))
	if err != nil {
		return models.GameMeta{}, err
	}

	return models.GameMeta{Title: title, Icon: icon, Scenarios: graph}, nil
}

// LoadGraph разбирает объект сценариев и требует наличия "start".
func LoadGraph(data []byte) (*models.Graph, error) {
	var graph models.Graph
	if err := graph.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if !graph.Has(models.StartID) {
		return nil, fmt.Errorf("%w: scenarios have no %q entry", models.ErrSchema, models.StartID)
	}
	return &graph, nil
}

func stringField(root gjson.Result, key string) (string, error) {
	v := root.Get(key)
	if !v.Exists() {
		return "", fmt.Errorf("%w: missing %q", models.ErrSchema, key)
	}
	if v.Type != gjson.String {
		return "", fmt.Errorf("%w: %q must be a string", models.ErrSchema, key)
	}
	return v.String(), nil
}

// Slug - заголовок в нижнем регистре, где каждая серия пробельных символов заменена на "_".
func Slug(title string) string {
	return whitespaceRun.ReplaceAllString(cases.Lower(language.Und).String(title), "_")
}

// Filename - имя файла для скачивания документа данных.
func Filename(title string) string {
	return Slug(title) + "_data.json"
}
