package bundle

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"text/template"

	"quest-maker/internal/achievements"
	"quest-maker/internal/models"
	"quest-maker/internal/serializer"
)

const (
	// ContentType - тип сгенерированного документа.
	ContentType = "text/html; charset=utf-8"

	// FallbackTitle и FallbackIcon подставляются при разборе, если маркеров нет.
	FallbackTitle = "Imported Game"
	FallbackIcon  = "🎮"

	scenariosKey    = "const scenarios = "
	achievementsKey = "const allAchievements = "
)

//go:embed templates/bundle.html.tmpl templates/player.js
var templatesFS embed.FS

var (
	page   = template.Must(template.ParseFS(templatesFS, "templates/bundle.html.tmpl"))
	player = mustRead("templates/player.js")

	// Блок данных начинается с новой строки. Заголовок и иконка пишутся без переводов строк,
	// а JSON не может содержать сырой перевод строки внутри строки, поэтому оба разделителя
	// встречаются в сгенерированном документе ровно по одному разу.
	scenariosMarker    = regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(scenariosKey))
	achievementsMarker = regexp.MustCompile(`;[ \t]*\r?\n[ \t]*` + regexp.QuoteMeta(achievementsKey))

	titleMarker = regexp.MustCompile(`<title>(.*?)</title>`)
	// snack-icon встречается в файлах, выгруженных ранними версиями редактора
	iconMarker = regexp.MustCompile(`<span class="(?:quest|snack)-icon">(.*?)</span>`)
)

func mustRead(name string) string {
	data, err := templatesFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

type pageData struct {
	Title            string
	Icon             string
	AchievementCount int
	DataBlock        string
	Player           string
}

// Generate собирает самостоятельный HTML-документ с данными квеста и встроенным плеером.
func Generate(meta models.GameMeta) ([]byte, error) {
	graph := meta.Scenarios
	if graph == nil {
		graph = models.NewGraph()
	}
	list := achievements.FromGraph(graph)

	scenariosJSON, err := json.MarshalIndent(graph, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenarios: %w", err)
	}
	achievementsJSON, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal achievements: %w", err)
	}

	var block strings.Builder
	block.WriteString(scenariosKey)
	block.Write(scenariosJSON)
	block.WriteString(";\n")
	block.WriteString(achievementsKey)
	block.Write(achievementsJSON)
	block.WriteString(";")

	var buf bytes.Buffer
	err = page.Execute(&buf, pageData{
		Title:            escapeText(meta.Title),
		Icon:             escapeText(meta.Icon),
		AchievementCount: len(list),
		DataBlock:        block.String(),
		Player:           player,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// escapeText экранирует HTML и переводы строк, чтобы значение оставалось в одной строке документа.
func escapeText(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r", "&#13;")
	return strings.ReplaceAll(s, "\n", "&#10;")
}

// Parse извлекает квест из документа, созданного Generate.
// Блок данных разбирается строго как JSON и никогда не исполняется.
// Нет разделителей - ErrFormat, содержимое между ними не JSON-объект - ErrParse/ErrSchema.
// Заголовок и иконка не обязательны: без маркеров берутся FallbackTitle и FallbackIcon.
func Parse(doc []byte) (models.GameMeta, error) {
	starts := scenariosMarker.FindAllIndex(doc, 2)
	if len(starts) == 0 {
		return models.GameMeta{}, fmt.Errorf("%w: %q not found", models.ErrFormat, strings.TrimSpace(scenariosKey))
	}
	if len(starts) > 1 {
		return models.GameMeta{}, fmt.Errorf("%w: %q appears more than once", models.ErrFormat, strings.TrimSpace(scenariosKey))
	}
	rest := doc[starts[0][1]:]
	end := achievementsMarker.FindIndex(rest)
	if end == nil {
		return models.GameMeta{}, fmt.Errorf("%w: %q not found after the scenarios block", models.ErrFormat, strings.TrimSpace(achievementsKey))
	}

	graph, err := serializer.LoadGraph(bytes.TrimSpace(rest[:end[0]]))
	if err != nil {
		return models.GameMeta{}, err
	}

	return models.GameMeta{
		Title:     markerText(doc, titleMarker, FallbackTitle),
		Icon:      markerText(doc, iconMarker, FallbackIcon),
		Scenarios: graph,
	}, nil
}

func markerText(doc []byte, re *regexp.Regexp, fallback string) string {
	m := re.FindSubmatch(doc)
	if m == nil {
		return fallback
	}
	return html.UnescapeString(string(m[1]))
}

// Filename - имя файла для скачивания документа.
func Filename(title string) string {
	return serializer.Slug(title) + ".html"
}
