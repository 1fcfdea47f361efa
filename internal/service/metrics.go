package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	choicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_play_choices_total",
			Help: "Total number of choices made in play mode by result.",
		},
		[]string{"result"},
	)

	achievementsUnlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quest_achievements_unlocked_total",
		Help: "Total number of achievements unlocked in play mode.",
	})

	importsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_imports_total",
			Help: "Total number of import attempts by format and status.",
		},
		[]string{"format", "status"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_exports_total",
			Help: "Total number of exports by format.",
		},
		[]string{"format"},
	)

	librarySavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quest_library_saves_total",
		Help: "Total number of quests saved to the library.",
	})
)
