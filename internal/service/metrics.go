package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moves_total",
			Help: "Move submissions by admission result",
		},
		[]string{"result"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_finished_total",
			Help: "Games that reached a terminal state",
		},
		[]string{"outcome"},
	)
	OpponentMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opponent_moves_total",
			Help: "Automated opponent replies by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(MovesTotal)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(OpponentMoves)
}
