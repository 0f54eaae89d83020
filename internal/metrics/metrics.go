package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - counters of the game coordinator. A nil *Metrics is valid and records nothing.
type Metrics struct {
	GamesCreated  prometheus.Counter
	GamesJoined   prometheus.Counter
	Moves         *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func New(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Number of games created by matchmaking",
		}),
		GamesJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_joined_total",
			Help:      "Number of second players seated in a game",
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Submitted moves by result",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Published state change notifications by result",
		}, []string{"result"}),
	}

	registerer.MustRegister(
		m.GamesCreated,
		m.GamesJoined,
		m.Moves,
		m.Notifications,
	)

	return m
}

func (that *Metrics) IncGamesCreated() {
	if that == nil {
		return
	}
	that.GamesCreated.Inc()
}

func (that *Metrics) IncGamesJoined() {
	if that == nil {
		return
	}
	that.GamesJoined.Inc()
}

// ObserveMove - result is "ok" or an apperror kind.
func (that *Metrics) ObserveMove(result string) {
	if that == nil {
		return
	}
	that.Moves.WithLabelValues(result).Inc()
}

func (that *Metrics) ObserveNotification(ok bool) {
	if that == nil {
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}
	that.Notifications.WithLabelValues(result).Inc()
}
