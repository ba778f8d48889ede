// Package metrics holds the Prometheus collectors for the pairing and
// credential lifecycle. Collectors live on a private registry so embedding
// hosts do not see them unless they mount Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "steamlink"

var (
	// Registry is the registry every collector in this package is registered on.
	Registry = prometheus.NewRegistry()

	// PairingPolls counts identity-provider poll results by outcome
	// (pending, rotated, ready, error).
	PairingPolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairing_polls_total",
		Help:      "Number of QR pairing poll round trips by outcome.",
	}, []string{"outcome"})

	// RelayPolls counts relay poll results by outcome
	// (pending, unauthorized, ready, error).
	RelayPolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_polls_total",
		Help:      "Number of relay poll round trips by outcome.",
	}, []string{"outcome"})

	// CredentialRefreshes counts refresh attempts by result (success, failure, skipped).
	CredentialRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_refresh_total",
		Help:      "Number of access token refresh attempts by result.",
	}, []string{"result"})

	// CredentialLoads counts credential store loads by status.
	CredentialLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_loads_total",
		Help:      "Number of stored credential loads by status.",
	}, []string{"status"})
)

func init() {
	Registry.MustRegister(PairingPolls, RelayPolls, CredentialRefreshes, CredentialLoads)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
