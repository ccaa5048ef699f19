/*
Package observability turns context lifecycle events into Prometheus metrics.

Metrics plugs into a context through its hooks:

	m := observability.NewMetrics(prometheus.NewRegistry())
	ui := tether.NewUI(
		tether.WithLifecycleHooks(m.LifecycleHooks()),
		tether.WithDispatchHooks(m.DispatchHooks()),
	)

Handler exposes the registry in the Prometheus text format.
*/
package observability
