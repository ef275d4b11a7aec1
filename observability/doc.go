// Package observability exports bitsetcache events as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	obs, err := observability.NewPrometheusObserver(reg, "nested")
//	if err != nil {
//	    return err
//	}
//	c := bitsetcache.New(bitsetcache.WithName("nested"), bitsetcache.WithMetricsObserver(obs))
package observability
