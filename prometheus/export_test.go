package prometheus

import "github.com/prometheus/client_golang/prometheus"

// Outcomes exposes the outcome counter for testing.
func (o *Observer) Outcomes() *prometheus.CounterVec { return o.outcomes }

// Updates exposes the content update counter for testing.
func (o *Observer) Updates() prometheus.Counter { return o.updates }

// Active exposes the in-flight gauge for testing.
func (o *Observer) Active() prometheus.Gauge { return o.active }
