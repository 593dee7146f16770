package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler exposing the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

// Mux returns a ServeMux serving the metrics at the configured path.
func (c *Collector) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	c.Register(mux)
	return mux
}

// Register serves the metrics at the configured path on mux.
func (c *Collector) Register(mux *http.ServeMux) {
	mux.Handle(c.config.Path, c.Handler())
}

// WriteTextfile writes the metrics in the node exporter textfile format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %q: %w", path, err)
	}
	return nil
}
