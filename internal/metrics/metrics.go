// Package metrics собирает счётчики запуска и выгружает их в текстовом формате Prometheus,
// чтобы node_exporter мог подобрать их через textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tyiler"

type Collector struct {
	registry       *prometheus.Registry
	foldersChecked prometheus.Counter
	imagesTiled    *prometheus.CounterVec
	tilesGenerated *prometheus.CounterVec
	folderErrors   prometheus.Counter
	runDuration    prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		foldersChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_checked_total",
			Help:      "Subfolders scanned for images.",
		}),
		imagesTiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_tiled_total",
			Help:      "Images split into tiles, by kind.",
		}, []string{"kind"}),
		tilesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_generated_total",
			Help:      "Tile files written, by kind.",
		}, []string{"kind"}),
		folderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folder_errors_total",
			Help:      "Folders that finished with at least one error.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	c.registry.MustRegister(c.foldersChecked, c.imagesTiled, c.tilesGenerated, c.folderErrors, c.runDuration)
	return c
}

func (c *Collector) FolderChecked() {
	c.foldersChecked.Inc()
}

func (c *Collector) FolderFailed() {
	c.folderErrors.Inc()
}

func (c *Collector) ImageTiled(kind string, tiles int) {
	c.imagesTiled.WithLabelValues(kind).Inc()
	c.tilesGenerated.WithLabelValues(kind).Add(float64(tiles))
}

func (c *Collector) RunFinished(d time.Duration) {
	c.runDuration.Set(d.Seconds())
}

// Registry нужен тестам и тем, кто захочет отдать метрики по HTTP
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile атомарно записывает все метрики в файл
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
