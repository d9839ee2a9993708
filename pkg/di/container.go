// Package di provides dependency injection container
package di

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/api"     //nolint:depguard
	"github.com/ssargent/howfar/pkg/archive"
	"github.com/ssargent/howfar/pkg/config"
	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/uf2"
)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *logrus.Logger
	serverFactory api.ServerFactory
	registerer    prometheus.Registerer

	metricsOnce sync.Once
	metrics     *api.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		config:        config.DefaultConfig(),
		logger:        logrus.StandardLogger(),
		serverFactory: api.NewServerFactory(),
		registerer:    prometheus.DefaultRegisterer,
	}
}

// GetConfig returns the active configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// SetConfig replaces the active configuration
func (c *Container) SetConfig(cfg *config.Config) {
	c.config = cfg
}

// GetLogger returns the root logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}

// SetLogger replaces the root logger
func (c *Container) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a logger entry tagged with the component name
func (c *Container) Logger(component string) *logrus.Entry {
	return c.logger.WithField("component", component)
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetRegisterer sets where API metrics are registered; call before Metrics
func (c *Container) SetRegisterer(reg prometheus.Registerer) {
	c.registerer = reg
}

// Metrics returns the API metrics, registering them on first use
func (c *Container) Metrics() *api.Metrics {
	c.metricsOnce.Do(func() {
		c.metrics = api.NewMetrics(c.registerer)
	})
	return c.metrics
}

// DatabaseOptions returns the dump decoding options implied by the config
func (c *Container) DatabaseOptions() ([]howfar.Option, error) {
	loc, err := c.config.Location()
	if err != nil {
		return nil, err
	}
	return []howfar.Option{
		howfar.WithLocation(loc),
		howfar.WithLogger(c.logger.WithFields(logrus.Fields{})),
		howfar.WithTargetFamily(uint32(c.config.Container.TargetFamily)),
	}, nil
}

// Encoder returns a UF2 encoder for settings uploads
func (c *Container) Encoder() *uf2.Encoder {
	return uf2.NewEncoder(
		uf2.WithFamilyID(uint32(c.config.Container.FamilyID)),
		uf2.WithAppStartAddr(uint32(c.config.Container.AppStartAddr)),
	)
}

// OpenArchive opens the capture archive named in the config
func (c *Container) OpenArchive() (*archive.Archive, error) {
	loc, err := c.config.Location()
	if err != nil {
		return nil, err
	}
	return archive.Open(archive.Config{
		Dir:          c.config.ArchiveDir,
		Logger:       c.logger.WithFields(logrus.Fields{}),
		Location:     loc,
		TargetFamily: uint32(c.config.Container.TargetFamily),
	})
}
