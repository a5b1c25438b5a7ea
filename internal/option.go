package internal

import "github.com/starford/lorekeeper/internal/eventservice"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	publisher eventservice.Publisher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server and logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithPublisher routes event changes to p. Serve installs its SSE broker
// here; one-shot commands leave it unset.
func WithPublisher(p eventservice.Publisher) Option {
	return func(a *application) {
		a.publisher = p
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
