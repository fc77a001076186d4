package proxy

import (
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/proxyfactory/build"
	"github.com/chazu/proxyfactory/loader"
	"github.com/chazu/proxyfactory/schema"
)

type config struct {
	prefix     string
	cache      *loader.Cache
	compiler   build.Compiler
	loader     loader.Loader
	log        commonlog.Logger
	timeout    time.Duration
	loadSchema func(importPath string) (*schema.Package, error)
}

func defaultConfig() config {
	return config{
		cache:      loader.Default,
		loader:     loader.PluginLoader{},
		log:        log,
		loadSchema: schema.Load,
	}
}

// Option configures a Factory.
type Option func(*config)

// WithPrefix sets the prefix of the proxy type name. The default is empty.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithCache resolves types through cache instead of loader.Default.
func WithCache(cache *loader.Cache) Option {
	return func(c *config) { c.cache = cache }
}

// WithCompiler replaces the plugin compiler.
func WithCompiler(compiler build.Compiler) Option {
	return func(c *config) { c.compiler = compiler }
}

// WithLoader replaces the plugin loader.
func WithLoader(l loader.Loader) Option {
	return func(c *config) { c.loader = l }
}

func WithLogger(log commonlog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithBuildTimeout bounds a single proxy build. Zero means no limit.
func WithBuildTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithSchemaLoader replaces schema.Load for reading the target's package.
func WithSchemaLoader(load func(importPath string) (*schema.Package, error)) Option {
	return func(c *config) { c.loadSchema = load }
}
