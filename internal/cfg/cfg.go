package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/riotquota/internal/log"
	"github.com/keithlinneman/riotquota/internal/riot"
	"github.com/keithlinneman/riotquota/pkg/ratelimit"
)

type App struct {
	LogJSON  bool
	LogLevel string

	Region         string
	APIKey         string
	APIKeySSMParam string
	Quotas         string

	RequestTimeout   time.Duration
	FetchConcurrency int
	PacePerSecond    float64
	PaceBurst        int

	AdminPort       int
	EnablePprof     bool
	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.Region, "region", "na", "platform region (br|eune|euw|jp|kr|lan|las|na|oce|ru|tr)")
	fs.StringVar(&c.APIKey, "api-key", "", "Riot API key (wins over -api-key-ssm-param)")
	fs.StringVar(&c.APIKeySSMParam, "api-key-ssm-param", "", "ssm parameter name holding the Riot API key")
	fs.StringVar(&c.Quotas, "quotas", "20/1s,100/2m", "comma-separated calls/window quotas, strictest first")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", 10*time.Second, "per-request timeout")
	fs.IntVar(&c.FetchConcurrency, "fetch-concurrency", 4, "concurrent summoner lookups (1..64)")
	fs.Float64Var(&c.PacePerSecond, "pace-per-second", 0, "smooth requests to this rate (0 disables pacing)")
	fs.IntVar(&c.PaceBurst, "pace-burst", 1, "pacing burst size (>= 1 when pacing is enabled)")
	fs.IntVar(&c.AdminPort, "admin-port", 0, "admin listen TCP port (0 disables the admin server)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", false, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Log level
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	// Region
	if _, err := riot.PlatformHost(c.Region); err != nil {
		errs = append(errs, fmt.Errorf("invalid REGION %q: %w", c.Region, err))
	}

	// API key source
	if c.APIKey == "" && c.APIKeySSMParam == "" {
		errs = append(errs, fmt.Errorf("either API_KEY or API_KEY_SSM_PARAM is required"))
	}

	// Quotas
	if _, err := ratelimit.ParseQuotas(c.Quotas); err != nil {
		errs = append(errs, fmt.Errorf("invalid QUOTAS %q: %w", c.Quotas, err))
	}

	// Request budget
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive (got %s)", c.RequestTimeout))
	}
	if c.FetchConcurrency < 1 || c.FetchConcurrency > 64 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY must be 1..64 (got %d)", c.FetchConcurrency))
	}

	// Pacing
	if c.PacePerSecond < 0 {
		errs = append(errs, fmt.Errorf("PACE_PER_SECOND must not be negative (got %g)", c.PacePerSecond))
	}
	if c.PacePerSecond > 0 && c.PaceBurst < 1 {
		errs = append(errs, fmt.Errorf("PACE_BURST must be >= 1 when pacing is enabled (got %d)", c.PaceBurst))
	}

	// Admin port (0 means disabled)
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 0..65535)", c.AdminPort))
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
