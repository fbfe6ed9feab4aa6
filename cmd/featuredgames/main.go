// Command featuredgames fetches the featured games for a region and looks up
// each participant's summoner record, staying inside the API key's quotas.
// Every request goes through a shared multi-window limiter, so the whole run
// can be pointed at a dev key (20/1s + 100/2m) without tripping 429s.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/riotquota/internal/cfg"
	"github.com/keithlinneman/riotquota/internal/keysource"
	"github.com/keithlinneman/riotquota/internal/log"
	"github.com/keithlinneman/riotquota/internal/metrics"
	"github.com/keithlinneman/riotquota/internal/opshttp"
	"github.com/keithlinneman/riotquota/internal/otelx"
	"github.com/keithlinneman/riotquota/internal/probe"
	"github.com/keithlinneman/riotquota/internal/prof"
	"github.com/keithlinneman/riotquota/internal/riot"
	v "github.com/keithlinneman/riotquota/internal/version"
	"github.com/keithlinneman/riotquota/pkg/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			v.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix RIOTQUOTA_ and validate
	cfg.FillFromEnv(flag.CommandLine, "RIOTQUOTA_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	L := log.New(log.Options{
		App:        v.AppName,
		Level:      lvl,
		JsonFormat: conf.LogJSON,
	}).With("component", "featuredgames")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"region", conf.Region,
		"quotas", conf.Quotas,
		"fetch_concurrency", conf.FetchConcurrency,
		"pace_per_second", conf.PacePerSecond,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_tracing", conf.EnableTracing,
		"enable_pyroscope", conf.EnablePyroscope,
	)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":     v.AppName,
			"version": vi.Version,
			"region":  conf.Region,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Setup otel for tracing
	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:  conf.EnableTracing,
		Endpoint: conf.OTLPEndpoint,
		Insecure: true,
		Sample:   conf.TraceSample,
		Service:  v.AppName,
		Version:  vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	m := metrics.New()
	m.SetBuildInfoFromVersion(vi)

	// Admin listener is off by default; enable it for long runs that want
	// /metrics and pprof.
	if conf.AdminPort > 0 {
		opsStop, err := opshttp.Start(ctx, L, opshttp.Options{
			Port:        conf.AdminPort,
			Metrics:     m.Handler(),
			EnablePprof: conf.EnablePprof,
			Health:      probe.Static(true, ""),
		})
		if err != nil {
			L.Error(ctx, err, "failed to start ops http listener")
			os.Exit(1)
		}
		defer func() { _ = opsStop(context.Background()) }()
	}

	apiKey, err := keysource.Resolve(ctx, keysource.Source{
		Key:      conf.APIKey,
		SSMParam: conf.APIKeySSMParam,
	})
	if err != nil {
		L.Error(ctx, err, "failed to resolve api key")
		os.Exit(1)
	}

	limiter, windows, err := buildLimiter(ctx, conf.Quotas, L, m)
	if err != nil {
		L.Error(ctx, err, "failed to build rate limiter")
		os.Exit(1)
	}

	clientOpts := []riot.Option{
		riot.WithLimiter(limiter),
		riot.WithLogger(L.With("component", "riot")),
		riot.WithOnRequest(m.ObserveRequest),
	}
	if conf.PacePerSecond > 0 {
		clientOpts = append(clientOpts, riot.WithPacer(conf.PacePerSecond, conf.PaceBurst))
	}
	client, err := riot.New(conf.Region, apiKey, clientOpts...)
	if err != nil {
		L.Error(ctx, err, "failed to create riot client")
		os.Exit(1)
	}

	if err := run(ctx, L, conf, client); err != nil {
		if errors.Is(err, context.Canceled) {
			L.Warn(ctx, "run canceled")
		} else {
			L.Error(ctx, err, "run failed")
		}
		os.Exit(1)
	}

	for _, w := range windows {
		s := w.Stats()
		m.SetQuotaStats(w.Name(), s)
		L.Info(ctx, "window stats",
			"window", w.Name(),
			"successful", s.Successful,
			"total", s.Total,
		)
	}
}

// buildLimiter composes one WindowLimiter per configured quota, with metric
// and log hooks per window, into a single admission gate.
func buildLimiter(ctx context.Context, quotas string, L log.Logger, m *metrics.ClientMetrics) (ratelimit.Limiter, []*ratelimit.WindowLimiter, error) {
	qs, err := ratelimit.ParseQuotas(quotas)
	if err != nil {
		return nil, nil, err
	}

	windows := make([]*ratelimit.WindowLimiter, 0, len(qs))
	for _, q := range qs {
		name := q.String()
		w, err := ratelimit.NewWindow(q,
			ratelimit.WithName(name),
			ratelimit.WithOnThrottled(func() {
				m.IncThrottled(name)
				L.Debug(ctx, "quota exhausted, waiting for window reset", "window", name)
			}),
			ratelimit.WithOnReset(func() {
				m.IncReset(name)
			}),
		)
		if err != nil {
			return nil, nil, err
		}
		windows = append(windows, w)
	}
	return ratelimit.Combine(windows...), windows, nil
}

func run(ctx context.Context, L log.Logger, conf cfg.App, client *riot.Client) error {
	fetchCtx, cancel := context.WithTimeout(ctx, conf.RequestTimeout)
	fg, err := client.FeaturedGames(fetchCtx)
	cancel()
	if err != nil {
		return err
	}
	L.Info(ctx, "fetched featured games",
		"games", len(fg.GameList),
		"refresh_interval", fg.ClientRefreshInterval,
	)

	names := participantNames(fg)
	if len(names) == 0 {
		fmt.Println("no featured games with named participants right now")
		return nil
	}

	// Look up each unique participant. Concurrency is bounded by the
	// errgroup limit; the actual request rate is bounded by the limiter.
	summoners := make([]*riot.Summoner, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conf.FetchConcurrency)
	for i, name := range names {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(gctx, conf.RequestTimeout)
			defer cancel()
			s, err := client.SummonerByName(reqCtx, name)
			if err != nil {
				// A single missing summoner should not sink the run.
				var apiErr *riot.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
					L.Warn(gctx, "summoner not found", "name", name)
					return nil
				}
				return err
			}
			summoners[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printSummary(fg, names, summoners)
	return nil
}

// participantNames returns the unique, sorted display names across all
// featured games. Bots have no summoner record and are skipped.
func participantNames(fg *riot.FeaturedGames) []string {
	seen := make(map[string]bool)
	for _, game := range fg.GameList {
		for _, p := range game.Participants {
			if p.Bot || p.SummonerName == "" {
				continue
			}
			seen[p.SummonerName] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func printSummary(fg *riot.FeaturedGames, names []string, summoners []*riot.Summoner) {
	fmt.Printf("%d featured games, %d unique participants\n\n", len(fg.GameList), len(names))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLEVEL\tGAME\tLENGTH")

	gameByName := make(map[string]*riot.FeaturedGame)
	for i := range fg.GameList {
		game := &fg.GameList[i]
		for _, p := range game.Participants {
			if p.SummonerName != "" {
				gameByName[p.SummonerName] = game
			}
		}
	}

	for i, name := range names {
		level := "-"
		if s := summoners[i]; s != nil {
			level = fmt.Sprintf("%d", s.SummonerLevel)
		}
		mode, length := "-", "-"
		if game := gameByName[name]; game != nil {
			mode = game.GameMode
			length = (time.Duration(game.GameLength) * time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, level, mode, length)
	}
	tw.Flush()
}
