package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brilliantaksan/brilliantaksan-web/internal/adminhttp"
	"github.com/brilliantaksan/brilliantaksan-web/internal/cfg"
	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/health"
	"github.com/brilliantaksan/brilliantaksan-web/internal/httpmw"
	"github.com/brilliantaksan/brilliantaksan-web/internal/httpserver"
	"github.com/brilliantaksan/brilliantaksan-web/internal/identity"
	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/media"
	"github.com/brilliantaksan/brilliantaksan-web/internal/metrics"
	"github.com/brilliantaksan/brilliantaksan-web/internal/opshttp"
	"github.com/brilliantaksan/brilliantaksan-web/internal/otelx"
	"github.com/brilliantaksan/brilliantaksan-web/internal/prof"
	"github.com/brilliantaksan/brilliantaksan-web/internal/ratelimit"
	"github.com/brilliantaksan/brilliantaksan-web/internal/secrets"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitehandler"
	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
	"github.com/brilliantaksan/brilliantaksan-web/internal/webassets"

	v "github.com/brilliantaksan/brilliantaksan-web/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	var dotenv string

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.StringVar(&dotenv, "env-file", ".env", "dotenv file read before the environment (missing is fine)")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// dotenv only fills variables the process environment lacks
	if err := cfg.LoadDotEnv(dotenv); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	stackLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Environment:       conf.Environment,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"environment", conf.Environment,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"content_file", conf.ContentFile,
		"github_repo", conf.GitHubRepo,
		"github_enabled", conf.GitHubToken != "",
		"content_s3_bucket", conf.ContentS3Bucket,
		"media_s3_bucket", conf.MediaS3Bucket,
		"mux_configured", conf.MuxTokenID != "" && conf.MuxTokenSecret != "",
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", &vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"env":       conf.Environment,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(err == nil && conf.EnablePyroscope)
	defer stopProf()

	// collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    true,
		Sample:      conf.TraceSample,
		Service:     v.AppName,
		Component:   "server",
		Version:     vi.Version,
		Environment: conf.Environment,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	var awsOpts []func(*config.LoadOptions) error
	if conf.AWSRegion != "" {
		awsOpts = append(awsOpts, config.WithRegion(conf.AWSRegion))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		L.Error(ctx, err, "failed to load AWS config")
		os.Exit(1)
	}
	var s3Client *s3.Client
	if conf.ContentS3Bucket != "" || conf.MediaS3Bucket != "" {
		s3Client = s3.NewFromConfig(awsCfg)
	}

	// admin sessions
	secret, err := secrets.NewLoader(secrets.Options{Logger: L, AWSConfig: &awsCfg}).Load(ctx, secrets.Source{
		Literal:       conf.SessionSecret,
		SSMParam:      conf.SessionSecretSSMParam,
		KMSCiphertext: conf.SessionSecretKMSCiphertext,
	})
	if err != nil {
		L.Error(ctx, err, "failed to load session secret")
		os.Exit(1)
	}
	if len(secret) > 0 {
		L.Info(ctx, "session secret loaded", "fingerprint", secrets.Fingerprint(secret))
	}
	allow := session.ParseAllowlist(conf.AdminEmails)
	if allow.Len() == 0 {
		L.Warn(ctx, "admin allowlist is empty, every sign-in will be refused")
	}
	sessions := session.NewService(
		session.NewCodec(secret),
		allow,
		identity.NewFirebase(conf.FirebaseProjectID, conf.FirebaseCredentialsFile),
		session.WithSecureCookies(conf.Production()),
		session.WithLoginObserver(m.IncLogin),
	)

	// content persistence
	storeOpts := contentstore.Options{
		Logger:   L.With("component", "contentstore"),
		FilePath: conf.ContentFile,
		GitHub: contentstore.GitHubConfig{
			Token:  conf.GitHubToken,
			Repo:   conf.GitHubRepo,
			Branch: conf.GitHubBranch,
			Path:   conf.GitHubPath,
			APIURL: conf.GitHubAPIURL,
		},
		ObjectStore: contentstore.ObjectStoreConfig{Bucket: conf.ContentS3Bucket, Key: conf.ContentS3Key},
		HTTPClient:  otelx.HTTPClient("github", 15*time.Second),
		Observe:     m.ObserveStore,
	}
	if conf.ContentS3Bucket != "" {
		storeOpts.ObjectAPI = s3Client
	}
	store, err := contentstore.New(storeOpts)
	if err != nil {
		L.Error(ctx, err, "failed to create content store")
		os.Exit(1)
	}
	contentMgr := contentstore.NewManager(store, L,
		contentstore.WithSourceObserver(func(s contentstore.Source) { m.ObserveContentSource(string(s)) }),
	)
	// pages still render from the bundled copy when the first read fails
	if err := contentMgr.Prime(ctx); err != nil {
		L.Error(ctx, err, "initial content read failed, serving bundled content")
	} else {
		L.Info(ctx, "content loaded",
			"medium", contentMgr.ContentMedium(),
			"revision", contentMgr.ContentRevision(),
		)
	}

	// uploads
	videoClient := video.New(video.Options{
		TokenID:     conf.MuxTokenID,
		TokenSecret: conf.MuxTokenSecret,
		BaseURL:     conf.MuxAPIURL,
		HTTPClient:  otelx.HTTPClient("mux", 15*time.Second),
	})
	var presigner *media.Presigner
	if conf.MediaS3Bucket != "" {
		presigner = media.NewPresigner(s3Client, media.Options{
			Bucket:        conf.MediaS3Bucket,
			Prefix:        conf.MediaS3Prefix,
			Region:        awsRegion(awsCfg),
			PublicBaseURL: conf.MediaPublicBaseURL,
		})
	}

	siteLimiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied("site") }),
		// logged once per ip until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "limiter", "site", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func(size int) {
			m.IncRateLimitCapacity("site")
			L.Warn(ctx, "rate limit capacity reached, new visitors share one bucket", "limiter", "site", "visitors", size)
		}),
	)
	loginLimiter := ratelimit.New(ctx,
		ratelimit.WithPerMinute(conf.LoginRatePerMinute),
		ratelimit.WithMessage("Too many sign-in attempts. Try again in a minute."),
		ratelimit.WithRetryAfter(time.Minute),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied("login") }),
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "limiter", "login", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func(int) { m.IncRateLimitCapacity("login") }),
	)

	adminAPI := adminhttp.NewAPI(adminhttp.Options{
		Sessions:      sessions,
		Store:         store,
		Snapshots:     contentMgr,
		Video:         videoClient,
		Images:        presigner,
		WebhookSecret: conf.MuxWebhookSecret,
		LoginLimiter:  loginLimiter.Middleware,
		OnWebhook:     m.IncWebhookEvent,
	})

	siteHandler, err := sitehandler.New(&sitehandler.Options{
		Logger:    L.With("component", "site"),
		Content:   contentMgr,
		Templates: webassets.TemplatesFS(),
		Static:    webassets.StaticFS(),
		Fallback:  webassets.FallbackFS(),
		Identity: sitehandler.IdentityConfig{
			APIKey:     conf.FirebaseAPIKey,
			AuthDomain: conf.AuthDomain(),
			ProjectID:  conf.FirebaseProjectID,
		},
		Guard: sessions.Guard,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	// readiness fails as soon as shutdown starts, and until some copy of the
	// document is servable
	var gate health.ShutdownGate
	readiness := health.All(
		health.Named("shutdown", gate.Probe()),
		health.CheckFunc(func(context.Context) error {
			return contentMgr.ReadyErr()
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  siteLimiter.Middleware,
		Security: httpmw.SecurityOptions{
			MediaOrigins: presigner.Origins(),
			HSTS:         conf.Production(),
		},
		ContentInfo:  contentMgr,
		MaxBodyBytes: conf.MaxBodyBytes,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		Routes:       []httpserver.Registrar{adminAPI, siteHandler},
		NotFound:     siteHandler.NotFound,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener is for internal monitoring only
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd readiness not sent", "reason", err.Error())
	}

	<-ctx.Done()
	stop()
	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Set("draining")
	L.Info(bg, "readiness failing, draining", "drain", conf.ShutdownDrain)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.ShutdownDrain):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 15*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()
	m.SetProfilingActive(false)

	L.Info(bg, "shutdown complete")
}

func awsRegion(c aws.Config) string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}

// notifySystemd sends READY=1 when started as a Type=notify unit.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return nil
}
