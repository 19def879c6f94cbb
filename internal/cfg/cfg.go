package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/pathutil"
)

// EnvPrefix is prepended to every flag name when reading the environment.
const EnvPrefix = "BA_"

type App struct {
	LogJSON           bool
	LogLevel          string
	HTTPPort          int
	AdminPort         int
	Environment       string
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	// content persistence
	ContentFile     string
	GitHubToken     string
	GitHubRepo      string
	GitHubBranch    string
	GitHubPath      string
	GitHubAPIURL    string
	ContentS3Bucket string
	ContentS3Key    string
	AWSRegion       string

	// media uploads
	MediaS3Bucket      string
	MediaS3Prefix      string
	MediaPublicBaseURL string

	// admin sessions
	SessionSecret              string
	SessionSecretSSMParam      string
	SessionSecretKMSCiphertext string
	AdminEmails                string
	FirebaseProjectID          string
	FirebaseCredentialsFile    string
	FirebaseAPIKey             string
	FirebaseAuthDomain         string

	// video pipeline
	MuxTokenID       string
	MuxTokenSecret   string
	MuxWebhookSecret string
	MuxAPIURL        string

	MaxBodyBytes       int64
	RateLimitRPS       float64
	RateLimitBurst     int
	LoginRatePerMinute int

	ShutdownDrain time.Duration
}

// Production reports whether cookies must be marked Secure.
func (c App) Production() bool { return c.Environment == "production" }

// AuthDomain is the configured sign-in domain or the project default.
func (c App) AuthDomain() string {
	if c.FirebaseAuthDomain != "" || c.FirebaseProjectID == "" {
		return c.FirebaseAuthDomain
	}
	return c.FirebaseProjectID + ".firebaseapp.com"
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen TCP port for metrics, health and pprof (1..65535)")
	fs.StringVar(&c.Environment, "environment", "development", "development|production")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")

	fs.StringVar(&c.ContentFile, "content-file", "content/site.json", "local path of the site content document")
	fs.StringVar(&c.GitHubToken, "github-token", "", "token for the GitHub contents API; when set GitHub is the primary content store")
	fs.StringVar(&c.GitHubRepo, "github-repo", "brilliantaksan/brilliantaksan.com", "owner/name of the repository holding the content document")
	fs.StringVar(&c.GitHubBranch, "github-branch", "main", "branch the content document is read from and committed to")
	fs.StringVar(&c.GitHubPath, "github-path", "content/site.json", "path of the content document inside the repository")
	fs.StringVar(&c.GitHubAPIURL, "github-api-url", "", "GitHub API base url override (enterprise installs)")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "s3 bucket used as content fallback on read-only filesystems")
	fs.StringVar(&c.ContentS3Key, "content-s3-key", "content/site.json", "s3 key of the content document")
	fs.StringVar(&c.AWSRegion, "aws-region", "", "aws region override (defaults to the sdk resolution chain)")

	fs.StringVar(&c.MediaS3Bucket, "media-s3-bucket", "", "s3 bucket for admin image uploads")
	fs.StringVar(&c.MediaS3Prefix, "media-s3-prefix", "uploads", "key prefix for admin image uploads")
	fs.StringVar(&c.MediaPublicBaseURL, "media-public-base-url", "", "public url images are served from (defaults to the bucket url)")

	fs.StringVar(&c.SessionSecret, "session-secret", "", "HMAC secret for admin session tokens")
	fs.StringVar(&c.SessionSecretSSMParam, "session-secret-ssm-param", "", "SSM SecureString holding the session secret")
	fs.StringVar(&c.SessionSecretKMSCiphertext, "session-secret-kms-ciphertext", "", "base64 KMS ciphertext of the session secret")
	fs.StringVar(&c.AdminEmails, "admin-emails", "", "comma-separated emails allowed into the admin studio")
	fs.StringVar(&c.FirebaseProjectID, "firebase-project-id", "", "identity provider project id")
	fs.StringVar(&c.FirebaseCredentialsFile, "firebase-credentials-file", "", "service account json for the identity provider (optional)")
	fs.StringVar(&c.FirebaseAPIKey, "firebase-api-key", "", "public web api key handed to the sign-in page")
	fs.StringVar(&c.FirebaseAuthDomain, "firebase-auth-domain", "", "sign-in auth domain (defaults to <project>.firebaseapp.com)")

	fs.StringVar(&c.MuxTokenID, "mux-token-id", "", "video pipeline access token id")
	fs.StringVar(&c.MuxTokenSecret, "mux-token-secret", "", "video pipeline access token secret")
	fs.StringVar(&c.MuxWebhookSecret, "mux-webhook-secret", "", "video pipeline webhook signing secret")
	fs.StringVar(&c.MuxAPIURL, "mux-api-url", "https://api.mux.com", "video pipeline API base url")

	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", 2<<20, "max request body size for the admin API")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "per-ip steady request rate for the public site")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 60, "per-ip burst for the public site")
	fs.IntVar(&c.LoginRatePerMinute, "login-rate-per-minute", 10, "per-ip admin session attempts per minute")
	fs.DurationVar(&c.ShutdownDrain, "shutdown-drain", 20*time.Second, "time readiness fails before listeners stop on shutdown")
}

// LoadDotEnv exports variables from a dotenv file without overriding what the
// process environment already has. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value overrides env %s", f.Name, key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

// EnvKey maps a flag name to its environment variable.
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	switch c.Environment {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("invalid ENVIRONMENT %q (must be development|production)", c.Environment))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if !isAbsURL(c.PyroServer) {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, errors.New("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.ContentFile == "" {
		errs = append(errs, errors.New("CONTENT_FILE is required"))
	}
	if c.GitHubToken != "" {
		if owner, name, ok := strings.Cut(c.GitHubRepo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("GITHUB_REPO must be owner/name (got %q)", c.GitHubRepo))
		}
		if c.GitHubBranch == "" || c.GitHubPath == "" {
			errs = append(errs, errors.New("GITHUB_BRANCH and GITHUB_PATH are required when GITHUB_TOKEN is set"))
		}
	}
	if c.GitHubAPIURL != "" && !isAbsURL(c.GitHubAPIURL) {
		errs = append(errs, fmt.Errorf("GITHUB_API_URL must be a URL (got %q)", c.GitHubAPIURL))
	}
	if c.ContentS3Bucket != "" && c.ContentS3Key == "" {
		errs = append(errs, errors.New("CONTENT_S3_KEY is required when CONTENT_S3_BUCKET is set"))
	}
	if pathutil.HasDotSegments(c.GitHubPath) || pathutil.HasDotSegments(c.ContentS3Key) {
		errs = append(errs, errors.New("GITHUB_PATH and CONTENT_S3_KEY must not contain . or .. segments"))
	}
	if c.MediaPublicBaseURL != "" && !isAbsURL(c.MediaPublicBaseURL) {
		errs = append(errs, fmt.Errorf("MEDIA_PUBLIC_BASE_URL must be a URL (got %q)", c.MediaPublicBaseURL))
	}
	if !isAbsURL(c.MuxAPIURL) {
		errs = append(errs, fmt.Errorf("MUX_API_URL must be a URL (got %q)", c.MuxAPIURL))
	}

	sources := 0
	for _, s := range []string{c.SessionSecret, c.SessionSecretSSMParam, c.SessionSecretKMSCiphertext} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, errors.New("set only one of SESSION_SECRET, SESSION_SECRET_SSM_PARAM, SESSION_SECRET_KMS_CIPHERTEXT"))
	}

	if c.MaxBodyBytes < 1024 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be at least 1024 (got %d)", c.MaxBodyBytes))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive (got %.2f, %d)", c.RateLimitRPS, c.RateLimitBurst))
	}
	if c.ShutdownDrain < 0 || c.ShutdownDrain > 5*time.Minute {
		errs = append(errs, fmt.Errorf("SHUTDOWN_DRAIN must be 0..5m (got %s)", c.ShutdownDrain))
	}
	if c.LoginRatePerMinute < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_PER_MINUTE must be positive (got %d)", c.LoginRatePerMinute))
	}

	return errors.Join(errs...)
}

func isAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
