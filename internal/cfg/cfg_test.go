package cfg

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newTestConfig registers flags on a fresh FlagSet and parses args,
// isolating each test from flag.CommandLine.
func newTestConfig(t *testing.T, args []string) (App, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return c, fs
}

func TestRegister_Defaults(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	if !c.LogJSON || c.LogLevel != "info" {
		t.Errorf("log defaults = %v/%q", c.LogJSON, c.LogLevel)
	}
	if c.HTTPPort != 8080 || c.AdminPort != 9000 {
		t.Errorf("ports = %d/%d, want 8080/9000", c.HTTPPort, c.AdminPort)
	}
	if c.Environment != "development" || c.Production() {
		t.Errorf("Environment = %q, want development", c.Environment)
	}
	if c.ContentFile != "content/site.json" {
		t.Errorf("ContentFile = %q", c.ContentFile)
	}
	if c.GitHubRepo != "brilliantaksan/brilliantaksan.com" || c.GitHubBranch != "main" || c.GitHubPath != "content/site.json" {
		t.Errorf("github defaults = %q %q %q", c.GitHubRepo, c.GitHubBranch, c.GitHubPath)
	}
	if c.GitHubToken != "" || c.ContentS3Bucket != "" {
		t.Error("remote mediums must be opt-in")
	}
	if c.MediaS3Prefix != "uploads" {
		t.Errorf("MediaS3Prefix = %q, want uploads", c.MediaS3Prefix)
	}
	if c.AdminEmails != "" {
		t.Error("admin allowlist must default to empty")
	}
	if err := Validate(c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRegister_CLIOverrides(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-environment=production",
		"-github-token=ghp_x",
		"-github-repo=someone/site",
		"-content-s3-bucket=site-content",
		"-admin-emails=a@example.com,b@example.com",
		"-login-rate-per-minute=3",
	})
	if !c.Production() {
		t.Error("Production() = false, want true")
	}
	if c.GitHubToken != "ghp_x" || c.GitHubRepo != "someone/site" {
		t.Errorf("github = %q %q", c.GitHubToken, c.GitHubRepo)
	}
	if c.ContentS3Bucket != "site-content" {
		t.Errorf("ContentS3Bucket = %q", c.ContentS3Bucket)
	}
	if c.AdminEmails != "a@example.com,b@example.com" {
		t.Errorf("AdminEmails = %q", c.AdminEmails)
	}
	if c.LoginRatePerMinute != 3 {
		t.Errorf("LoginRatePerMinute = %d", c.LoginRatePerMinute)
	}
}

// env

func TestEnvKey(t *testing.T) {
	if got := EnvKey(EnvPrefix, "session-secret-ssm-param"); got != "BA_SESSION_SECRET_SSM_PARAM" {
		t.Fatalf("EnvKey = %q", got)
	}
}

func TestFillFromEnv(t *testing.T) {
	pfx := "TESTCFG_"
	t.Setenv(pfx+"LOG_JSON", "false")
	t.Setenv(pfx+"HTTP_PORT", "8088")
	t.Setenv(pfx+"MUX_TOKEN_ID", "tok")
	t.Setenv(pfx+"TRACE_SAMPLE", "0.25")

	c := App{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	FillFromEnv(fs, pfx, nil)

	if c.LogJSON {
		t.Error("LogJSON: want false from env")
	}
	if c.HTTPPort != 8088 {
		t.Errorf("HTTPPort = %d, want 8088", c.HTTPPort)
	}
	if c.MuxTokenID != "tok" {
		t.Errorf("MuxTokenID = %q, want tok", c.MuxTokenID)
	}
	if c.TraceSample != 0.25 {
		t.Errorf("TraceSample = %f, want 0.25", c.TraceSample)
	}
}

func TestFillFromEnv_CLITakesPrecedence(t *testing.T) {
	pfx := "TESTCFG2_"
	t.Setenv(pfx+"HTTP_PORT", "7777")
	t.Setenv(pfx+"SESSION_SECRET", "from-env")

	var c App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	if err := fs.Parse([]string{"-http-port=9090", "-session-secret=from-cli"}); err != nil {
		t.Fatalf("flag parse: %v", err)
	}

	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})

	if c.HTTPPort != 9090 || c.SessionSecret != "from-cli" {
		t.Errorf("cli should win: port=%d secret=%q", c.HTTPPort, c.SessionSecret)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 override messages, got %v", msgs)
	}
	for _, m := range msgs {
		if strings.Contains(m, "from-env") || strings.Contains(m, "from-cli") {
			t.Errorf("override message leaks a value: %s", m)
		}
	}
}

func TestFillFromEnv_InvalidEnvIgnored(t *testing.T) {
	pfx := "TESTCFG3_"
	t.Setenv(pfx+"HTTP_PORT", "not-a-number")

	var c App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	_ = fs.Parse(nil)

	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})
	if c.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default 8080", c.HTTPPort)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "ignoring invalid env") {
		t.Fatalf("messages = %v", msgs)
	}
}

// dotenv

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("TESTCFG4_ADMIN_EMAILS=owner@example.com\nTESTCFG4_HTTP_PORT=1234\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// existing env wins over the file
	t.Setenv("TESTCFG4_HTTP_PORT", "4321")
	t.Cleanup(func() { os.Unsetenv("TESTCFG4_ADMIN_EMAILS") })

	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TESTCFG4_ADMIN_EMAILS"); got != "owner@example.com" {
		t.Fatalf("ADMIN_EMAILS = %q", got)
	}
	if got := os.Getenv("TESTCFG4_HTTP_PORT"); got != "4321" {
		t.Fatalf("HTTP_PORT = %q, want process env to win", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
}

// validate

func TestValidate_OK(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-enable-pyroscope=true",
		"-pyro-server=https://pyro:4040",
		"-pyro-tenant=test-tenant",
		"-enable-tracing=true",
		"-otlp-endpoint=otel:4317",
		"-trace-sample=0.2",
		"-github-token=t",
		"-session-secret-ssm-param=/site/session",
		"-media-public-base-url=https://cdn.example.com",
	})
	if err := Validate(c); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidCombined(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-http-port=0",
		"-admin-port=70000",
		"-environment=staging",
		"-log-level=nope",
		"-trace-sample=2.0",
		"-enable-pyroscope=true",
		"-pyro-server=not-a-url",
		"-enable-tracing=true",
		"-otlp-endpoint=otel",
		"-max-error-links=0",
		"-github-token=t",
		"-github-repo=just-a-name",
		"-session-secret=a",
		"-session-secret-kms-ciphertext=b",
		"-max-body-bytes=10",
		"-github-path=content/../secrets.json",
	})

	err := Validate(c)
	for _, sub := range []string{
		"invalid HTTP_PORT",
		"invalid ADMIN_PORT",
		"invalid ENVIRONMENT",
		"invalid LOG_LEVEL",
		"invalid TRACE_SAMPLE",
		"PYRO_SERVER must be a URL",
		"PYRO_TENANT required",
		"OTLP_ENDPOINT must be host:port",
		"MAX_ERROR_LINKS",
		"GITHUB_REPO must be owner/name",
		"set only one of SESSION_SECRET",
		"MAX_BODY_BYTES",
		"must not contain . or .. segments",
	} {
		wantErrContains(t, err, sub)
	}
}

func TestValidate_SamePorts(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-http-port=9000"})
	wantErrContains(t, Validate(c), "must differ")
}

func TestAuthDomain(t *testing.T) {
	tests := []struct {
		project, domain, want string
	}{
		{"", "", ""},
		{"site-prod", "", "site-prod.firebaseapp.com"},
		{"site-prod", "login.example.com", "login.example.com"},
	}
	for _, tt := range tests {
		c := App{FirebaseProjectID: tt.project, FirebaseAuthDomain: tt.domain}
		if got := c.AuthDomain(); got != tt.want {
			t.Errorf("AuthDomain(%q, %q) = %q, want %q", tt.project, tt.domain, got, tt.want)
		}
	}
}
