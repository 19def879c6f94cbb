// Package secrets resolves the session signing secret from one of three
// places: a literal value, an SSM SecureString parameter or a KMS
// ciphertext. AWS clients are only built when a remote source is set.
package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

// MinSecretLen is the length below which a warning is logged.
const MinSecretLen = 32

type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Source names where the secret lives. At most one field is set; config
// validation enforces that.
type Source struct {
	Literal       string
	SSMParam      string
	KMSCiphertext string // base64
}

func (s Source) kind() string {
	switch {
	case s.SSMParam != "":
		return "ssm"
	case s.KMSCiphertext != "":
		return "kms"
	case s.Literal != "":
		return "literal"
	default:
		return "none"
	}
}

type Options struct {
	Logger log.Logger
	// AWSConfig is used for remote sources (default chain if nil).
	AWSConfig *aws.Config
}

type Loader struct {
	logger log.Logger
	awsCfg *aws.Config
	ssm    ssmAPI
	kms    kmsAPI
}

func NewLoader(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Loader{logger: opts.Logger, awsCfg: opts.AWSConfig}
}

// Load returns the secret bytes. An empty Source yields nil, nil: sessions
// then report ErrNotConfigured at use.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	var (
		secret []byte
		err    error
	)
	switch src.kind() {
	case "ssm":
		secret, err = l.fromSSM(ctx, src.SSMParam)
	case "kms":
		secret, err = l.fromKMS(ctx, src.KMSCiphertext)
	case "literal":
		secret = []byte(strings.TrimSpace(src.Literal))
	default:
		l.logger.Warn(ctx, "no session secret configured, admin login is disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, xerrors.Newf("session secret from %s is empty", src.kind())
	}
	if len(secret) < MinSecretLen {
		l.logger.Warn(ctx, "session secret is shorter than recommended", "source", src.kind(), "min_len", MinSecretLen)
	}
	l.logger.Info(ctx, "session secret loaded", "source", src.kind(), "fingerprint", Fingerprint(secret))
	return secret, nil
}

func (l *Loader) fromSSM(ctx context.Context, name string) ([]byte, error) {
	api, err := l.ssmClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, xerrors.Newf("SSM parameter %s has no value", name)
	}
	return []byte(strings.TrimSpace(*out.Parameter.Value)), nil
}

func (l *Loader) fromKMS(ctx context.Context, b64 string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, xerrors.Wrap(err, "decode KMS ciphertext (want base64)")
	}
	api, err := l.kmsClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := api.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms decrypt session secret")
	}
	return out.Plaintext, nil
}

func (l *Loader) ssmClient(ctx context.Context) (ssmAPI, error) {
	if l.ssm != nil {
		return l.ssm, nil
	}
	cfg, err := l.config(ctx)
	if err != nil {
		return nil, err
	}
	l.ssm = ssm.NewFromConfig(cfg)
	return l.ssm, nil
}

func (l *Loader) kmsClient(ctx context.Context) (kmsAPI, error) {
	if l.kms != nil {
		return l.kms, nil
	}
	cfg, err := l.config(ctx)
	if err != nil {
		return nil, err
	}
	l.kms = kms.NewFromConfig(cfg)
	return l.kms, nil
}

func (l *Loader) config(ctx context.Context) (aws.Config, error) {
	if l.awsCfg != nil {
		return *l.awsCfg, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, xerrors.Wrap(err, "load AWS config")
	}
	l.awsCfg = &cfg
	return cfg, nil
}

// Fingerprint identifies a secret in logs without revealing it.
func Fingerprint(secret []byte) string {
	h := sha256.Sum256(secret)
	return hex.EncodeToString(h[:])[:12]
}
