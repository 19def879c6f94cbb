// Package media hands the admin studio presigned object storage URLs so
// images go straight from the browser to the bucket.
package media

import (
	"context"
	"errors"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

const (
	DefaultPrefix  = "uploads"
	DefaultExpires = 15 * time.Minute
	maxNameLen     = 96
)

var (
	ErrNotConfigured    = errors.New("media bucket is not configured")
	ErrUnsupportedMedia = errors.New("only image uploads are supported")
)

type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Options struct {
	Bucket string
	Prefix string
	Region string
	// PublicBaseURL is where uploaded keys are served from. Defaults to the
	// virtual-hosted bucket URL.
	PublicBaseURL string
	Expires       time.Duration
}

type Presigner struct {
	api        presignAPI
	bucket     string
	prefix     string
	bucketURL  string
	publicBase string
	expires    time.Duration
	now        func() time.Time
}

// Upload tells the browser where and how to PUT the file.
type Upload struct {
	Key       string            `json:"key"`
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	PublicURL string            `json:"publicUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

func NewPresigner(client *s3.Client, opts Options) *Presigner {
	return newPresigner(s3.NewPresignClient(client), opts)
}

func newPresigner(api presignAPI, opts Options) *Presigner {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Expires <= 0 {
		opts.Expires = DefaultExpires
	}
	var bucketURL string
	if opts.Bucket != "" {
		region := opts.Region
		if region == "" {
			region = "us-east-1"
		}
		bucketURL = "https://" + opts.Bucket + ".s3." + region + ".amazonaws.com"
	}
	base := strings.TrimSuffix(opts.PublicBaseURL, "/")
	if base == "" {
		base = bucketURL
	}
	return &Presigner{
		api:        api,
		bucket:     opts.Bucket,
		prefix:     strings.Trim(opts.Prefix, "/"),
		bucketURL:  bucketURL,
		publicBase: base,
		expires:    opts.Expires,
		now:        time.Now,
	}
}

func (p *Presigner) Configured() bool { return p != nil && p.bucket != "" }

// Origins lists the origins the browser uploads to and loads images from,
// for the content security policy.
func (p *Presigner) Origins() []string {
	if !p.Configured() {
		return nil
	}
	out := []string{p.bucketURL}
	if u, err := url.Parse(p.publicBase); err == nil && u.Scheme != "" && u.Host != "" {
		if o := u.Scheme + "://" + u.Host; o != p.bucketURL {
			out = append(out, o)
		}
	}
	return out
}

// PresignImageUpload returns a PUT URL for a new key under the prefix.
func (p *Presigner) PresignImageUpload(ctx context.Context, filename, contentType string) (Upload, error) {
	if !p.Configured() {
		return Upload{}, ErrNotConfigured
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return Upload{}, ErrUnsupportedMedia
	}

	now := p.now()
	key := path.Join(p.prefix, strconv.FormatInt(now.UnixMilli(), 10)+"-"+SanitizeName(filename))

	req, err := p.api.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mt),
	}, s3.WithPresignExpires(p.expires))
	if err != nil {
		return Upload{}, xerrors.Wrapf(err, "presign s3://%s/%s", p.bucket, key)
	}

	headers := map[string]string{"Content-Type": mt}
	for k, v := range req.SignedHeader {
		if len(v) > 0 && !strings.EqualFold(k, "host") {
			headers[k] = v[0]
		}
	}
	return Upload{
		Key:       key,
		UploadURL: req.URL,
		Method:    req.Method,
		Headers:   headers,
		PublicURL: p.publicBase + "/" + escapeKey(key),
		ExpiresAt: now.Add(p.expires).UTC(),
	}, nil
}

// SanitizeName lowercases name and replaces anything outside [a-z0-9._-]
// with '-'.
func SanitizeName(name string) string {
	name = strings.ToLower(path.Base(strings.ReplaceAll(name, `\`, "/")))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" || out == "." || out == ".." || out == "-" {
		return "image"
	}
	return out
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
