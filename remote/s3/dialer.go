package s3

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/remote"
)

// Option configures a Dialer.
type Option func(*dialerOptions)

type dialerOptions struct {
	logger   *slog.Logger
	region   string
	endpoint string
}

// WithLogger sets the logger. If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *dialerOptions) {
		o.logger = logger
	}
}

// WithRegion overrides the region from the default AWS configuration chain.
func WithRegion(region string) Option {
	return func(o *dialerOptions) {
		o.region = region
	}
}

// WithEndpoint points the client at a custom endpoint such as LocalStack and
// enables path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *dialerOptions) {
		o.endpoint = endpoint
	}
}

// Dialer opens sessions on S3 buckets. The bucket is the target host.
type Dialer struct {
	api    S3API
	logger *slog.Logger
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer using the default AWS configuration chain.
func NewDialer(ctx context.Context, opts ...Option) (*Dialer, error) {
	o := &dialerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, hverrors.Wrap(err, hverrors.CodeInvalidConfig, "failed to load AWS config")
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = true
		}
	})

	return &Dialer{api: client, logger: o.logger}, nil
}

// NewDialerWithClient creates a Dialer on an existing client.
func NewDialerWithClient(api S3API, opts ...Option) *Dialer {
	o := &dialerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Dialer{api: api, logger: o.logger}
}

// Dial implements remote.Dialer.
//
//nolint:ireturn // matches remote.Dialer
func (d *Dialer) Dial(_ context.Context, target remote.Target) (remote.Session, error) {
	if target.Scheme != remote.SchemeS3 {
		return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "s3 dialer cannot serve scheme %q", target.Scheme)
	}
	if target.Host == "" {
		return nil, hverrors.New(hverrors.CodeInvalidConfig, "bucket is required")
	}
	if d.logger != nil {
		d.logger.Debug("opening s3 session", "bucket", target.Host)
	}
	return NewSession(d.api, target.Host), nil
}
