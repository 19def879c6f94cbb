// Package prof starts continuous profiling with Pyroscope.
package prof

import (
	"context"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	// BasicAuthUser/Password authenticate against a hosted Pyroscope.
	BasicAuthUser     string
	BasicAuthPassword string
	TenantID          string
	Tags              map[string]string
	// MutexFraction and BlockRate enable the runtime profiles behind the
	// mutex and block profile types; 0 leaves them off.
	MutexFraction int
	BlockRate     int
}

var allProfiles = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

func (o Options) config() (pyroscope.Config, error) {
	if o.ServerAddress == "" {
		return pyroscope.Config{}, xerrors.New("prof: server address is required")
	}
	if o.AppName == "" {
		return pyroscope.Config{}, xerrors.New("prof: app name is required")
	}
	types := allProfiles
	if o.MutexFraction <= 0 || o.BlockRate <= 0 {
		// without runtime sampling these profiles are always empty
		types = nil
		for _, t := range allProfiles {
			switch t {
			case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
				if o.MutexFraction <= 0 {
					continue
				}
			case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
				if o.BlockRate <= 0 {
					continue
				}
			}
			types = append(types, t)
		}
	}
	return pyroscope.Config{
		ApplicationName:   o.AppName,
		ServerAddress:     o.ServerAddress,
		BasicAuthUser:     o.BasicAuthUser,
		BasicAuthPassword: o.BasicAuthPassword,
		TenantID:          o.TenantID,
		Tags:              o.Tags,
		ProfileTypes:      types,
	}, nil
}

// Start begins profiling and returns an idempotent stop. Disabled
// profiling returns a no-op stop and no error.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		return func() {}, nil
	}

	cfg, err := opts.config()
	if err != nil {
		return func() {}, err
	}
	if opts.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexFraction)
	}
	if opts.BlockRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockRate)
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		return func() {}, xerrors.Wrapf(err, "prof: start pyroscope at %s", opts.ServerAddress)
	}
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = profiler.Stop()
			L.Info(context.Background(), "pyroscope stopped", "server_address", opts.ServerAddress)
		})
	}, nil
}
