package video

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultPollInterval    = 2500 * time.Millisecond
	DefaultPollMaxAttempts = 80
)

var (
	ErrAssetErrored = errors.New("Mux reported an errored asset.")
	ErrPollTimedOut = errors.New("Mux processing timed out. Please try again in a minute.")
)

type Outcome int

const (
	OutcomeTimedOut Outcome = iota
	OutcomeReady
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeErrored:
		return "errored"
	default:
		return "timed_out"
	}
}

type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

type PollResult struct {
	Outcome     Outcome
	PlaybackURL string
	Attempts    int
}

// Err maps a non-ready outcome to the message shown to the editor.
func (r PollResult) Err() error {
	switch r.Outcome {
	case OutcomeReady:
		return nil
	case OutcomeErrored:
		return ErrAssetErrored
	default:
		return ErrPollTimedOut
	}
}

// StatusFunc fetches the current status of one upload.
type StatusFunc func(ctx context.Context) (Status, error)

// Poll calls fetch until the upload is ready or errored, or attempts run out.
// Only a waiting status is retried; fetch errors and ctx cancellation end
// polling with that error.
func Poll(ctx context.Context, fetch StatusFunc, opts PollOptions) (PollResult, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultPollMaxAttempts
	}

	t := time.NewTimer(0)
	defer t.Stop()

	var res PollResult
	for res.Attempts < opts.MaxAttempts {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-t.C:
		}

		res.Attempts++
		st, err := fetch(ctx)
		if err != nil {
			return res, err
		}
		switch {
		case st.State == StateReady && st.PlaybackURL != "":
			res.Outcome = OutcomeReady
			res.PlaybackURL = st.PlaybackURL
			return res, nil
		case st.State == StateErrored:
			res.Outcome = OutcomeErrored
			return res, nil
		}
		t.Reset(opts.Interval)
	}
	res.Outcome = OutcomeTimedOut
	return res, nil
}

// PollUpload polls the client's UploadStatus for uploadID.
func (c *Client) PollUpload(ctx context.Context, uploadID string, opts PollOptions) (PollResult, error) {
	return Poll(ctx, func(ctx context.Context) (Status, error) {
		return c.UploadStatus(ctx, uploadID)
	}, opts)
}
