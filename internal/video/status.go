package video

import "context"

// State is the coarse processing state the studio polls for.
type State string

const (
	StateWaiting State = "waiting"
	StateReady   State = "ready"
	StateErrored State = "errored"
)

// Status is what the upload status endpoint returns.
type Status struct {
	State        State  `json:"status"`
	AssetID      string `json:"assetId,omitempty"`
	PlaybackID   string `json:"playbackId,omitempty"`
	PlaybackURL  string `json:"playbackUrl,omitempty"`
	UploadStatus string `json:"uploadStatus,omitempty"`
	AssetStatus  string `json:"assetStatus,omitempty"`
}

// UploadStatus follows an upload to its asset. It reports waiting until the
// asset is ready and has a playback id.
func (c *Client) UploadStatus(ctx context.Context, uploadID string) (Status, error) {
	up, err := c.GetUpload(ctx, uploadID)
	if err != nil {
		return Status{}, err
	}
	if up.AssetID == "" {
		return Status{State: StateWaiting, UploadStatus: orDefault(up.Status, "waiting")}, nil
	}

	asset, err := c.GetAsset(ctx, up.AssetID)
	if err != nil {
		return Status{}, err
	}
	switch {
	case asset.Status == "errored":
		return Status{State: StateErrored, AssetID: asset.ID, UploadStatus: up.Status}, nil
	case asset.Status != "ready":
		return Status{State: StateWaiting, AssetID: asset.ID, AssetStatus: orDefault(asset.Status, "preparing")}, nil
	}

	pid := asset.PlaybackID()
	if pid == "" {
		return Status{State: StateWaiting, AssetID: asset.ID, AssetStatus: asset.Status}, nil
	}
	return Status{
		State:       StateReady,
		AssetID:     asset.ID,
		PlaybackID:  pid,
		PlaybackURL: PlaybackURL(pid),
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
