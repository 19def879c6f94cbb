package video

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Mux-Signature"

// MaxSignatureAge bounds clock skew and replay of captured deliveries.
const MaxSignatureAge = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidEvent     = errors.New("invalid mux event payload")
	ErrInvalidJSON      = errors.New("invalid JSON payload")
)

// VerifyWebhookSignature checks a "t=<unix>,v1=<hex>[,v1=<hex>...]" header
// against body. Any v1 entry may match.
func VerifyWebhookSignature(body []byte, header, secret string, now time.Time) error {
	ts, sigs := parseSignatureHeader(header)
	if ts == "" || len(sigs) == 0 {
		return ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Unix() - unix
	if age < 0 {
		age = -age
	}
	if age > int64(MaxSignatureAge/time.Second) {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(body)
	want := mac.Sum(nil)

	for _, s := range sigs {
		got, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(want, got) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func parseSignatureHeader(v string) (ts string, sigs []string) {
	for _, part := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, val = strings.TrimSpace(k), strings.TrimSpace(val)
		if !ok || k == "" || val == "" {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v1":
			sigs = append(sigs, val)
		}
	}
	return ts, sigs
}

// Event is the subset of a webhook delivery the server logs.
type Event struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`
	Object *struct {
		ID   string `json:"id,omitempty"`
		Type string `json:"type,omitempty"`
	} `json:"object,omitempty"`
	Data *struct {
		ID          string       `json:"id,omitempty"`
		Status      string       `json:"status,omitempty"`
		PlaybackIDs []PlaybackID `json:"playback_ids,omitempty"`
	} `json:"data,omitempty"`
}

// ParseEvent decodes a delivery: ErrInvalidJSON for malformed bodies,
// ErrInvalidEvent for JSON that is not an object with a string type.
func ParseEvent(body []byte) (Event, error) {
	if !json.Valid(body) {
		return Event{}, ErrInvalidJSON
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, ErrInvalidEvent
	}
	var typ string
	if err := json.Unmarshal(raw["type"], &typ); err != nil {
		return Event{}, ErrInvalidEvent
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, ErrInvalidEvent
	}
	return ev, nil
}

// AssetID is the asset the event is about, or "unknown".
func (e Event) AssetID() string {
	if e.Data != nil && e.Data.ID != "" {
		return e.Data.ID
	}
	if e.Object != nil && e.Object.ID != "" {
		return e.Object.ID
	}
	return "unknown"
}

func (e Event) PlaybackIDs() []string {
	if e.Data == nil {
		return nil
	}
	out := make([]string, 0, len(e.Data.PlaybackIDs))
	for _, p := range e.Data.PlaybackIDs {
		if p.ID != "" {
			out = append(out, p.ID)
		}
	}
	return out
}
