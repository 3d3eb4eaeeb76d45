package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integration "github.com/jdialer/commhub/internal/integration_service/domain"
	voip "github.com/jdialer/commhub/internal/voip_service/domain"
)

// fakeDevice answers requests with a scripted handler per subject.
type fakeDevice struct {
	handlers map[string]func(payload json.RawMessage) (any, error)
	seen     map[string]json.RawMessage
	badID    bool
}

func (d *fakeDevice) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	var req struct {
		RequestID string          `json:"request_id"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if d.seen == nil {
		d.seen = map[string]json.RawMessage{}
	}
	d.seen[subject] = req.Payload

	h, ok := d.handlers[subject]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	id := req.RequestID
	if d.badID {
		id = "other"
	}
	out, err := h(req.Payload)
	rep := map[string]any{"request_id": id, "ok": err == nil}
	if err != nil {
		rep["error"] = err.Error()
	} else if out != nil {
		rep["payload"] = out
	}
	return json.Marshal(rep)
}

func newBridge(d *fakeDevice) *Bridge {
	return NewBridge(d, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBridge_Dial(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectCallDial: func(json.RawMessage) (any, error) { return nil, nil },
	}}
	err := newBridge(d).Dial(context.Background(), voip.DialRequest{Address: "+98912", TransportType: voip.TransportSIP, UseSipURI: true})
	require.NoError(t, err)

	var sent voip.DialRequest
	require.NoError(t, json.Unmarshal(d.seen[SubjectCallDial], &sent))
	assert.Equal(t, "+98912", sent.Address)
	assert.True(t, sent.UseSipURI)
}

func TestBridge_TelecomRole(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectTelecomRole: func(json.RawMessage) (any, error) {
			return voip.TelecomRole{IsDefaultDialer: true}, nil
		},
	}}
	role, err := newBridge(d).TelecomRole(context.Background())
	require.NoError(t, err)
	assert.True(t, role.IsDefaultDialer)
	assert.False(t, role.SelfManagedRegistered)
}

func TestBridge_IsInstalled(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectPackagesInstalled: func(p json.RawMessage) (any, error) {
			var req map[string]string
			_ = json.Unmarshal(p, &req)
			return map[string]bool{"installed": req["package"] == "org.thoughtcrime.securesms"}, nil
		},
	}}
	b := newBridge(d)

	ok, err := b.IsInstalled(context.Background(), "org.thoughtcrime.securesms")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.IsInstalled(context.Background(), "com.whatsapp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridge_Launch_Rejected(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectIntentLaunch: func(json.RawMessage) (any, error) { return nil, errors.New("no activity found") },
	}}
	err := newBridge(d).Launch(context.Background(), integration.LaunchIntent{Action: integration.IntentActionView, URI: "tg://msg?to=+1"})
	assert.ErrorIs(t, err, ErrDeviceRejected)
	assert.Contains(t, err.Error(), "no activity found")
}

func TestBridge_RcsCapability(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectMessageCapabilities: func(json.RawMessage) (any, error) {
			return map[string]any{"enabled_by_default_sms_app": true}, nil
		},
	}}
	c, err := newBridge(d).RcsCapability(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Usable())
	assert.False(t, c.DetectedAt.IsZero())
}

func TestBridge_Inspect(t *testing.T) {
	d := &fakeDevice{handlers: map[string]func(json.RawMessage) (any, error){
		SubjectMediaInspect: func(json.RawMessage) (any, error) {
			return map[string]any{"attachments": []map[string]any{{"uri": "content://media/1", "bytes": 2048}}}, nil
		},
	}}
	b := newBridge(d)

	metas, err := b.Inspect(context.Background(), []string{"content://media/1", "content://media/gone"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.EqualValues(t, 2048, metas[0].Bytes)

	empty, err := b.Inspect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestBridge_Errors(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		_, err := newBridge(&fakeDevice{}).TelecomRole(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("CorrelationMismatch", func(t *testing.T) {
		d := &fakeDevice{badID: true, handlers: map[string]func(json.RawMessage) (any, error){
			SubjectCallDial: func(json.RawMessage) (any, error) { return nil, nil },
		}}
		err := newBridge(d).Dial(context.Background(), voip.DialRequest{Address: "+1"})
		assert.ErrorIs(t, err, ErrCorrelationMismatch)
	})
}
