package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/config"
	"countdown/internal/model"
	"countdown/internal/theme"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeClient struct {
	sent         []message
	err          error
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, message{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	return doneToken{err: f.err}
}

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func TestPublish(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisher(fc, "office/countdown/")

	out := model.Output{DisplayDays: 8, Status: "active", StatusMessage: "Counting active", ThemeKey: "base", Daypart: "morning"}
	require.NoError(t, p.Publish(context.Background(), out))
	require.NoError(t, p.RenderTheme(context.Background(), "christmas", theme.Night))

	require.Len(t, fc.sent, 2)
	assert.Equal(t, "office/countdown/state", fc.sent[0].topic)
	assert.True(t, fc.sent[0].retained)
	assert.EqualValues(t, 1, fc.sent[0].qos)
	assert.Contains(t, fc.sent[0].payload, `"display_days":8`)

	assert.Equal(t, "office/countdown/theme", fc.sent[1].topic)
	assert.JSONEq(t, `{"theme":"christmas","daypart":"night","effects":[{"kind":"snow","count":60}]}`, fc.sent[1].payload)

	p.Close()
	assert.True(t, fc.disconnected)
}

func TestPublish_Error(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(fc, "")
	err := p.Publish(context.Background(), model.Output{})
	assert.ErrorContains(t, err, "countdown/state")

	err = p.RenderTheme(context.Background(), "unknown", theme.Midday)
	require.Error(t, err)
	assert.JSONEq(t, `{"theme":"unknown","daypart":"midday","effects":[]}`, fc.sent[1].payload)
}

func TestConnect_RequiresBroker(t *testing.T) {
	_, err := Connect(config.MQTTConfig{})
	assert.Error(t, err)
}
