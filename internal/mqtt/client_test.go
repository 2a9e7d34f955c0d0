package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/controller"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/light"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements only the calls the bridge makes.
type fakeClient struct {
	paho.Client
	// delay, when set, runs before a publish is recorded.
	delay func(payload []byte)

	mu         sync.Mutex
	published  []published
	subscribed []string
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if f.delay != nil {
		f.delay(payload.([]byte))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

// levels returns the lightLevel of every published state, oldest first.
func (f *fakeClient) levels(t *testing.T) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.published))
	for _, p := range f.published {
		var got State
		require.NoError(t, json.Unmarshal(p.payload, &got))
		out = append(out, got.LightLevel)
	}
	return out
}

func (f *fakeClient) Subscribe(topic string, _ byte, _ paho.MessageHandler) paho.Token {
	f.subscribed = append(f.subscribed, topic)
	return doneToken{}
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload string
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return []byte(m.payload) }

type fakeDevice struct {
	name, arg, source string
}

func (f *fakeDevice) Call(ctx context.Context, name, arg string) (int, error) {
	f.name, f.arg, f.source = name, arg, controller.SourceFrom(ctx)
	return 0, nil
}

func newTestClient(dev Caller) (*Client, *fakeClient) {
	fake := &fakeClient{}
	return &Client{
		cfg:    config.MQTTConfig{TopicPrefix: "stripd/bedroom"},
		dev:    dev,
		client: fake,
		wake:   make(chan struct{}, 1),
	}, fake
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "stripd/bedroom/set", CommandTopic("stripd/bedroom"))
	assert.Equal(t, "stripd/bedroom/state", StateTopic("stripd/bedroom"))
}

func TestHandleMessage_CallsSetLight(t *testing.T) {
	dev := &fakeDevice{}
	c, _ := newTestClient(dev)

	c.handleMessage(nil, fakeMessage{topic: "stripd/bedroom/set", payload: " COLOR:10:20:30\n"})

	assert.Equal(t, controller.FunctionSetLight, dev.name)
	assert.Equal(t, "COLOR:10:20:30", dev.arg)
	assert.Equal(t, "mqtt", dev.source)
}

func TestSubscribe(t *testing.T) {
	c, fake := newTestClient(&fakeDevice{})
	require.NoError(t, c.subscribe(fake))
	assert.Equal(t, []string{"stripd/bedroom/set"}, fake.subscribed)
}

func TestPublishState_Retained(t *testing.T) {
	c, fake := newTestClient(&fakeDevice{})

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c.PublishState(eventbus.Event{
		Type:    eventbus.EventStateChanged,
		Source:  "api",
		Command: "50",
		State:   light.State{LightLevel: 50, Hue: 260, Saturation: 255, Brightness: 255, AdjustedBrightness: 127},
		Color:   "#7d0500",
		At:      at,
	})

	require.Len(t, fake.published, 1)
	msg := fake.published[0]
	assert.Equal(t, "stripd/bedroom/state", msg.topic)
	assert.True(t, msg.retained)
	assert.Equal(t, qos, msg.qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, float64(50), got["lightLevel"])
	assert.Equal(t, float64(127), got["adjustedBrightness"])
	assert.Equal(t, true, got["on"])
	assert.Equal(t, "#7d0500", got["color"])
	assert.Equal(t, "api", got["source"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got["at"])
}

func TestStatePayload_Off(t *testing.T) {
	payload, err := StatePayload(eventbus.Event{State: light.State{}})
	require.NoError(t, err)

	var got State
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.False(t, got.On)
	assert.Equal(t, 0, got.LightLevel)
}

func levelEvent(seq uint64, level int) eventbus.Event {
	return eventbus.Event{
		Type:  eventbus.EventStateChanged,
		Seq:   seq,
		State: light.State{LightLevel: level},
		At:    time.Now(),
	}
}

func TestRun_SlowPublishKeepsNewestState(t *testing.T) {
	c, fake := newTestClient(&fakeDevice{})
	slow := make(chan struct{})
	fake.delay = func(payload []byte) {
		var s State
		if json.Unmarshal(payload, &s) == nil && s.LightLevel == 20 {
			close(slow)
			time.Sleep(50 * time.Millisecond)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.Notify(levelEvent(1, 20))
	<-slow
	c.Notify(levelEvent(2, 80))

	assert.Eventually(t, func() bool {
		levels := fake.levels(t)
		return len(levels) > 0 && levels[len(levels)-1] == 80
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []int{20, 80}, fake.levels(t))
}

func TestNotify_KeepsOnlyNewestPending(t *testing.T) {
	c, fake := newTestClient(&fakeDevice{})

	c.Notify(levelEvent(3, 60))
	c.Notify(levelEvent(2, 40))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Eventually(t, func() bool {
		return len(fake.levels(t)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{60}, fake.levels(t))
}

func TestPublishState_SkipsStale(t *testing.T) {
	c, fake := newTestClient(&fakeDevice{})

	c.PublishState(levelEvent(5, 80))
	c.PublishState(levelEvent(4, 20))
	c.PublishState(levelEvent(5, 20))

	assert.Equal(t, []int{80}, fake.levels(t))
}
