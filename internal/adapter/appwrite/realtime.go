package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/oklog/ulid/v2"
)

// RealtimeSettings tunes the realtime connection
type RealtimeSettings struct {
	PingInterval     time.Duration
	ReconnectTimeout time.Duration
	WriteTimeout     time.Duration
	// Debounce coalesces bursts of Subscribe/unsubscribe calls into one reconnect
	Debounce time.Duration
}

func DefaultRealtimeSettings() *RealtimeSettings {
	return &RealtimeSettings{
		PingInterval:     20 * time.Second,
		ReconnectTimeout: 2 * time.Second,
		WriteTimeout:     10 * time.Second,
		Debounce:         50 * time.Millisecond,
	}
}

type subscription struct {
	id      string
	channel string
	fn      func(domain.Event)
}

// Realtime implements domain.Subscriber over the Appwrite realtime
// websocket. One connection carries the union of all subscribed channels;
// changing that set reconnects with the new channel list.
type Realtime struct {
	endpoint string // wss://host/v1/realtime
	project  string
	session  string
	settings *RealtimeSettings
	dialer   *websocket.Dialer
	logger   *slog.Logger

	mu      sync.Mutex
	subs    map[string]*subscription
	started bool
	closed  bool
	changed chan struct{}

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRealtime creates a realtime client. endpoint is the REST endpoint
// (https://host/v1); the websocket URL is derived from it. session may be
// empty for anonymous access to public channels.
func NewRealtime(endpoint, project, session string, settings *RealtimeSettings, logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = DefaultRealtimeSettings()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Realtime{
		endpoint: realtimeURL(endpoint),
		project:  project,
		session:  session,
		settings: settings,
		dialer:   websocket.DefaultDialer,
		logger:   logger.With("component", "realtime"),
		subs:     make(map[string]*subscription),
		changed:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// realtimeURL maps http(s)://host/v1 to ws(s)://host/v1/realtime
func realtimeURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint + "/realtime"
}

// Subscribe registers fn for events on channel. The connection is opened
// lazily on the first subscription.
func (r *Realtime) Subscribe(channel string, fn func(domain.Event)) func() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return func() {}
	}
	sub := &subscription{
		id:      ulid.Make().String(),
		channel: channel,
		fn:      fn,
	}
	r.subs[sub.id] = sub
	if !r.started {
		r.started = true
		go r.run()
	}
	r.mu.Unlock()

	r.logger.Debug("subscribed", "channel", channel, "id", sub.id)
	r.signalChange()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, sub.id)
			r.mu.Unlock()
			r.logger.Debug("unsubscribed", "channel", channel, "id", sub.id)
			r.signalChange()
		})
	}
}

// Close drops the connection and every subscription
func (r *Realtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.subs = make(map[string]*subscription)
	r.mu.Unlock()

	r.cancel()
	if started {
		<-r.done
	}
	return nil
}

func (r *Realtime) signalChange() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// channels returns the sorted, de-duplicated set of subscribed channels
func (r *Realtime) channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make([]string, 0, len(r.subs))
	for _, s := range r.subs {
		set = append(set, s.channel)
	}
	slices.Sort(set)
	return slices.Compact(set)
}

func (r *Realtime) run() {
	defer close(r.done)

	for {
		channels := r.channels()
		if len(channels) == 0 {
			select {
			case <-r.ctx.Done():
				return
			case <-r.changed:
				continue
			}
		}

		ws, err := r.connect(channels)
		if err != nil {
			r.logger.Warn("realtime connect failed", "error", err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(r.settings.ReconnectTimeout):
				continue
			}
		}

		retry := r.serve(ws, channels)
		if r.ctx.Err() != nil {
			return
		}
		if retry {
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(r.settings.ReconnectTimeout):
			}
		}
	}
}

func (r *Realtime) connect(channels []string) (*websocket.Conn, error) {
	query := url.Values{}
	query.Set("project", r.project)
	for _, c := range channels {
		query.Add("channels[]", c)
	}
	target := r.endpoint + "?" + query.Encode()

	header := http.Header{}
	header.Set("X-Appwrite-Project", r.project)

	ws, _, err := r.dialer.DialContext(r.ctx, target, header)
	if err != nil {
		return nil, err
	}
	r.logger.Info("realtime connected", "channels", channels)
	return ws, nil
}

// serve pumps one connection until it fails, the client closes, or the
// channel set changes. It reports whether the caller should wait before
// reconnecting.
func (r *Realtime) serve(ws *websocket.Conn, channels []string) bool {
	defer ws.Close()

	readErr := make(chan error, 1)
	go func() {
		readErr <- r.read(ws)
	}()

	ping := time.NewTicker(r.settings.PingInterval)
	defer ping.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-r.ctx.Done():
			r.writeMu.Lock()
			ws.SetWriteDeadline(time.Now().Add(r.settings.WriteTimeout))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			r.writeMu.Unlock()
			return false

		case err := <-readErr:
			r.logger.Info("realtime connection lost", "error", err)
			return true

		case <-ping.C:
			if err := r.write(ws, realtimeMessage{Type: msgPing}); err != nil {
				r.logger.Info("realtime ping failed", "error", err)
				return true
			}

		case <-r.changed:
			debounce = time.After(r.settings.Debounce)

		case <-debounce:
			debounce = nil
			if next := r.channels(); !slices.Equal(next, channels) {
				r.logger.Debug("realtime channels changed", "from", channels, "to", next)
				ws.Close()
				<-readErr
				return false
			}
		}
	}
}

func (r *Realtime) write(ws *websocket.Conn, msg realtimeMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(r.settings.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, b)
}

// read handles inbound frames in order until the connection fails
func (r *Realtime) read(ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var msg realtimeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("realtime message malformed", "error", err)
			continue
		}

		switch msg.Type {
		case msgConnected:
			var connected realtimeConnected
			_ = json.Unmarshal(msg.Data, &connected)
			r.logger.Debug("realtime acknowledged", "channels", connected.Channels)
			if r.session != "" {
				auth, _ := json.Marshal(realtimeAuth{Session: r.session})
				if err := r.write(ws, realtimeMessage{Type: msgAuthentication, Data: auth}); err != nil {
					return fmt.Errorf("send authentication: %w", err)
				}
			}

		case msgEvent:
			var ev domain.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				r.logger.Warn("realtime event malformed", "error", err)
				continue
			}
			r.dispatch(ev)

		case msgError:
			var e realtimeError
			_ = json.Unmarshal(msg.Data, &e)
			r.logger.Warn("realtime error", "code", e.Code, "message", e.Message)

		case msgResponse, msgPong:
			r.logger.Debug("realtime response", "type", msg.Type)

		default:
			r.logger.Debug("realtime message ignored", "type", msg.Type)
		}
	}
}

// dispatch calls every subscription whose channel the event was published to.
// Handlers run without the lock held.
func (r *Realtime) dispatch(ev domain.Event) {
	r.mu.Lock()
	var targets []*subscription
	for _, s := range r.subs {
		if slices.Contains(ev.Channels, s.channel) {
			targets = append(targets, s)
		}
	}
	r.mu.Unlock()

	slices.SortFunc(targets, func(a, b *subscription) int {
		return strings.Compare(a.id, b.id)
	})
	for _, s := range targets {
		s.fn(ev)
	}
}
