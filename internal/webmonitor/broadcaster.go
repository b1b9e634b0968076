package webmonitor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/dump"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// hub fans values out to subscribed clients without blocking the publisher.
type hub[T any] struct {
	name    string
	mu      sync.Mutex
	clients map[int]chan T
	nextID  int
	closed  bool
}

func newHub[T any](name string) *hub[T] {
	return &hub[T]{name: name, clients: make(map[int]chan T)}
}

// Subscribe adds a new client and returns a channel for receiving values.
// After close the returned channel is already closed.
func (h *hub[T]) Subscribe() (int, <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan T, 2) // Buffer 2 values to avoid blocking
	if h.closed {
		close(ch)
		return id, ch
	}
	h.clients[id] = ch

	logger.Debug(h.name, "Client #%d subscribed (total clients: %d)", id, len(h.clients))
	return id, ch
}

// Unsubscribe removes a client.
func (h *hub[T]) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
		logger.Debug(h.name, "Client #%d unsubscribed (remaining clients: %d)", id, len(h.clients))
	}
}

// Clients returns the number of subscribed clients.
func (h *hub[T]) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast delivers v to every client with room for it and returns how many got it.
func (h *hub[T]) broadcast(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for _, ch := range h.clients {
		select {
		case ch <- v:
			sent++
		default:
			// Client too slow, skip this value for this client
		}
	}
	return sent
}

// close disconnects every client.
func (h *hub[T]) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
}

// SerializedEvent holds pre-serialized data in both formats.
// This avoids redundant serialization when broadcasting to multiple clients.
type SerializedEvent struct {
	JSONData     []byte // Pre-serialized JSON
	ProtobufData []byte // Pre-serialized google.protobuf.Struct, base64 encoded for SSE
}

// serializeEvent encodes v as JSON and as a base64 protobuf Struct with the same fields.
func serializeEvent(v any) (*SerializedEvent, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return nil, fmt.Errorf("json object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("protobuf struct: %w", err)
	}
	pbData, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("protobuf marshal: %w", err)
	}

	return &SerializedEvent{
		JSONData:     jsonData,
		ProtobufData: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}, nil
}

// EventBroadcaster fans interest events out to SSE clients.
type EventBroadcaster struct {
	*hub[*SerializedEvent]
}

// NewEventBroadcaster creates a broadcaster for interest events.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{hub: newHub[*SerializedEvent]("EventBroadcaster")}
}

// Publish serializes ev once and sends it to every client.
func (eb *EventBroadcaster) Publish(ev types.InterestEvent) {
	if eb.Clients() == 0 {
		return
	}
	event, err := serializeEvent(ev)
	if err != nil {
		logger.Error("EventBroadcaster", "Serialize error: %v", err)
		return
	}
	eb.broadcast(event)
}

// MaskBroadcaster renders threshold masks as JPEG for MJPEG clients. Masks are
// only rendered while at least one client is connected.
type MaskBroadcaster struct {
	*hub[[]byte]
	quality   int
	gain      int
	skipCount int
}

// NewMaskBroadcaster creates a mask broadcaster. Mask cells are multiplied by
// gain (saturating at 255) so the small mask weight is visible.
func NewMaskBroadcaster(quality, gain int) *MaskBroadcaster {
	if gain <= 0 {
		gain = 1
	}
	return &MaskBroadcaster{
		hub:     newHub[[]byte]("MaskBroadcaster"),
		quality: quality,
		gain:    gain,
	}
}

// Publish renders res's mask and sends it to every client.
func (mb *MaskBroadcaster) Publish(res *interest.Interest) {
	if res == nil {
		return
	}
	if mb.Clients() == 0 {
		mb.skipCount++
		if mb.skipCount%100 == 0 {
			logger.Debug("MaskBroadcaster", "No clients connected, skipped %d masks", mb.skipCount)
		}
		return
	}
	mb.skipCount = 0

	data, err := renderMask(res.Threshold(), mb.gain, mb.quality)
	if err != nil {
		logger.Warn("MaskBroadcaster", "Render error: %v", err)
		return
	}
	mb.broadcast(data)
}

// renderMask scales mask cells by gain and encodes the result as JPEG.
func renderMask(mask *interest.Mask, gain, quality int) ([]byte, error) {
	scaled := interest.NewMask(mask.Width, mask.Height)
	for i, v := range mask.Pix {
		s := int(v) * gain
		if s > 255 {
			s = 255
		}
		scaled.Pix[i] = uint8(s)
	}
	return dump.EncodeMask(scaled, quality)
}

// StatusBroadcaster periodically publishes status snapshots to SSE clients.
type StatusBroadcaster struct {
	*hub[*SerializedEvent]
	snapshot func() StatusPayload
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewStatusBroadcaster creates a broadcaster publishing snapshot() every interval.
func NewStatusBroadcaster(snapshot func() StatusPayload, interval time.Duration) *StatusBroadcaster {
	return &StatusBroadcaster{
		hub:      newHub[*SerializedEvent]("StatusBroadcaster"),
		snapshot: snapshot,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the status loop.
func (sb *StatusBroadcaster) Start() {
	go sb.run()
}

// Stop halts the broadcaster and disconnects its clients.
func (sb *StatusBroadcaster) Stop() {
	sb.once.Do(func() {
		close(sb.stop)
		sb.close()
	})
}

func (sb *StatusBroadcaster) run() {
	logger.Info("StatusBroadcaster", "Starting status event broadcaster (interval=%v)...", sb.interval)
	ticker := time.NewTicker(sb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sb.stop:
			return
		case <-ticker.C:
			if sb.Clients() == 0 {
				continue
			}
			event, err := serializeEvent(sb.snapshot())
			if err != nil {
				logger.Error("StatusBroadcaster", "Serialize error: %v", err)
				continue
			}
			sb.broadcast(event)
		}
	}
}
