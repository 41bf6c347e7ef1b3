package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/luma/ovpnctl/client"
)

// UpdateBuffer is the size of each channel returned by ListenToUpdates.
const UpdateBuffer = 255

// Record is what the store keeps for the latest notification of a category.
type Record struct {
	Payload    string    `json:"payload"`
	Extra      []string  `json:"extra,omitempty"`
	Raw        string    `json:"raw"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// InmemoryStore keeps a single JSON document in memory. As a client.Observer
// it records the latest notification of each category under the category
// name, e.g.
//
//	{"STATE":{"payload":"1700000000,CONNECTED,...","raw":">STATE:...","receivedAt":"..."}}
type InmemoryStore struct {
	mu     sync.RWMutex
	values []byte

	updateChans []chan *Update

	closeOnce sync.Once

	// stop will be closed when Close() is called
	stop chan struct{}

	log *zap.Logger
}

func NewInmemoryStore(log *zap.Logger) *InmemoryStore {
	if log == nil {
		log = zap.NewNop()
	}

	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
		log:         log,
	}
}

func (i *InmemoryStore) Close() error {
	i.closeOnce.Do(func() {
		i.mu.Lock()
		defer i.mu.Unlock()

		close(i.stop)

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}

		i.updateChans = nil
	})

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return ErrStoreClosed
	}

	path := escapeKey(key)

	values, err := sjson.SetBytes(i.values, path, value)
	if err != nil {
		return fmt.Errorf("Failed to set '%s': %w", key, err)
	}

	i.values = values

	update := &Update{
		Key:   key,
		Value: []byte(gjson.GetBytes(i.values, path).Raw),
	}

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:

		default:
			i.log.Warn("Update listener is full, dropped update", zap.String("key", key))
		}
	}

	return nil
}

// Get returns the JSON encoding of the value under key.
func (i *InmemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := gjson.GetBytes(i.values, escapeKey(key))
	if !result.Exists() {
		return nil, fmt.Errorf("Failed to get '%s': %w", key, ErrNotFound)
	}

	return []byte(result.Raw), nil
}

// Record returns the latest notification recorded for category.
func (i *InmemoryStore) Record(category string) (Record, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := gjson.GetBytes(i.values, escapeKey(category))
	if !result.Exists() {
		return Record{}, false
	}

	record := Record{
		Payload: result.Get("payload").String(),
		Raw:     result.Get("raw").String(),
	}

	for _, extra := range result.Get("extra").Array() {
		record.Extra = append(record.Extra, extra.String())
	}

	if receivedAt := result.Get("receivedAt"); receivedAt.Exists() {
		record.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedAt.String())
	}

	return record, true
}

// OnNotification records n as the latest notification of its category.
func (i *InmemoryStore) OnNotification(n client.Notification) {
	err := i.Set(context.Background(), n.Category, Record{
		Payload:    n.Payload,
		Extra:      n.Extra,
		Raw:        n.Raw,
		ReceivedAt: n.ReceivedAt,
	})

	if err != nil {
		i.log.Warn("Failed to record notification",
			zap.String("category", n.Category),
			zap.Error(err))
	}
}

// ListenToUpdates returns a channel that receives every update from now on.
// Updates are dropped while the channel is full. The channel is closed by
// Close.
func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, UpdateBuffer)

	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) || !gjson.ParseBytes(values).IsObject() {
		return ErrInvalidJSON
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = append([]byte(nil), values...)

	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return append([]byte(nil), i.values...), nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var keyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
)

// escapeKey makes key usable as a single gjson/sjson path component.
func escapeKey(key string) string {
	return keyEscaper.Replace(key)
}

var (
	_ Store           = (*InmemoryStore)(nil)
	_ client.Observer = (*InmemoryStore)(nil)
)
