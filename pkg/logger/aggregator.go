package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated log entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type AggregatorConfig struct {
	FlushInterval  time.Duration // periodic flush cadence
	CountThreshold int           // max unique entries before an early flush
	Topic          string
	Publisher      Publisher
}

// AggregatedEntry is one deduplicated error line with its occurrence window.
type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// ErrorAggregator deduplicates repeated error logs and flushes them to the
// message bus in batches, either on a timer or when the unique-entry count
// crosses the threshold.
type ErrorAggregator struct {
	cfg     *AggregatorConfig
	entries map[string]*AggregatedEntry
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewErrorAggregator(cfg *AggregatorConfig) *ErrorAggregator {
	ctx, cancel := context.WithCancel(context.Background())

	a := &ErrorAggregator{
		cfg:     cfg,
		entries: make(map[string]*AggregatedEntry),
		ctx:     ctx,
		cancel:  cancel,
	}

	a.wg.Add(1)
	go a.loop()

	return a
}

func (a *ErrorAggregator) Record(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	a.mu.Lock()
	defer a.mu.Unlock()

	if entry, ok := a.entries[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		a.entries[key] = &AggregatedEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(a.entries) >= a.cfg.CountThreshold {
		a.flushLocked()
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	raw, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

func (a *ErrorAggregator) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
		case <-a.ctx.Done():
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
			return
		}
	}
}

func (a *ErrorAggregator) flushLocked() {
	if len(a.entries) == 0 {
		return
	}

	batch := make([]AggregatedEntry, 0, len(a.entries))
	for _, entry := range a.entries {
		batch = append(batch, *entry)
	}
	a.entries = make(map[string]*AggregatedEntry)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := a.cfg.Publisher.PublishMessage(ctx, a.cfg.Topic, batch); err != nil {
			fmt.Printf("failed to publish aggregated logs: %v\n", err)
		}
	}()
}

func (a *ErrorAggregator) Close() {
	a.cancel()
	a.wg.Wait()
}
