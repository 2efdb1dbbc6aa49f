// Package metering aggregates per-user model usage in memory and publishes
// periodic summaries to Kafka for downstream billing and analytics. Credits
// are charged synchronously by the store; this is the reporting path.
package metering

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
)

type OperationUsage struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
}

// UsageSummary is the event published for one user and one flush window.
type UsageSummary struct {
	UserID           string                    `json:"userId"`
	Source           string                    `json:"source"`
	Period           string                    `json:"period"`
	Timestamp        time.Time                 `json:"timestamp"`
	Requests         int                       `json:"requests"`
	PromptTokens     int                       `json:"promptTokens"`
	CompletionTokens int                       `json:"completionTokens"`
	TotalTokens      int                       `json:"totalTokens"`
	ByOperation      map[string]OperationUsage `json:"byOperation"`
}

// SummaryPublisher is implemented by *Publisher.
type SummaryPublisher interface {
	PublishUsageSummary(ctx context.Context, summary UsageSummary) error
}

type UsageTrackerConfig struct {
	Publisher     SummaryPublisher
	Logger        logging.Logger
	Source        string
	FlushInterval time.Duration
}

type UsageTracker struct {
	publisher     SummaryPublisher
	logger        logging.Logger
	source        string
	flushInterval time.Duration
	started       atomic.Bool
	stopOnce      sync.Once
	stopCh        chan struct{}
	done          chan struct{}

	mu          sync.Mutex
	lastFlush   time.Time
	usageByUser map[string]*userUsage

	pendingMu sync.Mutex
	pending   []UsageSummary
}

type userUsage struct {
	requests         int
	promptTokens     int
	completionTokens int
	totalTokens      int
	byOperation      map[string]OperationUsage
}

func NewUsageTracker(cfg UsageTrackerConfig) *UsageTracker {
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Minute
	}
	source := cfg.Source
	if source == "" {
		source = defaultSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &UsageTracker{
		publisher:     cfg.Publisher,
		logger:        logger,
		source:        source,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		lastFlush:     time.Now(),
		usageByUser:   make(map[string]*userUsage),
	}
}

// Start runs the flush loop until Stop.
func (t *UsageTracker) Start() {
	if t == nil || !t.started.CompareAndSwap(false, true) {
		return
	}
	go t.loop()
}

// Stop flushes once more and waits for the loop to exit.
func (t *UsageTracker) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() {
		close(t.stopCh)
		if t.started.Load() {
			<-t.done
			return
		}
		t.Flush(context.Background())
	})
}

// RecordGeneration adds one model call to the user's current window.
func (t *UsageTracker) RecordGeneration(userID, operation string, usage llm.Usage) {
	if t == nil || userID == "" {
		return
	}
	total := usage.TotalTokens
	if total == 0 {
		total = usage.PromptTokens + usage.CompletionTokens
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.ensureUser(userID)
	u.requests++
	u.promptTokens += usage.PromptTokens
	u.completionTokens += usage.CompletionTokens
	u.totalTokens += total
	op := u.byOperation[operation]
	op.Requests++
	op.Tokens += total
	u.byOperation[operation] = op
}

func (t *UsageTracker) loop() {
	defer close(t.done)
	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Flush(context.Background())
		case <-t.stopCh:
			t.Flush(context.Background())
			return
		}
	}
}

// Flush publishes one summary per user with activity since the last flush.
// Summaries that fail to publish are kept and retried on the next flush.
func (t *UsageTracker) Flush(ctx context.Context) {
	if t == nil {
		return
	}
	now := time.Now()
	t.retryPending(ctx)

	t.mu.Lock()
	if len(t.usageByUser) == 0 {
		t.lastFlush = now
		t.mu.Unlock()
		return
	}
	snapshot := t.usageByUser
	t.usageByUser = make(map[string]*userUsage)
	windowStart := t.lastFlush
	t.lastFlush = now
	t.mu.Unlock()

	users := make([]string, 0, len(snapshot))
	for id := range snapshot {
		users = append(users, id)
	}
	sort.Strings(users)

	for _, userID := range users {
		summary := t.buildSummary(userID, snapshot[userID], windowStart, now)
		if t.publisher == nil {
			continue
		}
		if err := t.publisher.PublishUsageSummary(ctx, summary); err != nil {
			t.enqueue(summary)
			t.logger.WithError(err).WithField("user_id", userID).Warn("Failed to publish usage summary")
		}
	}
}

func (t *UsageTracker) buildSummary(userID string, u *userUsage, windowStart, windowEnd time.Time) UsageSummary {
	return UsageSummary{
		UserID:           userID,
		Source:           t.source,
		Period:           fmt.Sprintf("%s/%s", windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339)),
		Timestamp:        windowEnd,
		Requests:         u.requests,
		PromptTokens:     u.promptTokens,
		CompletionTokens: u.completionTokens,
		TotalTokens:      u.totalTokens,
		ByOperation:      u.byOperation,
	}
}

func (t *UsageTracker) ensureUser(userID string) *userUsage {
	u, ok := t.usageByUser[userID]
	if !ok {
		u = &userUsage{byOperation: map[string]OperationUsage{}}
		t.usageByUser[userID] = u
	}
	return u
}

func (t *UsageTracker) enqueue(summary UsageSummary) {
	t.pendingMu.Lock()
	t.pending = append(t.pending, summary)
	t.pendingMu.Unlock()
}

// Pending reports how many summaries await a retry.
func (t *UsageTracker) Pending() int {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	return len(t.pending)
}

func (t *UsageTracker) retryPending(ctx context.Context) {
	if t.publisher == nil {
		return
	}
	t.pendingMu.Lock()
	pending := t.pending
	t.pending = nil
	t.pendingMu.Unlock()
	if len(pending) == 0 {
		return
	}
	var remaining []UsageSummary
	for _, summary := range pending {
		if err := t.publisher.PublishUsageSummary(ctx, summary); err != nil {
			remaining = append(remaining, summary)
			t.logger.WithError(err).WithField("user_id", summary.UserID).Warn("Failed to retry usage summary")
		}
	}
	if len(remaining) > 0 {
		t.pendingMu.Lock()
		t.pending = append(remaining, t.pending...)
		t.pendingMu.Unlock()
	}
}
