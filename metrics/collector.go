// Package metrics provides process-wide counters for the replay watcher.
//
// The Collector accumulates counters for the lifetime of a watch session.
// It is a leaf package with no internal dependencies; Prometheus exposition
// reads the same counters through Snapshot.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Arrivals
	ArrivalsSeen       int64
	ArrivalsIgnored    int64
	ArrivalsSuperseded int64
	StabilizeFailures  int64

	// Parsing
	ParseAttempts int64
	ParseFailures int64
	ParseDegraded int64

	// Pipeline
	ReplaysProcessed int64
	RenderFailures   int64

	// Delivery
	DeliverySuccess          int64
	DeliveryFailure          int64
	DeliveryFailureByChannel map[string]int64

	// Archive
	ArchiveSuccess int64
	ArchiveFailure int64
}

// Collector accumulates counters during a watch session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	arrivalsSeen       int64
	arrivalsIgnored    int64
	arrivalsSuperseded int64
	stabilizeFailures  int64

	parseAttempts int64
	parseFailures int64
	parseDegraded int64

	replaysProcessed int64
	renderFailures   int64

	deliverySuccess          int64
	deliveryFailure          int64
	deliveryFailureByChannel map[string]int64

	archiveSuccess int64
	archiveFailure int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{deliveryFailureByChannel: make(map[string]int64)}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Arrivals ---

// IncArrivalSeen records a filesystem event for a replay file.
func (c *Collector) IncArrivalSeen() {
	if c == nil {
		return
	}
	c.inc(&c.arrivalsSeen)
}

// IncArrivalIgnored records an event dropped by the extension or directory filter.
func (c *Collector) IncArrivalIgnored() {
	if c == nil {
		return
	}
	c.inc(&c.arrivalsIgnored)
}

// IncArrivalSuperseded records a pending arrival replaced by a newer one,
// either by timer reset or by overwrite of the ready slot.
func (c *Collector) IncArrivalSuperseded() {
	if c == nil {
		return
	}
	c.inc(&c.arrivalsSuperseded)
}

// IncStabilizeFailure records a stabilization wait that was abandoned.
func (c *Collector) IncStabilizeFailure() {
	if c == nil {
		return
	}
	c.inc(&c.stabilizeFailures)
}

// --- Parsing ---

// IncParseAttempt records one decoder invocation.
func (c *Collector) IncParseAttempt() {
	if c == nil {
		return
	}
	c.inc(&c.parseAttempts)
}

// IncParseFailure records one failed decoder invocation.
func (c *Collector) IncParseFailure() {
	if c == nil {
		return
	}
	c.inc(&c.parseFailures)
}

// IncParseDegraded records a replay whose retries were exhausted.
func (c *Collector) IncParseDegraded() {
	if c == nil {
		return
	}
	c.inc(&c.parseDegraded)
}

// --- Pipeline ---

// IncReplayProcessed records a replay that reached the render stage.
func (c *Collector) IncReplayProcessed() {
	if c == nil {
		return
	}
	c.inc(&c.replaysProcessed)
}

// IncRenderFailure records a failed render or image write.
func (c *Collector) IncRenderFailure() {
	if c == nil {
		return
	}
	c.inc(&c.renderFailures)
}

// --- Delivery ---
// Delivery counters are per adapter call. One artifact fanned out to three
// channels counts three times.

// IncDeliverySuccess records a successful delivery.
func (c *Collector) IncDeliverySuccess() {
	if c == nil {
		return
	}
	c.inc(&c.deliverySuccess)
}

// IncDeliveryFailure records a failed delivery on channel.
func (c *Collector) IncDeliveryFailure(channel string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deliveryFailure++
	c.deliveryFailureByChannel[channel]++
	c.mu.Unlock()
}

// --- Archive ---

// IncArchiveSuccess records an artifact copied to the archive store.
func (c *Collector) IncArchiveSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.archiveSuccess)
}

// IncArchiveFailure records a failed archive write.
func (c *Collector) IncArchiveFailure() {
	if c == nil {
		return
	}
	c.inc(&c.archiveFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byChannel := make(map[string]int64, len(c.deliveryFailureByChannel))
	for k, v := range c.deliveryFailureByChannel {
		byChannel[k] = v
	}

	return Snapshot{
		ArrivalsSeen:       c.arrivalsSeen,
		ArrivalsIgnored:    c.arrivalsIgnored,
		ArrivalsSuperseded: c.arrivalsSuperseded,
		StabilizeFailures:  c.stabilizeFailures,

		ParseAttempts: c.parseAttempts,
		ParseFailures: c.parseFailures,
		ParseDegraded: c.parseDegraded,

		ReplaysProcessed: c.replaysProcessed,
		RenderFailures:   c.renderFailures,

		DeliverySuccess:          c.deliverySuccess,
		DeliveryFailure:          c.deliveryFailure,
		DeliveryFailureByChannel: byChannel,

		ArchiveSuccess: c.archiveSuccess,
		ArchiveFailure: c.archiveFailure,
	}
}
