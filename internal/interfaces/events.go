package interfaces

import "github.com/ternarybob/augur/internal/models"

// RunEventSink receives run progress events as they happen.
type RunEventSink interface {
	Publish(ev models.RunEvent)
}

// RunEventService fans run events out to subscribers (websocket
// clients, log mirrors). Publish never blocks the pipeline; slow
// subscribers drop events rather than stalling a run.
type RunEventService interface {
	RunEventSink

	// Subscribe registers a new subscriber and returns its id and
	// receive channel. The channel is closed on Unsubscribe or Close.
	Subscribe(buffer int) (string, <-chan models.RunEvent)

	// Unsubscribe removes a subscriber and closes its channel
	Unsubscribe(id string)

	// Close shuts down all subscriptions
	Close()
}
