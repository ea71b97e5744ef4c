// Package messagequeue publishes progress events (level completions,
// daily grants) for out-of-band analytics consumers.
package messagequeue

// MessageQueue defines the interface for message queue services.
type MessageQueue interface {
	Publish(queueName string, body []byte) error
	Close() error
}
