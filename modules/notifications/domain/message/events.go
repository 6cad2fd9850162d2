package message

// StatusChangedEvent is published after a committed status transition, both
// from the send loop and from provider webhooks.
type StatusChangedEvent struct {
	Previous string
	Result   *Message
}
