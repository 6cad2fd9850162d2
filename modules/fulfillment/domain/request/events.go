package request

// Events published on the application event bus after a committed mutation.
// Subscribers must not mutate the carried entity.

type CreatedEvent struct {
	Actor  string
	Result *Request
}

type ClaimedEvent struct {
	Actor  string
	Result *Request
}

type ApprovedEvent struct {
	Actor  string
	Result *Request
}

type RejectedEvent struct {
	Actor  string
	Reason string
	Result *Request
}

type InfoRequestedEvent struct {
	Actor  string
	Result *Request
}

type InfoRespondedEvent struct {
	Actor  string
	Result *Request
}

type LinesChangedEvent struct {
	Actor  string
	Change ProductChange
	Result *Request
}

type UpdatedEvent struct {
	Actor  string
	Result *Request
}

type DeletedEvent struct {
	Actor  string
	Result *Request
}
