package order

type CreatedEvent struct {
	Actor  string
	Result *Order
}

type PackedEvent struct {
	Actor  string
	Result *Order
}

type ShippedEvent struct {
	Actor  string
	Result *Order
}
