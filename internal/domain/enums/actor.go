package enums

// Actor records which side of a record performed a transition.
type Actor string

const (
	ActorSender   Actor = "sender"
	ActorReceiver Actor = "receiver"
)
