package enums

// SlotKind distinguishes the two quota pools a profile consumes from.
type SlotKind string

const (
	SlotChat    SlotKind = "chat"
	SlotContact SlotKind = "contact"
)
