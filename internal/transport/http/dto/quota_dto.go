package dto

type QuotaSnapshotResponse struct {
	Tier             string `json:"tier"`
	ChatLimit        int    `json:"chat_limit"`
	ChatUsed         int    `json:"chat_used"`
	ChatRemaining    int    `json:"chat_remaining"`
	ContactLimit     int    `json:"contact_limit"`
	ContactUsed      int    `json:"contact_used"`
	ContactRemaining int    `json:"contact_remaining"`
}
