package dto

type ReconsiderRequest struct {
	OtherProfileID int64  `json:"other_profile_id"`
	Kind           string `json:"kind"`
}

type ReconsiderResponse struct {
	Kind             string                  `json:"kind"`
	Unblocked        bool                    `json:"unblocked,omitempty"`
	RestoredInterest *InterestResponse       `json:"restored_interest,omitempty"`
	RestoredContact  *ContactRequestResponse `json:"restored_contact,omitempty"`
}
