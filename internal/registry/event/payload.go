package event

// RegisteredPayload captures the payload for registry.registered events.
type RegisteredPayload struct {
	Username string `json:"username"`
}

// ProfileUpdatedPayload captures the payload for registry.profile_updated
// events. An empty Value signals that Key was deleted.
type ProfileUpdatedPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UsernameTransferredPayload captures the payload for
// registry.username_transferred events.
type UsernameTransferredPayload struct {
	Username   string `json:"username"`
	NewAddress string `json:"new_address"`
}
