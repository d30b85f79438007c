package jobs

// Payloads carry a snapshot of what the notifier needs; the record may be gone
// by the time a user.deleted job runs, so nothing is reloaded from the store.

type UserCreatedPayload struct {
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	FullName  string `json:"fullName,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type UserDeletedPayload struct {
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	RequestID string `json:"requestId,omitempty"`
}
