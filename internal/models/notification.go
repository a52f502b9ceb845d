package models

import "fmt"

type NotificationKind string

const (
	NotificationPostSubmitted     NotificationKind = "post_submitted"
	NotificationPostApproved      NotificationKind = "post_approved"
	NotificationPostRejected      NotificationKind = "post_rejected"
	NotificationFeedbackSubmitted NotificationKind = "feedback_submitted"
	NotificationFeedbackResponded NotificationKind = "feedback_responded"
	NotificationUserBlocked       NotificationKind = "user_blocked"
	NotificationUserUnblocked     NotificationKind = "user_unblocked"
	NotificationMassBroadcast     NotificationKind = "mass_broadcast"
)

// Notification is an outbound event addressed to a Telegram user.
// Delivery is the transport's business.
type Notification struct {
	Recipient int64            `json:"recipient"`
	Kind      NotificationKind `json:"kind"`

	PostID      int64  `json:"post_id,omitempty"`
	FeedbackID  int64  `json:"feedback_id,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	Actor       string `json:"actor,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Text        string `json:"text,omitempty"`
	ImageFileID string `json:"image_file_id,omitempty"`
}

func (n *Notification) String() string {
	return fmt.Sprintf("Notification(%s -> %d)", n.Kind, n.Recipient)
}
