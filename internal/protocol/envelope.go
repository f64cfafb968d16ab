// Package protocol defines the JSON envelopes exchanged over the persistent
// connection and converts raw inbound frames into a closed set of variants
// before any business logic runs.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound envelope type discriminators.
const (
	TypeChat                = "CHAT"
	TypeFriendRequest       = "FRIEND_REQUEST"
	TypeHandleFriendRequest = "HANDLE_FRIEND_REQUEST"
	TypeCreateGroup         = "CREATE_GROUP"
)

// Outbound envelope type discriminators.
const (
	PushMessage             = "message"
	PushUserStatus          = "userStatus"
	PushFriendRequest       = "friendRequest"
	PushFriendRequestResult = "FRIEND_REQUEST_RESULT"
	PushError               = "error"
)

// Inbound is the closed set of client envelopes. Decode is the only
// constructor; a handler switching over Inbound covers every variant.
type Inbound interface {
	inbound()
}

// Chat carries one chat message. Exactly one of ReceiverID and GroupID
// must be set; the router validates the invariant.
type Chat struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	Content    string `json:"content"`
	MsgType    string `json:"messageType"`
	FileURL    string `json:"fileUrl,omitempty"`
}

// FriendRequest asks to establish a contact pair.
type FriendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// HandleFriendRequest resolves a pending request.
type HandleFriendRequest struct {
	RequestID string `json:"requestId"`
	Accept    bool   `json:"accept"`
}

// CreateGroup creates a group with an initial member set.
type CreateGroup struct {
	Name      string   `json:"name"`
	CreatorID string   `json:"creatorId"`
	MemberIDs []string `json:"memberIds"`
}

func (Chat) inbound()                {}
func (FriendRequest) inbound()       {}
func (HandleFriendRequest) inbound() {}
func (CreateGroup) inbound()         {}

type rawEnvelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame into its variant. Unknown discriminators
// and malformed payloads are returned as errors; the caller answers with an
// error envelope and keeps the connection open.
func Decode(data []byte) (Inbound, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	switch raw.Type {
	case TypeChat:
		var v Chat
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("malformed %s envelope: %w", raw.Type, err)
		}
		return v, nil
	case TypeFriendRequest:
		var v FriendRequest
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("malformed %s envelope: %w", raw.Type, err)
		}
		return v, nil
	case TypeHandleFriendRequest:
		var v HandleFriendRequest
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("malformed %s envelope: %w", raw.Type, err)
		}
		return v, nil
	case TypeCreateGroup:
		var v CreateGroup
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("malformed %s envelope: %w", raw.Type, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unrecognized envelope type %q", raw.Type)
	}
}

// Outbound is one push envelope. Payload holds the entity read view matching
// the discriminator.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// UserStatus is the payload of a userStatus push.
type UserStatus struct {
	UserID string `json:"userId"`
	Status int    `json:"status"`
}

// ErrorPayload is the payload of an error push.
type ErrorPayload struct {
	Message string `json:"message"`
}

func NewMessagePush(payload any) Outbound {
	return Outbound{Type: PushMessage, Payload: payload}
}

func NewUserStatusPush(userID string, status int) Outbound {
	return Outbound{Type: PushUserStatus, Payload: UserStatus{UserID: userID, Status: status}}
}

func NewFriendRequestPush(payload any) Outbound {
	return Outbound{Type: PushFriendRequest, Payload: payload}
}

func NewFriendRequestResultPush(payload any) Outbound {
	return Outbound{Type: PushFriendRequestResult, Payload: payload}
}

func NewErrorPush(msg string) Outbound {
	return Outbound{Type: PushError, Payload: ErrorPayload{Message: msg}}
}
