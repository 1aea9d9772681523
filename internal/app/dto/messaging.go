package dto

import (
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// Participant is a resolved conversation party.
type Participant struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ConversationSummary is one entry in the conversation list.
type ConversationSummary struct {
	Key           string      `json:"key"`
	ThreadID      string      `json:"thread_id"`
	ActingOrg     string      `json:"acting_org,omitempty"`
	Owner         Participant `json:"owner"`
	Counterpart   Participant `json:"counterpart"`
	Preview       string      `json:"preview,omitempty"`
	Unread        int         `json:"unread"`
	LastMessageAt time.Time   `json:"last_message_at"`
	ActivityLabel string      `json:"activity_label,omitempty"`
}

// ConversationList is the inbox payload.
type ConversationList struct {
	Items       []ConversationSummary `json:"items"`
	TotalUnread int                   `json:"total_unread"`
}

// ChatMessage is a single message payload.
type ChatMessage struct {
	ID        string    `json:"id"`
	LocalID   string    `json:"local_id,omitempty"`
	ThreadID  string    `json:"thread_id"`
	Sender    Participant `json:"sender"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Mine      bool      `json:"mine"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	SentLabel string    `json:"sent_label,omitempty"`
}

// MessageGroup is one calendar day of a conversation.
type MessageGroup struct {
	Label    string        `json:"label"`
	Messages []ChatMessage `json:"messages"`
}

// ConversationDetail is the full conversation payload with date separators.
type ConversationDetail struct {
	ConversationSummary
	Groups []MessageGroup `json:"groups"`
}

func MapParticipant(p participant.Profile) Participant {
	return Participant{
		Kind:      string(p.Ref.Kind),
		ID:        p.Ref.ID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}

func MapConversationSummary(view messaging.ThreadView, resolve messaging.Resolver, now time.Time) ConversationSummary {
	return ConversationSummary{
		Key:           view.Key.String(),
		ThreadID:      string(view.Key.ThreadID),
		ActingOrg:     view.Key.ActingOrg,
		Owner:         mapRef(view.Owner, resolve),
		Counterpart:   MapParticipant(view.Counterpart),
		Preview:       view.Preview,
		Unread:        view.Unread,
		LastMessageAt: view.LastMessageAt,
		ActivityLabel: messaging.FormatTimestamp(view.LastMessageAt, now),
	}
}

func MapConversationList(views []messaging.ThreadView, resolve messaging.Resolver, now time.Time) ConversationList {
	items := make([]ConversationSummary, 0, len(views))
	for _, view := range views {
		items = append(items, MapConversationSummary(view, resolve, now))
	}
	return ConversationList{Items: items, TotalUnread: messaging.TotalUnread(views)}
}

func MapConversationDetail(view messaging.ThreadView, resolve messaging.Resolver, loc *time.Location, now time.Time) ConversationDetail {
	detail := ConversationDetail{ConversationSummary: MapConversationSummary(view, resolve, now)}
	for _, group := range messaging.GroupByDay(view.Messages, loc, now) {
		mapped := MessageGroup{Label: group.Label, Messages: make([]ChatMessage, 0, len(group.Messages))}
		for _, msg := range group.Messages {
			mapped.Messages = append(mapped.Messages, MapChatMessage(msg, view.Owner, resolve, now))
		}
		detail.Groups = append(detail.Groups, mapped)
	}
	return detail
}

func MapChatMessage(msg messaging.Message, owner participant.Ref, resolve messaging.Resolver, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        msg.ID,
		LocalID:   msg.LocalID,
		ThreadID:  string(msg.ThreadID),
		Sender:    mapRef(msg.Sender, resolve),
		Content:   msg.Content,
		Status:    string(msg.Status),
		Mine:      msg.Sender.Equal(owner),
		Read:      msg.IsRead(),
		CreatedAt: msg.CreatedAt,
		SentLabel: messaging.FormatTimestamp(msg.CreatedAt, now),
	}
}

// mapRef resolves a bare ref through the cache; unresolved parties degrade
// to kind and id only.
func mapRef(ref participant.Ref, resolve messaging.Resolver) Participant {
	if resolve != nil {
		if profile, ok := resolve(ref); ok {
			return MapParticipant(profile)
		}
	}
	return Participant{Kind: string(ref.Kind), ID: ref.ID}
}
