package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// ThreadRepository persists conversation threads and their messages in two
// collections. Participant slots are stored normalized, so pair lookups hit
// a single compound index.
type ThreadRepository struct {
	threads  *mongo.Collection
	messages *mongo.Collection
}

func NewThreadRepository(db *mongo.Database) *ThreadRepository {
	threads := db.Collection("msg_threads")
	messages := db.Collection("msg_messages")
	_, _ = threads.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{
			{Key: "a_kind", Value: 1}, {Key: "a_id", Value: 1},
			{Key: "b_kind", Value: 1}, {Key: "b_id", Value: 1},
			{Key: "project_id", Value: 1},
		},
	})
	_, _ = messages.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return &ThreadRepository{threads: threads, messages: messages}
}

func (r *ThreadRepository) ThreadsFor(ctx context.Context, refs []participant.Ref) ([]messaging.Thread, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	slots := make([]bson.M, 0, len(refs)*2)
	for _, ref := range refs {
		slots = append(slots,
			bson.M{"a_kind": string(ref.Kind), "a_id": ref.ID},
			bson.M{"b_kind": string(ref.Kind), "b_id": ref.ID},
		)
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := r.threads.Find(ctx, bson.M{"$or": slots}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []messaging.Thread
	for cursor.Next(ctx) {
		var doc threadDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		thread := doc.toAggregate()
		if thread.Messages, err = r.loadMessages(ctx, thread.ID); err != nil {
			return nil, err
		}
		result = append(result, thread)
	}
	return result, cursor.Err()
}

func (r *ThreadRepository) FindThread(ctx context.Context, a, b participant.Ref, projectID string) (messaging.Thread, error) {
	a, b = participant.Normalize(a, b)
	filter := bson.M{
		"a_kind": string(a.Kind), "a_id": a.ID,
		"b_kind": string(b.Kind), "b_id": b.ID,
	}
	if projectID != "" {
		filter["project_id"] = projectID
	}
	var doc threadDocument
	if err := r.threads.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return messaging.Thread{}, messaging.ErrThreadNotFound
		}
		return messaging.Thread{}, err
	}
	thread := doc.toAggregate()
	var err error
	if thread.Messages, err = r.loadMessages(ctx, thread.ID); err != nil {
		return messaging.Thread{}, err
	}
	return thread, nil
}

func (r *ThreadRepository) CreateThread(ctx context.Context, a, b participant.Ref, meta messaging.Metadata, now time.Time) (messaging.Thread, error) {
	thread, err := messaging.NewThread(messaging.ThreadID(uuid.NewString()), a, b, meta, now)
	if err != nil {
		return messaging.Thread{}, err
	}
	if _, err := r.threads.InsertOne(ctx, newThreadDocument(thread)); err != nil {
		return messaging.Thread{}, err
	}
	return thread, nil
}

func (r *ThreadRepository) InsertMessage(ctx context.Context, threadID messaging.ThreadID, sender participant.Ref, content string, at time.Time) (messaging.Message, error) {
	if strings.TrimSpace(content) == "" {
		return messaging.Message{}, messaging.ErrContentRequired
	}
	if err := r.threads.FindOne(ctx, bson.M{"_id": string(threadID)}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return messaging.Message{}, messaging.ErrThreadNotFound
		}
		return messaging.Message{}, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	msg := messaging.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Content:   content,
		Sender:    sender,
		Status:    messaging.StatusConfirmed,
		CreatedAt: at.UTC(),
	}
	if _, err := r.messages.InsertOne(ctx, newMessageDocument(msg)); err != nil {
		return messaging.Message{}, err
	}
	_, err := r.threads.UpdateByID(ctx, string(threadID), bson.M{
		"$max": bson.M{"last_message_at": msg.CreatedAt.UnixMilli()},
	})
	return msg, err
}

func (r *ThreadRepository) DeleteMessage(ctx context.Context, threadID messaging.ThreadID, messageID string) error {
	res, err := r.messages.DeleteOne(ctx, bson.M{"_id": messageID, "thread_id": string(threadID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func (r *ThreadRepository) DeleteThread(ctx context.Context, threadID messaging.ThreadID) error {
	res, err := r.threads.DeleteOne(ctx, bson.M{"_id": string(threadID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return messaging.ErrThreadNotFound
	}
	_, err = r.messages.DeleteMany(ctx, bson.M{"thread_id": string(threadID)})
	return err
}

func (r *ThreadRepository) MarkRead(ctx context.Context, threadID messaging.ThreadID, sender participant.Ref, at time.Time) (int, error) {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := r.messages.UpdateMany(ctx, bson.M{
		"thread_id":   string(threadID),
		"sender_kind": string(sender.Kind),
		"sender_id":   sender.ID,
		"read_at":     nil,
	}, bson.M{"$set": bson.M{"read_at": at.UTC().UnixMilli()}})
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *ThreadRepository) loadMessages(ctx context.Context, threadID messaging.ThreadID) ([]messaging.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"thread_id": string(threadID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []messaging.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toAggregate())
	}
	return result, cursor.Err()
}

type threadDocument struct {
	ID            string `bson:"_id"`
	AKind         string `bson:"a_kind"`
	AID           string `bson:"a_id"`
	BKind         string `bson:"b_kind"`
	BID           string `bson:"b_id"`
	ProjectID     string `bson:"project_id,omitempty"`
	InitiatorKind string `bson:"initiator_kind,omitempty"`
	InitiatorID   string `bson:"initiator_id,omitempty"`
	LastMessageAt int64  `bson:"last_message_at"`
	CreatedAt     int64  `bson:"created_at"`
}

func newThreadDocument(t messaging.Thread) threadDocument {
	return threadDocument{
		ID:            string(t.ID),
		AKind:         string(t.ParticipantA.Kind),
		AID:           t.ParticipantA.ID,
		BKind:         string(t.ParticipantB.Kind),
		BID:           t.ParticipantB.ID,
		ProjectID:     t.Metadata.ProjectID,
		InitiatorKind: string(t.Metadata.InitiatedBy.Kind),
		InitiatorID:   t.Metadata.InitiatedBy.ID,
		LastMessageAt: t.LastMessageAt.UnixMilli(),
		CreatedAt:     t.LastMessageAt.UnixMilli(),
	}
}

func (d threadDocument) toAggregate() messaging.Thread {
	return messaging.Thread{
		ID:           messaging.ThreadID(d.ID),
		ParticipantA: participant.Ref{Kind: participant.Kind(d.AKind), ID: d.AID},
		ParticipantB: participant.Ref{Kind: participant.Kind(d.BKind), ID: d.BID},
		Metadata: messaging.Metadata{
			ProjectID:   d.ProjectID,
			InitiatedBy: participant.Ref{Kind: participant.Kind(d.InitiatorKind), ID: d.InitiatorID},
		},
		LastMessageAt: timestampToTime(d.LastMessageAt),
	}
}

type messageDocument struct {
	ID         string `bson:"_id"`
	ThreadID   string `bson:"thread_id"`
	Content    string `bson:"content"`
	SenderKind string `bson:"sender_kind"`
	SenderID   string `bson:"sender_id"`
	CreatedAt  int64  `bson:"created_at"`
	ReadAt     *int64 `bson:"read_at"`
}

func newMessageDocument(m messaging.Message) messageDocument {
	doc := messageDocument{
		ID:         m.ID,
		ThreadID:   string(m.ThreadID),
		Content:    m.Content,
		SenderKind: string(m.Sender.Kind),
		SenderID:   m.Sender.ID,
		CreatedAt:  m.CreatedAt.UnixMilli(),
	}
	if m.ReadAt != nil {
		readAt := m.ReadAt.UnixMilli()
		doc.ReadAt = &readAt
	}
	return doc
}

func (d messageDocument) toAggregate() messaging.Message {
	msg := messaging.Message{
		ID:        d.ID,
		LocalID:   d.ID,
		ThreadID:  messaging.ThreadID(d.ThreadID),
		Content:   d.Content,
		Sender:    participant.Ref{Kind: participant.Kind(d.SenderKind), ID: d.SenderID},
		Status:    messaging.StatusConfirmed,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
	if d.ReadAt != nil {
		readAt := timestampToTime(*d.ReadAt)
		msg.ReadAt = &readAt
	}
	return msg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ messaging.Repository = (*ThreadRepository)(nil)
