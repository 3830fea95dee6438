package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/orihero/aish-sub002/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatSessionsCollection = "chatsessions"

// ChatRepository implements domain.ChatRepository on a MongoDB collection
type ChatRepository struct {
	coll *mongo.Collection
}

// NewChatRepository creates a new screening session repository
func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{coll: db.Collection(chatSessionsCollection)}
}

// EnsureIndexes creates the indexes the repository relies on
func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "application_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "vacancy_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat session indexes: %w", err)
	}
	return nil
}

func (r *ChatRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("session for application %s already exists: %w", session.ApplicationID, domain.ErrVersionConflict)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ChatRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.ChatSession, error) {
	return r.findOne(ctx, bson.M{"application_id": applicationID})
}

func (r *ChatRepository) ListByVacancy(ctx context.Context, vacancyID string, limit, offset int) ([]domain.ChatSession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"vacancy_id": vacancyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []domain.ChatSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// Save replaces the stored document only if its version still matches
func (r *ChatRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	next := *session
	next.Version = session.Version + 1

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": session.ID, "version": session.Version}, &next)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, session.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	session.Version = next.Version
	return nil
}

func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *ChatRepository) findOne(ctx context.Context, filter bson.M) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := r.coll.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}
