package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukerupert/contactbook/internal/model"
)

// SessionStore keeps the session embedded in its account document.
type SessionStore struct {
	coll *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{coll: db.Collection(accountsCollection)}
}

func (s *SessionStore) Put(ctx context.Context, sess model.Session) error {
	oid, err := primitive.ObjectIDFromHex(sess.AccountID)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	doc := sessionDoc{Token: sess.Token, IssuedAt: sess.IssuedAt.UTC(), ExpiresAt: sess.ExpiresAt.UTC()}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"session": doc}})
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetByAccountID(ctx context.Context, accountID string) (*model.Session, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, nil
	}

	var doc struct {
		Session *sessionDoc `bson:"session"`
	}
	err = s.coll.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"session": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if doc.Session == nil {
		return nil, nil
	}
	return &model.Session{
		AccountID: accountID,
		Token:     doc.Session.Token,
		IssuedAt:  doc.Session.IssuedAt,
		ExpiresAt: doc.Session.ExpiresAt,
	}, nil
}

func (s *SessionStore) DeleteByAccountID(ctx context.Context, accountID string) error {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$unset": bson.M{"session": ""}})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"session.expires_at": bson.M{"$lte": time.Now().UTC()}},
		bson.M{"$unset": bson.M{"session": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.ModifiedCount, nil
}
