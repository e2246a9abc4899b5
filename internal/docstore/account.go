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

	"github.com/dukerupert/contactbook/internal/common"
	"github.com/dukerupert/contactbook/internal/model"
)

type sessionDoc struct {
	Token     string    `bson:"token"`
	IssuedAt  time.Time `bson:"issued_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type accountDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password"`
	Subscription      string             `bson:"subscription"`
	AvatarURL         string             `bson:"avatarURL"`
	Verified          bool               `bson:"verify"`
	VerificationToken *string            `bson:"verification_token,omitempty"`
	Session           *sessionDoc        `bson:"session,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

func (d *accountDoc) toModel() *model.Account {
	return &model.Account{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Subscription:      model.Subscription(d.Subscription),
		AvatarURL:         d.AvatarURL,
		Verified:          d.Verified,
		VerificationToken: d.VerificationToken,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type AccountStore struct {
	coll *mongo.Collection
}

func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{coll: db.Collection(accountsCollection)}
}

// Create inserts a new account. A duplicate email yields common.ErrEmailInUse.
func (s *AccountStore) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	if a.Subscription == "" {
		a.Subscription = model.SubscriptionStarter
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := accountDoc{
		ID:                primitive.NewObjectID(),
		Email:             a.Email,
		PasswordHash:      a.PasswordHash,
		Subscription:      string(a.Subscription),
		AvatarURL:         a.AvatarURL,
		Verified:          a.Verified,
		VerificationToken: a.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, common.ErrEmailInUse
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toModel(), nil
}

func (s *AccountStore) findOne(ctx context.Context, filter bson.M, op string) (*model.Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid}, "get account")
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.findOne(ctx, bson.M{"email": email}, "get account by email")
}

func (s *AccountStore) GetByVerificationToken(ctx context.Context, token string) (*model.Account, error) {
	return s.findOne(ctx, bson.M{"verification_token": token}, "get account by verification token")
}

// MarkVerified sets the verified flag and clears the verification token.
func (s *AccountStore) MarkVerified(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrNotFound
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   bson.M{"verify": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"verification_token": ""},
	})
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *AccountStore) update(ctx context.Context, id string, set bson.M, op string) (*model.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	set["updated_at"] = time.Now().UTC()

	var doc accountDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (s *AccountStore) UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.Account, error) {
	return s.update(ctx, id, bson.M{"subscription": string(sub)}, "update subscription")
}

func (s *AccountStore) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Account, error) {
	return s.update(ctx, id, bson.M{"avatarURL": avatarURL}, "update avatar")
}
