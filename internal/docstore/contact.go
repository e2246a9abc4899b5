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

type contactDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Favorite  bool               `bson:"favorite"`
	Owner     primitive.ObjectID `bson:"owner"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *contactDoc) toModel() *model.Contact {
	return &model.Contact{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Favorite:  d.Favorite,
		OwnerID:   d.Owner.Hex(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ContactStore scopes every query by owner.
type ContactStore struct {
	coll *mongo.Collection
}

func NewContactStore(db *mongo.Database) *ContactStore {
	return &ContactStore{coll: db.Collection(contactsCollection)}
}

// ownedFilter returns ok=false when either id is not a valid ObjectID, which
// callers treat as a missing contact.
func ownedFilter(ownerID, id string) (bson.M, bool) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "owner": owner}, true
}

func (s *ContactStore) Create(ctx context.Context, ownerID string, in model.ContactInput) (*model.Contact, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := contactDoc{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return doc.toModel(), nil
}

func (s *ContactStore) GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return nil, nil
	}
	var doc contactDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return doc.toModel(), nil
}

func (s *ContactStore) List(ctx context.Context, ownerID string, f model.ContactFilter) ([]model.Contact, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, nil
	}
	if f.Limit <= 0 {
		f.Limit = model.DefaultContactLimit
	}

	filter := bson.M{"owner": owner}
	if f.Favorite != nil {
		filter["favorite"] = *f.Favorite
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer cur.Close(ctx)

	var contacts []model.Contact
	for cur.Next(ctx) {
		var doc contactDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode contact: %w", err)
		}
		contacts = append(contacts, *doc.toModel())
	}
	return contacts, cur.Err()
}

func (s *ContactStore) update(ctx context.Context, ownerID, id string, set bson.M, op string) (*model.Contact, error) {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return nil, nil
	}
	set["updated_at"] = time.Now().UTC()

	var doc contactDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
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

func (s *ContactStore) Update(ctx context.Context, ownerID, id string, in model.ContactInput) (*model.Contact, error) {
	return s.update(ctx, ownerID, id, bson.M{"name": in.Name, "email": in.Email, "phone": in.Phone}, "update contact")
}

func (s *ContactStore) SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*model.Contact, error) {
	return s.update(ctx, ownerID, id, bson.M{"favorite": favorite}, "set favorite")
}

func (s *ContactStore) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	filter, ok := ownedFilter(ownerID, id)
	if !ok {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	return res.DeletedCount > 0, nil
}
