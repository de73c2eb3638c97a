package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// UserDirectory implements domain.IdentityProvider over the users collection.
type UserDirectory struct {
	col *mongo.Collection
}

type userDocument struct {
	UID           string `bson:"uid"`
	Email         string `bson:"email"`
	EmailVerified bool   `bson:"emailVerified"`
	DisplayName   string `bson:"displayName,omitempty"`
}

// GetUser returns the account for uid, or domain.ErrNotFound.
func (u *UserDirectory) GetUser(ctx context.Context, uid string) (domain.User, error) {
	var doc userDocument
	err := u.col.FindOne(ctx, bson.M{"uid": uid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, fmt.Errorf("user %s: %w", uid, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user %s: %w", uid, err)
	}
	return domain.User{
		UID:           doc.UID,
		Email:         doc.Email,
		EmailVerified: doc.EmailVerified,
		DisplayName:   doc.DisplayName,
	}, nil
}

// Upsert creates or replaces an account record.
func (u *UserDirectory) Upsert(ctx context.Context, user domain.User) error {
	doc := userDocument{
		UID:           user.UID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		DisplayName:   user.DisplayName,
	}
	_, err := u.col.ReplaceOne(ctx, bson.M{"uid": user.UID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.UID, err)
	}
	return nil
}
