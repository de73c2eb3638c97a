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

// ProfileStore implements domain.ProfileStore. One document per user holds
// the saved locations array and the notification preferences.
type ProfileStore struct {
	col *mongo.Collection
}

type profileDocument struct {
	UID         string              `bson:"uid"`
	Email       string              `bson:"email,omitempty"`
	Locations   []locationDocument  `bson:"locations"`
	Preferences preferencesDocument `bson:"preferences"`
}

type locationDocument struct {
	Label    string `bson:"label"`
	Address  string `bson:"address"`
	Locality string `bson:"locality,omitempty"`
	City     string `bson:"city"`
	State    string `bson:"state,omitempty"`
	PinCode  string `bson:"pinCode,omitempty"`
}

type preferencesDocument struct {
	Categories []string `bson:"categories"`
	Email      bool     `bson:"email"`
	Push       bool     `bson:"push"`
}

func (d profileDocument) toDomain() domain.Profile {
	p := domain.Profile{
		UID:       d.UID,
		Email:     d.Email,
		Locations: make([]domain.SavedLocation, 0, len(d.Locations)),
		Preferences: domain.NotificationPreferences{
			Categories: make([]domain.Category, 0, len(d.Preferences.Categories)),
			Email:      d.Preferences.Email,
			Push:       d.Preferences.Push,
		},
	}
	for _, l := range d.Locations {
		p.Locations = append(p.Locations, domain.SavedLocation(l))
	}
	for _, c := range d.Preferences.Categories {
		p.Preferences.Categories = append(p.Preferences.Categories, domain.Category(c))
	}
	return p
}

func categoryStrings(cs []domain.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}

func emptyProfile(uid string) domain.Profile {
	return domain.Profile{UID: uid, Locations: []domain.SavedLocation{}, Preferences: domain.DefaultPreferences()}
}

func (s *ProfileStore) Get(ctx context.Context, uid string) (domain.Profile, error) {
	var doc profileDocument
	err := s.col.FindOne(ctx, bson.M{"uid": uid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return emptyProfile(uid), nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("find profile %s: %w", uid, err)
	}
	return doc.toDomain(), nil
}

func (s *ProfileStore) PutLocation(ctx context.Context, uid string, loc domain.SavedLocation) (domain.Profile, error) {
	doc := locationDocument(loc)

	res, err := s.col.UpdateOne(ctx,
		bson.M{"uid": uid, "locations.label": loc.Label},
		bson.M{"$set": bson.M{"locations.$": doc}},
	)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("replace location %s/%s: %w", uid, loc.Label, err)
	}

	if res.MatchedCount == 0 {
		_, err = s.col.UpdateOne(ctx,
			bson.M{"uid": uid},
			bson.M{
				"$push":        bson.M{"locations": doc},
				"$setOnInsert": bson.M{"preferences": defaultPreferencesDocument()},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return domain.Profile{}, fmt.Errorf("add location %s/%s: %w", uid, loc.Label, err)
		}
	}
	return s.Get(ctx, uid)
}

func (s *ProfileStore) RemoveLocation(ctx context.Context, uid, label string) (domain.Profile, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"uid": uid, "locations.label": label},
		bson.M{"$pull": bson.M{"locations": bson.M{"label": label}}},
	)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("remove location %s/%s: %w", uid, label, err)
	}
	if res.MatchedCount == 0 {
		return domain.Profile{}, fmt.Errorf("location %q: %w", label, domain.ErrNotFound)
	}
	return s.Get(ctx, uid)
}

func (s *ProfileStore) UpdatePreferences(ctx context.Context, uid string, update domain.PreferencesUpdate) (domain.Profile, error) {
	set, setOnInsert := preferencesUpdate(update)
	if len(set) == 0 {
		return s.Get(ctx, uid)
	}

	_, err := s.col.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("update preferences %s: %w", uid, err)
	}
	return s.Get(ctx, uid)
}

func (s *ProfileStore) SubscribersForCity(ctx context.Context, city string) ([]domain.Profile, error) {
	cur, err := s.col.Find(ctx, bson.M{"locations.city": city})
	if err != nil {
		return nil, fmt.Errorf("find subscribers: %w", err)
	}
	defer cur.Close(ctx)

	var docs []profileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode subscribers: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		profiles = append(profiles, d.toDomain())
	}
	return profiles, nil
}

func defaultPreferencesDocument() preferencesDocument {
	p := domain.DefaultPreferences()
	return preferencesDocument{Categories: categoryStrings(p.Categories), Email: p.Email, Push: p.Push}
}

// preferencesUpdate builds the $set for the fields present in update and a
// $setOnInsert carrying defaults for the rest, so an upserted profile is
// complete. The two never share a path.
func preferencesUpdate(update domain.PreferencesUpdate) (set, setOnInsert bson.M) {
	defaults := defaultPreferencesDocument()
	set = bson.M{}
	setOnInsert = bson.M{"locations": bson.A{}}

	if update.Categories != nil {
		set["preferences.categories"] = categoryStrings(*update.Categories)
	} else {
		setOnInsert["preferences.categories"] = defaults.Categories
	}
	if update.Email != nil {
		set["preferences.email"] = *update.Email
	} else {
		setOnInsert["preferences.email"] = defaults.Email
	}
	if update.Push != nil {
		set["preferences.push"] = *update.Push
	} else {
		setOnInsert["preferences.push"] = defaults.Push
	}
	return set, setOnInsert
}
