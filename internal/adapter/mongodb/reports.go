package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// ReportStore implements domain.ReportStore.
type ReportStore struct {
	col *mongo.Collection
}

type reportDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Category    string             `bson:"category"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Locality    string             `bson:"locality"`
	City        string             `bson:"city"`
	State       string             `bson:"state"`
	PinCode     string             `bson:"pinCode,omitempty"`
	PhotoURL    string             `bson:"photoUrl,omitempty"`
	UID         string             `bson:"uid,omitempty"`
	Email       string             `bson:"email"`
	Source      string             `bson:"source"`
	Lat         *float64           `bson:"lat"`
	Lng         *float64           `bson:"lng"`
	Timestamp   string             `bson:"timestamp"`
}

func toReportDocument(r domain.Report) reportDocument {
	return reportDocument{
		Category:    string(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Locality:    r.Locality,
		City:        r.City,
		State:       r.State,
		PinCode:     r.PinCode,
		PhotoURL:    r.PhotoURL,
		UID:         r.UID,
		Email:       r.Email,
		Source:      string(r.Source),
		Lat:         r.Lat,
		Lng:         r.Lng,
		Timestamp:   r.Timestamp,
	}
}

func (d reportDocument) toDomain() domain.Report {
	return domain.Report{
		ID:          d.ID.Hex(),
		Category:    domain.Category(d.Category),
		Title:       d.Title,
		Description: d.Description,
		Locality:    d.Locality,
		City:        d.City,
		State:       d.State,
		PinCode:     d.PinCode,
		PhotoURL:    d.PhotoURL,
		UID:         d.UID,
		Email:       d.Email,
		Source:      domain.Source(d.Source),
		Lat:         d.Lat,
		Lng:         d.Lng,
		Timestamp:   d.Timestamp,
	}
}

// Create inserts a report and returns the generated ObjectID as hex.
func (s *ReportStore) Create(ctx context.Context, r domain.Report) (string, error) {
	res, err := s.col.InsertOne(ctx, toReportDocument(r))
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert report: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// List returns every report, or those whose city equals filter.City exactly.
func (s *ReportStore) List(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	cur, err := s.col.Find(ctx, reportQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cur.Close(ctx)

	var docs []reportDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}

	reports := make([]domain.Report, 0, len(docs))
	for _, d := range docs {
		reports = append(reports, d.toDomain())
	}
	return reports, nil
}

func reportQuery(filter domain.ReportFilter) bson.M {
	q := bson.M{}
	if filter.City != "" {
		q["city"] = filter.City
	}
	return q
}
