package databases

// go generate: mockery --name TestimonialDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moyijulius/crime-report-platform/models"
)

const testimonialName = "testimonials"

// TestimonialDatabase contains the methods to use with the testimonial database
type TestimonialDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Testimonial, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Testimonial, error)
	InsertOne(ctx context.Context, testimonial models.Testimonial) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Testimonial, error)
	DeleteOne(ctx context.Context, filter interface{}) error
}

type testimonialDatabase struct {
	db DatabaseHelper
}

// NewTestimonialDatabase initializes a new instance of testimonial database with the provided db connection
func NewTestimonialDatabase(db DatabaseHelper) TestimonialDatabase {
	return &testimonialDatabase{
		db: db,
	}
}

func (t *testimonialDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Testimonial, error) {
	testimonial := &models.Testimonial{}
	err := t.db.Collection(testimonialName).FindOne(ctx, filter).Decode(&testimonial)
	if err != nil {
		return nil, err
	}
	return testimonial, nil
}

func (t *testimonialDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Testimonial, error) {
	var testimonials []models.Testimonial
	cursor, err := t.db.Collection(testimonialName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	if err = cursor.Decode(&testimonials); err != nil {
		return nil, err
	}
	return testimonials, nil
}

func (t *testimonialDatabase) InsertOne(ctx context.Context, testimonial models.Testimonial) error {
	_, err := t.db.Collection(testimonialName).InsertOne(ctx, testimonial)
	return err
}

func (t *testimonialDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Testimonial, error) {
	testimonial := &models.Testimonial{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := t.db.Collection(testimonialName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&testimonial)
	if err != nil {
		return nil, err
	}
	return testimonial, nil
}

func (t *testimonialDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	n, err := t.db.Collection(testimonialName).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
