package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultAuthor is used when a testimonial is submitted without a name
const DefaultAuthor = "Anonymous"

// Testimonial holds the structure for the testimonials collection in mongo
type Testimonial struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Text      string             `json:"text" bson:"text"`
	Rating    int                `json:"rating" bson:"rating"`
	Author    string             `json:"author" bson:"author"`
	Approved  bool               `json:"approved" bson:"approved"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
