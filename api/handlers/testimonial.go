package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/models"
)

// publicTestimonialLimit is how many approved testimonials the landing page shows
const publicTestimonialLimit = 10

const msgTestimonialNotFound = "Testimonial not found"

// Testimonial handles the public testimonial endpoints
type Testimonial struct {
	DB databases.TestimonialDatabase
}

type testimonialRequest struct {
	Text   string `json:"text" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Author string `json:"author"`
}

// ApprovedTestimonialsHandler returns the newest approved testimonials
func (t Testimonial) ApprovedTestimonialsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	testimonials, err := t.DB.Find(ctx, bson.M{"approved": true}, databases.NewestFirst(publicTestimonialLimit, 1))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if testimonials == nil {
		testimonials = []models.Testimonial{}
	}
	writeJSON(w, http.StatusOK, testimonials)
}

// CreateTestimonialHandler stores a testimonial awaiting moderation
func (t Testimonial) CreateTestimonialHandler(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to decode request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if errs := validationErrors(req); errs != nil {
		writeMessage(w, http.StatusBadRequest, errs[0].Msg)
		return
	}

	testimonial := models.Testimonial{
		ID:        primitive.NewObjectID(),
		Text:      req.Text,
		Rating:    req.Rating,
		Author:    strings.TrimSpace(req.Author),
		Approved:  false,
		CreatedAt: time.Now(),
	}
	if testimonial.Author == "" {
		testimonial.Author = models.DefaultAuthor
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := t.DB.InsertOne(ctx, testimonial); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, testimonial)
}

// ApproveTestimonialHandler publishes a testimonial
func (t Testimonial) ApproveTestimonialHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid testimonial id")
		return
	}
	testimonial, err := t.setApproved(r, id, true)
	if errors.Is(err, databases.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgTestimonialNotFound)
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, testimonial)
}

func (t Testimonial) setApproved(r *http.Request, id primitive.ObjectID, approved bool) (*models.Testimonial, error) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	return t.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approved": approved}})
}

// testimonialNotFound writes the admin flavoured not found error
func testimonialNotFound(w http.ResponseWriter) {
	config.ErrorStatus(msgTestimonialNotFound, http.StatusNotFound, w, nil)
}
