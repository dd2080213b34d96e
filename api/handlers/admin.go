package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/models"
)

// Admin handles the moderation endpoints under /api/admin. Report moderation
// is served by the Report handlers.
type Admin struct {
	UDB     databases.UserDatabase
	TDB     databases.TestimonialDatabase
	Metrics *api.MetricsCollector
}

type testimonialUpdateRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type userUpdateRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role" validate:"omitempty,role"`
}

// TestimonialsHandler lists every testimonial, approved or not
func (ad Admin) TestimonialsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	testimonials, err := ad.TDB.Find(ctx, bson.M{}, databases.NewestFirst(0, 1))
	if err != nil {
		config.ErrorStatus("Server error fetching testimonials", http.StatusInternalServerError, w, err)
		return
	}
	if testimonials == nil {
		testimonials = []models.Testimonial{}
	}
	writeJSON(w, http.StatusOK, testimonials)
}

// UpdateTestimonialHandler approves or rejects a testimonial
func (ad Admin) UpdateTestimonialHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus("Invalid testimonial id", http.StatusBadRequest, w, err)
		return
	}
	var req testimonialUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if errs := validationErrors(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	testimonial, err := Testimonial{DB: ad.TDB}.setApproved(r, id, *req.Approved)
	if errors.Is(err, databases.ErrNotFound) {
		testimonialNotFound(w)
		return
	}
	if err != nil {
		config.ErrorStatus("Error updating testimonial", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, testimonial)
}

// DeleteTestimonialHandler removes a testimonial
func (ad Admin) DeleteTestimonialHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus("Invalid testimonial id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	err = ad.TDB.DeleteOne(ctx, bson.M{"_id": id})
	if errors.Is(err, databases.ErrNotFound) {
		testimonialNotFound(w)
		return
	}
	if err != nil {
		config.ErrorStatus("Error deleting testimonial", http.StatusInternalServerError, w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Testimonial deleted successfully")
}

// UsersHandler lists every account
func (ad Admin) UsersHandler(w http.ResponseWriter, r *http.Request) {
	ad.listUsers(w, r, bson.M{})
}

// UsersByRoleHandler lists the accounts holding a role
func (ad Admin) UsersByRoleHandler(w http.ResponseWriter, r *http.Request) {
	role := models.Role(mux.Vars(r)["role"])
	if !role.Valid() {
		config.ErrorStatus("Invalid role", http.StatusBadRequest, w, nil)
		return
	}
	ad.listUsers(w, r, bson.M{"role": role})
}

// UpdateUserHandler changes any account field except the password
func (ad Admin) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus("Invalid user id", http.StatusBadRequest, w, err)
		return
	}
	var req userUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validationErrors(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if v := strings.TrimSpace(req.Username); v != "" {
		set["username"] = v
	}
	if req.Email != "" {
		set["email"] = req.Email
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Role != "" {
		set["role"] = models.Role(req.Role)
	}

	Account{DB: ad.UDB}.updateUser(w, r, id, set, "Error updating user")
}

// DeleteUserHandler removes an account
func (ad Admin) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus("Invalid user id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	err = ad.UDB.DeleteOne(ctx, bson.M{"_id": id})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("User not found", http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error deleting user", http.StatusInternalServerError, w, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

// MetricsHandler reports per-route request counts and latencies
func (ad Admin) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ad.Metrics.Summary())
}

func (ad Admin) listUsers(w http.ResponseWriter, r *http.Request, filter bson.M) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	users, err := ad.UDB.Find(ctx, filter, databases.NewestFirst(0, 1))
	if err != nil {
		config.ErrorStatus("Server error fetching users", http.StatusInternalServerError, w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
