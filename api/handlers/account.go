package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/models"
)

const invalidCredentials = "Invalid email or password"

// Account handles registration, login and the caller's own profile
type Account struct {
	DB   databases.UserDatabase
	Auth *api.Authenticator
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// RegisterHandler creates a citizen account
func (a Account) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validationErrors(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("Error registering user", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now()
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	_, err = a.DB.InsertOne(ctx, models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, databases.ErrDuplicate) {
		config.ErrorStatus("Email is already registered", http.StatusConflict, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error registering user", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("user registered", "email", req.Email)
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// LoginHandler exchanges email and password for a bearer token
func (a Account) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := a.DB.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(req.Email))})
	if errors.Is(err, databases.ErrNotFound) {
		writeMessage(w, http.StatusBadRequest, invalidCredentials)
		return
	}
	if err != nil {
		config.ErrorStatus("Server error", http.StatusInternalServerError, w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		writeMessage(w, http.StatusBadRequest, invalidCredentials)
		return
	}

	token, err := a.Auth.IssueToken(*user)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, UserID: user.ID.Hex(), Role: user.Role})
}

// ProfileHandler returns the caller's account
func (a Account) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, _, ok := callerID(r)
	if !ok {
		config.ErrorStatus(api.MessageInvalidToken, http.StatusForbidden, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := a.DB.FindOne(ctx, bson.M{"_id": id})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("User not found", http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error fetching profile", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler changes the caller's username, email or phone.
// Fields left empty keep their current value.
func (a Account) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, _, ok := callerID(r)
	if !ok {
		config.ErrorStatus(api.MessageInvalidToken, http.StatusForbidden, w, nil)
		return
	}

	var req profileRequest
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
	if v := strings.TrimSpace(req.Phone); v != "" {
		set["phone"] = v
	}

	a.updateUser(w, r, id, set, "Error updating profile")
}

// LogoutHandler revokes the presented token
func (a Account) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := api.ClaimsFromContext(r.Context())
	if !ok {
		config.ErrorStatus(api.MessageInvalidToken, http.StatusForbidden, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := a.Auth.Revoke(ctx, r, claims); err != nil {
		config.ErrorStatus("failed to revoke token", http.StatusInternalServerError, w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (a Account) updateUser(w http.ResponseWriter, r *http.Request, id interface{}, set bson.M, failure string) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := a.DB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	switch {
	case errors.Is(err, databases.ErrNotFound):
		config.ErrorStatus("User not found", http.StatusNotFound, w, nil)
	case errors.Is(err, databases.ErrDuplicate):
		config.ErrorStatus("Email is already registered", http.StatusConflict, w, nil)
	case err != nil:
		config.ErrorStatus(failure, http.StatusInternalServerError, w, err)
	default:
		writeJSON(w, http.StatusOK, user)
	}
}
