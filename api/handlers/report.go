package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/attachments"
	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/mailer"
	"github.com/moyijulius/crime-report-platform/models"
	"github.com/moyijulius/crime-report-platform/queue"
)

const (
	referenceAttempts  = 5
	multipartMemory    = 8 << 20
	multipartOverhead  = 1 << 20
	sideEffectTimeout  = 15 * time.Second
	msgCaseNotFound    = "Case not found"
	msgReportNotFound  = "Report not found"
	msgInvalidReportID = "Invalid report id"
)

// Report handles report-related requests
type Report struct {
	RDB            databases.ReportDatabase
	UDB            databases.UserDatabase
	Store          attachments.Store
	Events         queue.Publisher
	Mailer         mailer.Mailer
	Hub            *CaseHub
	MaxUploadBytes int64
	MaxFiles       int
}

type reportRequest struct {
	CrimeType    string `json:"crimeType" validate:"required"`
	Location     string `json:"location" validate:"required"`
	Description  string `json:"description" validate:"required"`
	IsAnonymous  bool   `json:"isAnonymous"`
	IncidentDate string `json:"incidentDate"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,reportstatus"`
}

type messageRequest struct {
	Message string `json:"message" validate:"required"`
}

// CreateReportHandler files a new report. Authentication is optional: when a
// valid token is presented the report is linked to the caller.
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	var (
		req   reportRequest
		files []*multipart.FileHeader
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, re.MaxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				config.ErrorStatus("Upload too large", http.StatusRequestEntityTooLarge, w, nil)
				return
			}
			config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		req = reportRequest{
			CrimeType:    r.FormValue("crimeType"),
			Location:     r.FormValue("location"),
			Description:  r.FormValue("description"),
			IsAnonymous:  r.FormValue("isAnonymous") == "true",
			IncidentDate: r.FormValue("incidentDate"),
		}
		files = r.MultipartForm.File["files"]
	} else if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	req.CrimeType = strings.TrimSpace(req.CrimeType)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
	errs := validationErrors(req)
	incidentDate, err := parseIncidentDate(req.IncidentDate)
	if err != nil {
		errs = append(errs, models.ValidationError{Field: "incidentDate", Msg: "Incident date must be a valid date"})
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	if re.MaxFiles > 0 && len(files) > re.MaxFiles {
		config.ErrorStatus("Too many files, at most "+strconv.Itoa(re.MaxFiles)+" are allowed", http.StatusRequestEntityTooLarge, w, nil)
		return
	}
	var total int64
	for _, fh := range files {
		total += fh.Size
	}
	if total > re.MaxUploadBytes {
		config.ErrorStatus("Upload too large", http.StatusRequestEntityTooLarge, w, nil)
		return
	}

	saved, err := re.saveFiles(r.Context(), files)
	if err != nil {
		config.ErrorStatus("Error submitting report", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now()
	report := models.Report{
		ID:           primitive.NewObjectID(),
		CrimeType:    req.CrimeType,
		Location:     req.Location,
		Description:  req.Description,
		IsAnonymous:  req.IsAnonymous,
		Files:        saved,
		Messages:     []models.Message{},
		Status:       models.StatusUnderReview,
		IncidentDate: incidentDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if id, _, ok := callerID(r); ok {
		report.UserID = &id
	}

	if err := re.insertWithReference(r.Context(), &report); err != nil {
		re.removeFiles(saved)
		config.ErrorStatus("Error submitting report", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("report filed",
		"referenceNumber", report.ReferenceNumber,
		"anonymous", report.IsAnonymous,
		"files", len(saved),
		"store", re.Store.Name(),
	)
	re.publish(r.Context(), queue.ReportCreated, report, "")
	writeJSON(w, http.StatusCreated, models.ReferenceResponse{ReferenceNumber: report.ReferenceNumber})
}

// UserReportsHandler lists the caller's reports, newest first
func (re Report) UserReportsHandler(w http.ResponseWriter, r *http.Request) {
	id, _, ok := callerID(r)
	if !ok {
		config.ErrorStatus(api.MessageInvalidToken, http.StatusForbidden, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	reports, err := re.RDB.Find(ctx, bson.M{"userId": id}, databases.NewestFirst(0, 1))
	if err != nil {
		config.ErrorStatus("Error fetching reports", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicReports(reports))
}

// ReportsHandler lists every report for officers, newest first. It accepts
// optional status, limit and page query parameters.
func (re Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ReportStatus(status).Valid() {
			config.ErrorStatus("Invalid status", http.StatusBadRequest, w, nil)
			return
		}
		filter["status"] = status
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	reports, err := re.RDB.Find(ctx, filter, databases.NewestFirst(limit, page))
	if err != nil {
		config.ErrorStatus("Error fetching reports", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicReports(reports))
}

// ReportByReferenceHandler returns a case to anyone holding its reference number
func (re Report) ReportByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.RDB.FindOne(ctx, bson.M{"referenceNumber": referenceVar(r)})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(msgCaseNotFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error fetching case details", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Public())
}

// DeleteReportHandler removes a report and its attachments. Citizens may only
// delete their own reports; officers and admins may delete any.
func (re Report) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus(msgInvalidReportID, http.StatusBadRequest, w, err)
		return
	}
	uid, claims, _ := callerID(r)
	if claims == nil {
		config.ErrorStatus(api.MessageInvalidToken, http.StatusForbidden, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.RDB.FindOne(ctx, bson.M{"_id": reportID})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(msgReportNotFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error deleting report", http.StatusInternalServerError, w, err)
		return
	}
	if !claims.HasRole(models.RoleOfficer, models.RoleAdmin) && !report.OwnedBy(uid) {
		config.ErrorStatus("Not authorized to delete this report", http.StatusForbidden, w, nil)
		return
	}

	err = re.RDB.DeleteOne(ctx, bson.M{"_id": reportID})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(msgReportNotFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error deleting report", http.StatusInternalServerError, w, err)
		return
	}

	re.removeFiles(report.Files)
	re.publish(r.Context(), queue.ReportDeleted, *report, "")
	writeMessage(w, http.StatusOK, "Report deleted successfully")
}

// UpdateStatusHandler moves a report to a new status and notifies its owner
func (re Report) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus(msgInvalidReportID, http.StatusBadRequest, w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if errs := validationErrors(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.RDB.FindOneAndUpdate(ctx, bson.M{"_id": reportID}, bson.M{"$set": bson.M{
		"status":    models.ReportStatus(req.Status),
		"updatedAt": time.Now(),
	}})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(msgReportNotFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error updating report", http.StatusInternalServerError, w, err)
		return
	}

	re.publish(r.Context(), queue.ReportStatusChanged, *report, "")
	re.notifyOwner(r.Context(), *report)
	writeJSON(w, http.StatusOK, report.Public())
}

// AddMessageHandler appends a message to the case identified by reference
// number. The sender is derived from the caller's role.
func (re Report) AddMessageHandler(w http.ResponseWriter, r *http.Request) {
	re.appendMessage(w, r, bson.M{"referenceNumber": referenceVar(r)}, msgCaseNotFound)
}

// AddMessageByIDHandler appends a message to the report identified by id
func (re Report) AddMessageByIDHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := objectIDVar(r, "id")
	if err != nil {
		config.ErrorStatus(msgInvalidReportID, http.StatusBadRequest, w, err)
		return
	}
	re.appendMessage(w, r, bson.M{"_id": reportID}, msgReportNotFound)
}

// MessagesSocketHandler streams new messages of a case over a websocket
func (re Report) MessagesSocketHandler(w http.ResponseWriter, r *http.Request) {
	ref := referenceVar(r)
	ctx, cancel := api.WithQueryTimeout(r.Context())
	_, err := re.RDB.FindOne(ctx, bson.M{"referenceNumber": ref})
	cancel()
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(msgCaseNotFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error fetching case details", http.StatusInternalServerError, w, err)
		return
	}
	re.Hub.Serve(w, r, ref)
}

func (re Report) appendMessage(w http.ResponseWriter, r *http.Request, filter bson.M, notFound string) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if errs := validationErrors(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, models.ValidationErrorResponse{Errors: errs})
		return
	}

	msg := models.Message{
		Text:      req.Message,
		Sender:    senderFor(r),
		Timestamp: time.Now(),
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.RDB.FindOneAndUpdate(ctx, filter, bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": msg.Timestamp},
	})
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus(notFound, http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("Error adding message", http.StatusInternalServerError, w, err)
		return
	}

	if re.Hub != nil {
		re.Hub.Broadcast(report.ReferenceNumber, msg)
	}
	re.publish(r.Context(), queue.ReportMessageAdded, *report, msg.Sender)
	writeJSON(w, http.StatusCreated, msg)
}

// insertWithReference assigns a fresh reference number, retrying when one
// is already taken
func (re Report) insertWithReference(ctx context.Context, report *models.Report) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		report.ReferenceNumber, err = models.NewReferenceNumber()
		if err != nil {
			return err
		}
		qctx, cancel := api.WithQueryTimeout(ctx)
		err = re.RDB.InsertOne(qctx, *report)
		cancel()
		if !errors.Is(err, databases.ErrDuplicate) {
			return err
		}
		zap.S().Warnw("reference number collision, retrying", "referenceNumber", report.ReferenceNumber)
	}
	return err
}

func (re Report) saveFiles(ctx context.Context, files []*multipart.FileHeader) ([]models.Attachment, error) {
	saved := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			re.removeFiles(saved)
			return nil, err
		}
		att, err := re.Store.Save(ctx, attachments.File{
			Name:        attachments.SanitizeFilename(fh.Filename),
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
		_ = f.Close()
		if err != nil {
			re.removeFiles(saved)
			return nil, err
		}
		saved = append(saved, att)
	}
	return saved, nil
}

func (re Report) removeFiles(files []models.Attachment) {
	if len(files) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	for _, f := range files {
		if err := re.Store.Delete(ctx, f.Path); err != nil {
			zap.S().Warnw("failed to remove attachment", "path", f.Path, "error", err)
		}
	}
}

func (re Report) publish(ctx context.Context, eventType string, report models.Report, sender string) {
	if re.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	err := re.Events.Publish(ctx, queue.Event{
		Type:            eventType,
		ReportID:        report.ID.Hex(),
		ReferenceNumber: report.ReferenceNumber,
		Status:          string(report.Status),
		Sender:          sender,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		zap.S().Warnw("failed to publish report event", "type", eventType, "referenceNumber", report.ReferenceNumber, "error", err)
	}
}

// notifyOwner emails the reporter about a status change. Anonymous reports
// are never linked back to their author.
func (re Report) notifyOwner(ctx context.Context, report models.Report) {
	if re.Mailer == nil || re.UDB == nil || report.IsAnonymous || report.UserID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	owner, err := re.UDB.FindOne(ctx, bson.M{"_id": *report.UserID})
	if err != nil {
		zap.S().Warnw("failed to look up report owner", "referenceNumber", report.ReferenceNumber, "error", err)
		return
	}
	subject, body := mailer.StatusChanged(report)
	if err := re.Mailer.Send(ctx, mailer.Recipient{Name: owner.Username, Email: owner.Email}, subject, body); err != nil {
		zap.S().Warnw("failed to send status email", "referenceNumber", report.ReferenceNumber, "error", err)
	}
}

func senderFor(r *http.Request) string {
	claims, ok := api.ClaimsFromContext(r.Context())
	if !ok {
		return models.SenderUser
	}
	switch claims.Role {
	case models.RoleAdmin:
		return models.SenderAdmin
	case models.RoleOfficer:
		return models.SenderOfficer
	}
	return models.SenderUser
}

func referenceVar(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["referenceNumber"]))
}

func publicReports(reports []models.Report) []models.Report {
	out := make([]models.Report, 0, len(reports))
	for _, report := range reports {
		out = append(out, report.Public())
	}
	return out
}

// parseIncidentDate accepts RFC3339 timestamps or plain dates and defaults to now
func parseIncidentDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
