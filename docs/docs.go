// Package docs Crime Report Platform API.
//
// Documentation of the Crime Report Platform API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/auth/login auth login
// Exchanges an email and password for a bearer token.
// responses:
//   200: loginResponse
//   400: messageResponse

// A signed token valid for one hour.
// swagger:response loginResponse
type loginResponseWrapper struct {
	// in:body
	Body models.LoginResponse
}

// swagger:route GET /api/auth/profile auth profile
// Returns the caller's account without the password.
// security:
//   bearer:
// responses:
//   200: userResponse
//   401: errorResponse
//   403: errorResponse
//   404: errorResponse

// A single account.
// swagger:response userResponse
type userResponseWrapper struct {
	// in:body
	Body models.User
}

// swagger:route POST /api/reports reports createReport
// Files a new report. A bearer token is optional and links the report to the caller.
// responses:
//   201: referenceResponse
//   400: validationResponse
//   413: errorResponse

// The reference number used to track the case.
// swagger:response referenceResponse
type referenceResponseWrapper struct {
	// in:body
	Body models.ReferenceResponse
}

// swagger:route GET /api/reports/{referenceNumber} reports reportByReference
// Gets a case by its reference number. The reporter is hidden for anonymous reports.
// responses:
//   200: reportResponse
//   404: errorResponse

// A single report.
// swagger:response reportResponse
type reportResponseWrapper struct {
	// in:body
	Body models.Report
}

// swagger:route GET /api/reports reports reports
// Lists every report, newest first. Officers and admins only.
// security:
//   bearer:
// responses:
//   200: reportsResponse
//   400: errorResponse

// A page of reports.
// swagger:response reportsResponse
type reportsResponseWrapper struct {
	// in:body
	Body []models.Report
}

// swagger:route POST /api/reports/{referenceNumber}/messages reports addMessage
// Appends a message to a case.
// responses:
//   201: messageAddedResponse
//   400: validationResponse
//   404: errorResponse

// The stored message.
// swagger:response messageAddedResponse
type messageAddedResponseWrapper struct {
	// in:body
	Body models.Message
}

// swagger:route GET /api/testimonials testimonials approvedTestimonials
// Lists the newest approved testimonials.
// responses:
//   200: testimonialsResponse

// A list of testimonials.
// swagger:response testimonialsResponse
type testimonialsResponseWrapper struct {
	// in:body
	Body []models.Testimonial
}

// swagger:route GET /api/admin/metrics admin metrics
// Shows per-route request counts and latencies.
// security:
//   bearer:
// responses:
//   200: metricsResponse
//   403: errorResponse

// Request metrics since start-up.
// swagger:response metricsResponse
type metricsResponseWrapper struct {
	// in:body
	Body api.MetricsSummary
}

// swagger:response messageResponse
type messageResponseWrapper struct {
	// in:body
	Body models.MessageResponse
}

// swagger:response validationResponse
type validationResponseWrapper struct {
	// in:body
	Body models.ValidationErrorResponse
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorResponse
}
