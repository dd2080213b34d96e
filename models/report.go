package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus is the triage state of a crime report
type ReportStatus string

// Report statuses, in the order a case normally moves through them
const (
	StatusUnderReview   ReportStatus = "Under Review"
	StatusInProgress    ReportStatus = "In Progress"
	StatusInvestigation ReportStatus = "Investigation"
	StatusClosed        ReportStatus = "Closed"
)

// ReportStatuses lists every valid status
var ReportStatuses = []ReportStatus{StatusUnderReview, StatusInProgress, StatusInvestigation, StatusClosed}

// Valid reports whether s is one of the known statuses
func (s ReportStatus) Valid() bool {
	for _, v := range ReportStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Message senders
const (
	SenderUser    = "user"
	SenderOfficer = "officer"
	SenderAdmin   = "admin"
)

// Attachment is the metadata of a file uploaded with a report
type Attachment struct {
	Path         string `json:"path" bson:"path"`
	OriginalName string `json:"originalName" bson:"originalName"`
	ContentType  string `json:"contentType,omitempty" bson:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty" bson:"size,omitempty"`
}

// Message is one entry of the conversation attached to a report
type Message struct {
	Text      string    `json:"text" bson:"text"`
	Sender    string    `json:"sender" bson:"sender"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Report holds the structure for the reports collection in mongo
type Report struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	CrimeType       string              `json:"crimeType" bson:"crimeType"`
	Location        string              `json:"location" bson:"location"`
	Description     string              `json:"description" bson:"description"`
	IsAnonymous     bool                `json:"isAnonymous" bson:"isAnonymous"`
	Files           []Attachment        `json:"files" bson:"files"`
	UserID          *primitive.ObjectID `json:"userId" bson:"userId"`
	Messages        []Message           `json:"messages" bson:"messages"`
	Status          ReportStatus        `json:"status" bson:"status"`
	IncidentDate    time.Time           `json:"incidentDate" bson:"incidentDate"`
	ReferenceNumber string              `json:"referenceNumber" bson:"referenceNumber"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// OwnedBy reports whether the report was filed by the given user
func (r Report) OwnedBy(userID primitive.ObjectID) bool {
	return r.UserID != nil && *r.UserID == userID
}

// Public returns the report as it may be shown to anyone holding its reference number
func (r Report) Public() Report {
	if r.IsAnonymous {
		r.UserID = nil
	}
	if r.Files == nil {
		r.Files = []Attachment{}
	}
	if r.Messages == nil {
		r.Messages = []Message{}
	}
	return r
}

const (
	referencePrefix   = "REF-"
	referenceLength   = 9
	referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewReferenceNumber returns a random case reference of the form REF-XXXXXXXXX
func NewReferenceNumber() (string, error) {
	b := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referenceAlphabet[n.Int64()]
	}
	return referencePrefix + string(b), nil
}
