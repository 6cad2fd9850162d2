package request

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPendingReview = "pending_review"
	StatusPendingInfo   = "pending_info"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

const DisplayIDPrefix = "REQ"

const (
	ChangeAdd    = "add"
	ChangeEdit   = "edit"
	ChangeRemove = "remove"
)

type ProductLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// ProductChange is one immutable entry of the product-line journal. Every
// add/edit/remove on a request's lines appends exactly one entry carrying the
// screener's reason.
type ProductChange struct {
	Type      string       `json:"type"`
	LineIndex int          `json:"line_index"`
	From      *ProductLine `json:"from,omitempty"`
	To        *ProductLine `json:"to,omitempty"`
	Reason    string       `json:"reason"`
	ChangedBy string       `json:"changed_by"`
	ChangedAt time.Time    `json:"changed_at"`
}

type Request struct {
	ID        uuid.UUID
	DisplayID string

	CompanyID    string
	CompanyName  string
	CompanyVIP   bool
	ContactName  string
	ContactEmail string
	BriefText    string

	Lines          []ProductLine
	ProductChanges []ProductChange

	Status        string
	ClaimedBy     *string
	ClaimedAt     *time.Time
	DuplicateHash string

	InfoRequestMessage  *string
	InfoRequestedBy     *string
	InfoRequestedAt     *time.Time
	InfoResponseMessage *string
	InfoRespondedAt     *time.Time

	ReviewedBy      *string
	ReviewedAt      *time.Time
	ReviewNotes     *string
	RejectionReason *string

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending reports whether the request still awaits a review decision.
func (r *Request) IsPending() bool {
	return r.Status == StatusPendingReview || r.Status == StatusPendingInfo
}

// IsReviewed reports whether a decision was recorded. A reviewed request is
// immutable except for the info-request/response fields.
func (r *Request) IsReviewed() bool {
	return r.ReviewedBy != nil
}

func (r *Request) IsDeleted() bool {
	return r.DeletedAt != nil
}

// ClaimedByOther reports whether another screener holds the claim.
func (r *Request) ClaimedByOther(actor string) bool {
	return r.ClaimedBy != nil && *r.ClaimedBy != actor
}

// ClaimedByActor reports whether actor currently holds the claim.
func (r *Request) ClaimedByActor(actor string) bool {
	return r.ClaimedBy != nil && *r.ClaimedBy == actor
}

// ComputeDuplicateHash derives the resubmission-suppression key: same company
// plus the same product set (or, without products, the same brief text)
// within the same UTC calendar day hash identically.
func ComputeDuplicateHash(companyID string, lines []ProductLine, briefText string, day time.Time) string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Strings(ids)

	subject := strings.Join(ids, ",")
	if subject == "" {
		subject = strings.ToLower(strings.TrimSpace(briefText))
	}

	h := sha256.New()
	h.Write([]byte(companyID))
	h.Write([]byte{'|'})
	h.Write([]byte(subject))
	h.Write([]byte{'|'})
	h.Write([]byte(day.UTC().Format("2006-01-02")))
	return hex.EncodeToString(h.Sum(nil))
}
