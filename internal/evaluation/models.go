package evaluation

import (
	"strings"
	"time"

	"screener/pkg/fingerprint"
)

// Status is the disposition of a submission.
type Status string

const (
	StatusAccepted Status = "Accepted"
	StatusFlagged  Status = "Flagged"
	StatusRejected Status = "Rejected"
)

// Reason is the human-readable explanation attached to every disposition.
type Reason string

const (
	ReasonMissingFields    Reason = "All fields are required"
	ReasonInvalidEmail     Reason = "Invalid email format"
	ReasonShortDescription Reason = "Description too short"
	ReasonDuplicate        Reason = "Duplicate submission detected"
	ReasonVerified         Reason = "Submission verified successfully"
	ReasonManualReview     Reason = "Submission needs manual review"
	ReasonLowTrust         Reason = "Low trust score"
	ReasonInvalidFileType  Reason = "Invalid file type"
)

// Fixed scores reported by terminal gates. They sit outside the additive
// point table on purpose: a gate rejection never went through scoring.
const (
	ScoreMissingFields    = 20
	ScoreInvalidEmail     = 25
	ScoreShortDescription = 30
	ScoreDuplicate        = 10
	ScoreInvalidFileType  = 0
)

// Result is the outcome of one evaluation. It is a value type and is never
// mutated after the pipeline returns it.
type Result struct {
	Status     Status
	Reason     Reason
	TrustScore int
}

func rejected(reason Reason, score int) *Result {
	return &Result{Status: StatusRejected, Reason: reason, TrustScore: score}
}

// DuplicateResult is the disposition for a resubmitted fingerprint.
func DuplicateResult() Result {
	return *rejected(ReasonDuplicate, ScoreDuplicate)
}

// InvalidFileTypeResult is the disposition the boundary returns for an
// attachment whose extension is not allowed. The pipeline never sees it.
func InvalidFileTypeResult() Result {
	return *rejected(ReasonInvalidFileType, ScoreInvalidFileType)
}

// Attachment is an uploaded document. Content must yield a fresh stream on
// every Open call.
type Attachment struct {
	FileName string
	Content  fingerprint.Opener
}

// Submission is the per-request input to the pipeline.
type Submission struct {
	Name           string
	Email          string
	SubmissionType string
	Description    string
	Attachment     *Attachment
}

// FileName returns the attachment name or "" when nothing was attached.
func (s Submission) FileName() string {
	if s.Attachment == nil {
		return ""
	}
	return s.Attachment.FileName
}

// Stage identifies the gate that produced a result.
type Stage string

const (
	StageRequiredFields Stage = "required_fields"
	StageEmail          Stage = "email"
	StageDescription    Stage = "description_length"
	StageFingerprint    Stage = "fingerprint"
	StageDuplicate      Stage = "duplicate"
	StageScore          Stage = "trust_score"
)

// Evaluation is what the pipeline returns: the disposition plus the
// fingerprints it computed. Fingerprints are zero when a structural gate
// rejected the submission before hashing.
type Evaluation struct {
	Result       Result
	Fingerprints fingerprint.Pair
	Stage        Stage
}

// RecordID is the store-assigned identifier of a persisted submission.
type RecordID int64

// Record is the persisted, immutable form of an evaluated submission.
type Record struct {
	ID             RecordID
	Name           string
	Email          string
	SubmissionType string
	Description    string
	FileName       string
	Fingerprints   fingerprint.Pair
	Result         Result
	CreatedAt      time.Time

	// ClaimsFingerprints marks records that passed the duplicate gate. Stores
	// hold such fingerprints under a unique constraint so two concurrent
	// submissions of the same content cannot both pass.
	ClaimsFingerprints bool
}

// AllowedExtensions lists the attachment types accepted at the boundary.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"txt":  {},
}

// AllowedFile reports whether filename carries an allowed extension. The
// extension is the text after the last dot, compared case-insensitively.
func AllowedFile(filename string) bool {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return false
	}
	_, ok := AllowedExtensions[strings.ToLower(filename[dot+1:])]
	return ok
}
