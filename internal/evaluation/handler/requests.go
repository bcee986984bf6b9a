package handler

import (
	"mime/multipart"

	"screener/internal/evaluation"
)

// SubmitRequest is the JSON body accepted by POST /api/submit. Form posts
// carry the same field names.
type SubmitRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	SubmissionType string `json:"submission_type"`
	Description    string `json:"description"`
}

// upload is the optional file part of a form post.
type upload struct {
	file   multipart.File
	header *multipart.FileHeader
}

func (r SubmitRequest) toSubmission() evaluation.Submission {
	return evaluation.Submission{
		Name:           r.Name,
		Email:          r.Email,
		SubmissionType: r.SubmissionType,
		Description:    r.Description,
	}
}
