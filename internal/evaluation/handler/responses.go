package handler

import "screener/internal/evaluation"

// SubmitResponse is the JSON body returned by POST /api/submit.
type SubmitResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	TrustScore int    `json:"trust_score"`
}

func toSubmitResponse(name string, result evaluation.Result) *SubmitResponse {
	return &SubmitResponse{
		Name:       name,
		Status:     string(result.Status),
		Reason:     string(result.Reason),
		TrustScore: result.TrustScore,
	}
}

// RejectionResponse is the 400 body for an attachment with a disallowed
// extension. The submission was never evaluated, so it carries no name.
type RejectionResponse struct {
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	TrustScore int    `json:"trust_score"`
}

func toRejectionResponse(result evaluation.Result) *RejectionResponse {
	return &RejectionResponse{
		Status:     string(result.Status),
		Reason:     string(result.Reason),
		TrustScore: result.TrustScore,
	}
}

func toResultPage(name string, result evaluation.Result) resultPage {
	return resultPage{
		Title:      "Submission result",
		Name:       name,
		Status:     string(result.Status),
		Reason:     string(result.Reason),
		TrustScore: result.TrustScore,
	}
}
