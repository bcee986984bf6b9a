package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"screener/internal/evaluation"
	"screener/internal/evaluation/handler/mocks"
	"screener/internal/filestore"
	"screener/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

type SubmitHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	files   *filestore.Store
	router  chi.Router
}

func TestSubmitHandlerSuite(t *testing.T) {
	suite.Run(t, new(SubmitHandlerSuite))
}

func (s *SubmitHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)

	files, err := filestore.New(s.T().TempDir())
	s.Require().NoError(err)
	s.files = files

	s.router = s.newRouter(s.files)
}

func (s *SubmitHandlerSuite) newRouter(files FileStore, opts ...Option) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, files, logger, opts...)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

var aliceFields = []testutil.MultipartField{
	{Name: "name", Value: "Alice"},
	{Name: "email", Value: "alice@example.com"},
	{Name: "submission_type", Value: "report"},
	{Name: "description", Value: "A detailed account of the quarterly figures."},
}

func flagged() *evaluation.Outcome {
	return &evaluation.Outcome{
		Result: evaluation.Result{
			Status:     evaluation.StatusFlagged,
			Reason:     evaluation.ReasonManualReview,
			TrustScore: 65,
		},
		Stage:     evaluation.StageScore,
		RecordID:  1,
		Persisted: true,
	}
}

func lowTrust() *evaluation.Outcome {
	return &evaluation.Outcome{
		Result: evaluation.Result{
			Status:     evaluation.StatusRejected,
			Reason:     evaluation.ReasonLowTrust,
			TrustScore: 45,
		},
		Stage: evaluation.StageScore,
	}
}

// =============================================================================
// Form page
// =============================================================================

func (s *SubmitHandlerSuite) TestFormPage() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/"))

	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	s.Contains(body, `action="/submit"`)
	s.Contains(body, `name="submission_type"`)
	s.Contains(body, `name="file"`)
}

// =============================================================================
// JSON API
// =============================================================================

func (s *SubmitHandlerSuite) TestAPI_MultipartWithoutFile() {
	s.service.EXPECT().Submit(gomock.Any(), evaluation.Submission{
		Name:           "Alice",
		Email:          "alice@example.com",
		SubmissionType: "report",
		Description:    "A detailed account of the quarterly figures.",
	}).Return(lowTrust(), nil)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
	s.Equal(SubmitResponse{Name: "Alice", Status: "Rejected", Reason: "Low trust score", TrustScore: 45}, *resp)
}

func (s *SubmitHandlerSuite) TestAPI_JSONBody() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub evaluation.Submission) (*evaluation.Outcome, error) {
			s.Equal("Bob", sub.Name)
			s.Equal("bob@example.org", sub.Email)
			s.Nil(sub.Attachment)
			return lowTrust(), nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/submit", SubmitRequest{
		Name:           "Bob",
		Email:          "bob@example.org",
		SubmissionType: "feedback",
		Description:    "Feedback on the service.",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "trust_score", float64(45))
}

func (s *SubmitHandlerSuite) TestAPI_AttachmentIsStoredAndPassedOn() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub evaluation.Submission) (*evaluation.Outcome, error) {
			s.Require().NotNil(sub.Attachment)
			s.Equal("figures.pdf", sub.Attachment.FileName)

			rc, err := sub.Attachment.Content.Open()
			s.Require().NoError(err)
			defer rc.Close()
			content, err := io.ReadAll(rc)
			s.Require().NoError(err)
			s.Equal("%PDF-1.7 figures", string(content))
			return flagged(), nil
		})

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "figures.pdf",
		Content:  []byte("%PDF-1.7 figures"),
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
	s.Equal("Flagged", resp.Status)
	s.Equal(65, resp.TrustScore)
}

func (s *SubmitHandlerSuite) TestAPI_InvalidFileType() {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "payload.exe",
		Content:  []byte("MZ"),
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	s.JSONEq(`{"status":"Rejected","reason":"Invalid file type","trust_score":0}`, rr.Body.String())
}

func (s *SubmitHandlerSuite) TestAPI_EmptyNameStillReportsNameKey() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&evaluation.Outcome{Result: evaluation.Result{
			Status:     evaluation.StatusRejected,
			Reason:     evaluation.ReasonMissingFields,
			TrustScore: 20,
		}}, nil)

	fields := []testutil.MultipartField{
		{Name: "email", Value: "alice@example.com"},
		{Name: "submission_type", Value: "report"},
		{Name: "description", Value: "No name given."},
	}
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", fields, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"name":"","status":"Rejected","reason":"All fields are required","trust_score":20}`, rr.Body.String())
	testutil.AssertJSONHasKey(s.T(), rr, "name")
}

func (s *SubmitHandlerSuite) TestAPI_MissingFieldsReachTheService() {
	s.service.EXPECT().Submit(gomock.Any(), evaluation.Submission{Email: "alice@example.com"}).
		Return(&evaluation.Outcome{Result: evaluation.Result{
			Status:     evaluation.StatusRejected,
			Reason:     evaluation.ReasonMissingFields,
			TrustScore: 20,
		}}, nil)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit",
		[]testutil.MultipartField{{Name: "email", Value: "alice@example.com"}}, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "reason", "All fields are required")
}

func (s *SubmitHandlerSuite) TestAPI_EmptyFilePartIsNoAttachment() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub evaluation.Submission) (*evaluation.Outcome, error) {
			s.Nil(sub.Attachment)
			return lowTrust(), nil
		})

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *SubmitHandlerSuite) TestAPI_OversizedBody() {
	router := s.newRouter(s.files, WithMaxUploadBytes(1024))
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "big.txt",
		Content:  bytes.Repeat([]byte("a"), 4096),
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusRequestEntityTooLarge, "payload_too_large")
}

func (s *SubmitHandlerSuite) TestAPI_ServiceFailureIsInternalError() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, errors.New("record store unreachable"))

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	s.NotContains(rr.Body.String(), "unreachable")
	errResp := testutil.UnmarshalErrorResponse(s.T(), rr)
	s.Equal("internal_error", errResp["error"])
}

func (s *SubmitHandlerSuite) TestAPI_ServiceFailureDiscardsStoredAttachment() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, errors.New("record store unreachable"))

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "figures.txt",
		Content:  []byte("figures"),
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	entries, err := os.ReadDir(s.files.Dir())
	s.Require().NoError(err)
	s.Empty(entries, "an upload without a record must not stay on disk")
}

func (s *SubmitHandlerSuite) TestAPI_FileStoreFailureIsInternalError() {
	files := mocks.NewMockFileStore(gomock.NewController(s.T()))
	files.EXPECT().Save(gomock.Any(), "figures.txt").Return(nil, errors.New("disk full"))
	router := s.newRouter(files)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "figures.txt",
		Content:  []byte("figures"),
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}

func (s *SubmitHandlerSuite) TestAPI_MalformedJSON() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/submit", `{"name":`)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

// =============================================================================
// HTML result page
// =============================================================================

func (s *SubmitHandlerSuite) TestPage_RendersResult() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(lowTrust(), nil)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/submit", aliceFields, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	body := rr.Body.String()
	s.Contains(body, "Alice")
	s.Contains(body, "Rejected")
	s.Contains(body, "Low trust score")
	s.Contains(body, "45")
}

func (s *SubmitHandlerSuite) TestPage_EscapesName() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(lowTrust(), nil)

	fields := append([]testutil.MultipartField{}, aliceFields...)
	fields[0].Value = "<script>alert(1)</script>"
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/submit", fields, nil)
	rr := testutil.DoRequest(s.router, req)

	s.NotContains(rr.Body.String(), "<script>alert(1)</script>")
	s.Contains(rr.Body.String(), "&lt;script&gt;")
}

func (s *SubmitHandlerSuite) TestPage_InvalidFileType() {
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/submit", aliceFields, &testutil.MultipartFile{
		Field:    "file",
		FileName: "notes.md",
		Content:  []byte("# notes"),
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "Invalid file type")
	s.Contains(rr.Body.String(), "Alice")
}

func (s *SubmitHandlerSuite) TestPage_ServiceFailure() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk gone"))

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/submit", aliceFields, nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	s.Contains(rr.Body.String(), "could not be processed")
	s.NotContains(rr.Body.String(), "disk gone")
}

func (s *SubmitHandlerSuite) TestPage_OversizedBody() {
	router := s.newRouter(s.files, WithMaxUploadBytes(512))
	fields := append([]testutil.MultipartField{}, aliceFields...)
	fields[3].Value = strings.Repeat("long ", 400)
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/submit", fields, nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusRequestEntityTooLarge)
	s.Contains(rr.Body.String(), "request exceeds 512 bytes")
}
