package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	apprepo "recruit-intake/internal/application/repository"
	canrepo "recruit-intake/internal/candidate/repository"
	"recruit-intake/internal/catalog"
	"recruit-intake/internal/intake/service"
	"recruit-intake/internal/intake/store"
	"recruit-intake/internal/notify"
	"recruit-intake/internal/platform/clock"
	"recruit-intake/internal/security"
	"recruit-intake/internal/storage"
	"recruit-intake/internal/verification"
)

var today = time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

type testServer struct {
	router       *gin.Engine
	clk          *clock.Fake
	applications *apprepo.MemoryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	clk := clock.NewFake(today)
	dev := notify.NewDevNotifier(time.Hour)
	verifier := verification.NewService(dev, verification.DefaultPolicy(), verification.WithClock(clk))
	apps := apprepo.NewMemoryRepository()
	submitter := service.NewSubmitter(
		storage.NewFSStore(afero.NewMemMapFs(), "/data", "https://cdn.example.com"),
		canrepo.NewMemoryRepository(), apps, nil)
	ctl := service.NewController(verifier, submitter, cat, service.WithClock(clk))
	tokens, err := security.NewTokenProvider([]byte(strings.Repeat("s", security.MinSecretLen)), time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	r := gin.New()
	NewHandler(ctl, store.New(time.Hour, clk, nil), tokens, cat, dev, nil).Register(r)
	return &testServer{router: r, clk: clk, applications: apps}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postContact(t *testing.T, id, token, phone string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Ana Silva")
	_ = mw.WriteField("phone", phone)
	_ = mw.WriteField("email", "ana@x.com")
	if file != nil {
		fw, err := mw.CreateFormFile("attachment", "curriculo.pdf")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/intake/sessions/"+id+"/contact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func pdf(n int) []byte {
	b := make([]byte, n)
	copy(b, "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	return b
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (ts *testServer) open(t *testing.T) (string, string) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/v1/intake/sessions", "", openSessionRequest{JobID: "job-42", CompanyID: "acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[openSessionResponse](t, w)
	if resp.Step != "contact_info" || resp.Token == "" {
		t.Fatalf("open response = %+v", resp)
	}
	return resp.SessionID, resp.Token
}

func (ts *testServer) devCode(t *testing.T, id string) string {
	t.Helper()
	w := ts.do(t, http.MethodGet, "/dev/intake/otp?session_id="+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dev otp status = %d", w.Code)
	}
	return decode[map[string]string](t, w)["code"]
}

func TestIntakeFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	base := "/v1/intake/sessions/" + id

	if w := ts.postContact(t, id, token, "(15) 99999-8888", pdf(1<<20)); w.Code != http.StatusOK {
		t.Fatalf("contact status = %d, body %s", w.Code, w.Body)
	}
	w := ts.do(t, http.MethodPost, base+"/personal", token, personalRequest{
		Region: "SP", City: "sorocaba", Sex: "Feminino", BirthDate: today.AddDate(-20, 0, 0).Format("02/01/2006"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("personal status = %d, body %s", w.Code, w.Body)
	}
	w = ts.do(t, http.MethodPost, base+"/professional", token, professionalRequest{PrimaryRole: "Vendedora", ExtraRoles: []string{"Caixa"}})
	if w.Code != http.StatusOK {
		t.Fatalf("professional status = %d, body %s", w.Code, w.Body)
	}
	view := decode[sessionResponse](t, w)
	if view.Step != "verification" || !view.Armed || view.CanResend || view.CooldownRemainingSeconds != 30 {
		t.Fatalf("view = %+v", view)
	}

	w = ts.do(t, http.MethodPost, base+"/verification/resend", token, nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "30" {
		t.Errorf("early resend = %d Retry-After %q", w.Code, w.Header().Get("Retry-After"))
	}

	w = ts.do(t, http.MethodPost, base+"/verification/verify", token, verifyRequest{Code: wrongCode(ts.devCode(t, id))})
	if w.Code != http.StatusBadRequest || decode[errorResponse](t, w).ErrorCode != "incorrect_code" {
		t.Fatalf("wrong code = %d %s", w.Code, w.Body)
	}

	w = ts.do(t, http.MethodPost, base+"/verification/verify", token, verifyRequest{Code: ts.devCode(t, id)})
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", w.Code, w.Body)
	}
	view = decode[sessionResponse](t, w)
	if view.Step != "success" || view.ApplicationID == "" {
		t.Errorf("view = %+v, want success with application id", view)
	}
	if ts.applications.Len() != 1 {
		t.Errorf("applications = %d, want 1", ts.applications.Len())
	}

	if w := ts.do(t, http.MethodDelete, base, token, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, base, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestVerify_AttemptCapIsNotDisclosed(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	base := "/v1/intake/sessions/" + id
	if w := ts.postContact(t, id, token, "15999998888", pdf(1024)); w.Code != http.StatusOK {
		t.Fatalf("contact status = %d, body %s", w.Code, w.Body)
	}
	w := ts.do(t, http.MethodPost, base+"/personal", token, personalRequest{
		Region: "SP", City: "Sorocaba", Sex: "Feminino", BirthDate: today.AddDate(-20, 0, 0).Format("02/01/2006"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("personal status = %d, body %s", w.Code, w.Body)
	}
	w = ts.do(t, http.MethodPost, base+"/professional/skip", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("skip status = %d, body %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "attempts") {
		t.Errorf("session view %s discloses attempts", w.Body)
	}

	code := ts.devCode(t, id)
	// One past the default cap, then the right code on the burned challenge.
	guesses := []string{}
	for i := 0; i < verification.DefaultPolicy().MaxAttempts+1; i++ {
		guesses = append(guesses, wrongCode(code))
	}
	guesses = append(guesses, code)
	for i, g := range guesses {
		w := ts.do(t, http.MethodPost, base+"/verification/verify", token, verifyRequest{Code: g})
		resp := decode[errorResponse](t, w)
		if w.Code != http.StatusBadRequest || resp.ErrorCode != "incorrect_code" || resp.Message != "incorrect code" {
			t.Errorf("guess %d = %d %+v, want 400 incorrect_code", i, w.Code, resp)
		}
	}

	ts.clk.Advance(30 * time.Second)
	if w := ts.do(t, http.MethodPost, base+"/verification/resend", token, nil); w.Code != http.StatusOK {
		t.Fatalf("resend status = %d, body %s", w.Code, w.Body)
	}
	w = ts.do(t, http.MethodPost, base+"/verification/verify", token, verifyRequest{Code: ts.devCode(t, id)})
	if w.Code != http.StatusOK || decode[sessionResponse](t, w).Step != "success" {
		t.Errorf("verify after resend = %d %s", w.Code, w.Body)
	}
}

func wrongCode(code string) string {
	if code == "0000" {
		return "1111"
	}
	return "0000"
}

func TestSubmitContact_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	w := ts.postContact(t, id, token, "1599999", pdf(100))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	resp := decode[errorResponse](t, w)
	if resp.Field != "phone" || resp.ErrorCode != "invalid_phone" {
		t.Errorf("error = %+v, want phone/invalid_phone", resp)
	}

	w = ts.postContact(t, id, token, "15999998888", nil)
	if resp := decode[errorResponse](t, w); w.Code != http.StatusUnprocessableEntity || resp.Field != "attachment" {
		t.Errorf("missing attachment = %d %+v", w.Code, resp)
	}
}

func TestSubmitPersonal_Underage(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	if w := ts.postContact(t, id, token, "15999998888", pdf(1<<20)); w.Code != http.StatusOK {
		t.Fatalf("contact status = %d", w.Code)
	}
	w := ts.do(t, http.MethodPost, "/v1/intake/sessions/"+id+"/personal", token, personalRequest{
		Region: "SP", City: "Sorocaba", Sex: "Feminino", BirthDate: today.AddDate(-10, 0, 0).Format("02/01/2006"),
	})
	if resp := decode[errorResponse](t, w); w.Code != http.StatusUnprocessableEntity || resp.ErrorCode != "underage" {
		t.Fatalf("underage = %d %+v", w.Code, resp)
	}
	view := decode[sessionResponse](t, ts.do(t, http.MethodGet, "/v1/intake/sessions/"+id, token, nil))
	if view.Step != "personal_info" {
		t.Errorf("step = %q, want personal_info", view.Step)
	}
}

func TestRequireSession(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	otherID, _ := ts.open(t)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/v1/intake/sessions/" + id, "", http.StatusUnauthorized},
		{"garbage token", "/v1/intake/sessions/" + id, "nope", http.StatusUnauthorized},
		{"token for another session", "/v1/intake/sessions/" + otherID, token, http.StatusUnauthorized},
		{"valid", "/v1/intake/sessions/" + id, token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := ts.do(t, http.MethodGet, tt.path, tt.token, nil); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	w := ts.do(t, http.MethodPost, "/v1/intake/sessions/"+id+"/professional/skip", token, nil)
	if resp := decode[errorResponse](t, w); w.Code != http.StatusConflict || resp.ErrorCode != "invalid_transition" {
		t.Errorf("skip on contact_info = %d %+v", w.Code, resp)
	}
}

func TestOpenSession_Validation(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/v1/intake/sessions", "", openSessionRequest{CompanyID: "acme"})
	if resp := decode[errorResponse](t, w); w.Code != http.StatusUnprocessableEntity || resp.Field != "job_id" {
		t.Errorf("missing job = %d %+v", w.Code, resp)
	}
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/catalog/regions/SP/cities", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Sorocaba") {
		t.Errorf("SP cities = %d %s", w.Code, w.Body)
	}
	if w := ts.do(t, http.MethodGet, "/v1/catalog/regions/XX/cities", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown region status = %d, want 404", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/v1/catalog/regions", "", nil); w.Code != http.StatusOK {
		t.Errorf("regions status = %d", w.Code)
	}
}

func TestVerify_MissingCode(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.open(t)
	w := ts.do(t, http.MethodPost, "/v1/intake/sessions/"+id+"/verification/verify", token, map[string]string{})
	if resp := decode[errorResponse](t, w); w.Code != http.StatusUnprocessableEntity || resp.Field != "code" {
		t.Errorf("missing code = %d %+v", w.Code, resp)
	}
}
