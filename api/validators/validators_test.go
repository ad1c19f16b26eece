package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/jgechelper/backend/pkg/errors"
)

type resourceForm struct {
	Title    string `json:"title" validate:"required,max=10"`
	Branch   string `json:"branch" validate:"required,branch"`
	Semester string `json:"semester" validate:"required,semester"`
	Type     string `json:"type" validate:"required,resource_type"`
	Category string `json:"category" validate:"notice_category"`
}

func TestDecodeJSONBodyAcceptsCatalogValues(t *testing.T) {
	body := `{"title":"DBMS","branch":"CSE","semester":"5th Semester","type":"Notes","category":""}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var form resourceForm
	if err := DecodeJSONBody(req, &form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Branch != "CSE" {
		t.Fatalf("unexpected branch %q", form.Branch)
	}
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	body := `{"title":"A very long title","branch":"XYZ","semester":"9th Semester","type":"Slides","category":"Sports"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var form resourceForm
	err := DecodeJSONBody(req, &form)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	for _, field := range []string{"title", "branch", "semester", "type", "category"} {
		if details[field] == "" {
			t.Fatalf("expected message for %s in %v", field, details)
		}
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","extra":1}`))
	var form resourceForm
	if err := DecodeJSONBody(req, &form); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc.def"); err != nil || tok != "abc.def" {
		t.Fatalf("unexpected token %q err=%v", tok, err)
	}
	if tok, err := BearerToken("raw-token"); err != nil || tok != "raw-token" {
		t.Fatalf("bare tokens should pass through, got %q err=%v", tok, err)
	}
	if _, err := BearerToken("Bearer   "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token for empty header, got %v", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=dbms&sort=Name", nil)
	if q, err := QueryString(req, "q", 10); err != nil || q != "dbms" {
		t.Fatalf("unexpected q %q err=%v", q, err)
	}
	if _, err := QueryString(req, "q", 2); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected too-long query to fail, got %v", err)
	}
	if sort, err := QueryOneOf(req, "sort", "newest", "name"); err != nil || sort != "name" {
		t.Fatalf("unexpected sort %q err=%v", sort, err)
	}
	if _, err := QueryOneOf(req, "sort", "newest"); err == nil {
		t.Fatalf("expected disallowed value to fail")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  notes\x00.pdf \n", 0); got != "notes.pdf" {
		t.Fatalf("unexpected sanitized value %q", got)
	}
	if got := SanitizeString("পরীক্ষা", 3); got != "পরী" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
