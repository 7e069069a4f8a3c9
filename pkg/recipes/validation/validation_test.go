package validation

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
)

func fieldsOf(t *testing.T, err error) apierr.Fields {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("Expected *apierr.Error, got %v", err)
	}
	if ae.Code != apierr.CodeInvalid {
		t.Fatalf("Expected invalid code, got %s", ae.Code)
	}
	return ae.Fields
}

func payloadFrom(t *testing.T, body string) Payload {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(body))
	p, err := DecodePayload(c)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	return p
}

type signup struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=5"`
	Name     *string `json:"name" binding:"omitnil,notblank,min=3,max=255"`
}

func TestBindJSONReportsEveryField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"nope","password":"pw","name":"ab"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req signup
	fields := fieldsOf(t, BindJSON(c, &req))

	for _, field := range []string{"email", "password", "name"} {
		if len(fields[field]) == 0 {
			t.Errorf("Expected an error for %s, got %v", field, fields)
		}
	}
}

func TestBindJSONTypeError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":5}`))

	var req signup
	fields := fieldsOf(t, BindJSON(c, &req))
	if fields["email"][0] != MsgString {
		t.Errorf("Expected string type error for email, got %v", fields)
	}
}

func TestBindJSONEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(""))

	var req signup
	fields := fieldsOf(t, BindJSON(c, &req))
	for _, field := range []string{"email", "password"} {
		if len(fields[field]) != 1 || fields[field][0] != MsgRequired {
			t.Errorf("Expected required error for %s, got %v", field, fields)
		}
	}
	if _, ok := fields["name"]; ok {
		t.Errorf("Expected no error for omitted optional name, got %v", fields["name"])
	}
}

func TestBindJSONTypeErrorDoesNotHideOtherFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"bad","password":"x","name":5}`))

	var req signup
	fields := fieldsOf(t, BindJSON(c, &req))

	expected := map[string]string{
		"email":    "Enter a valid email address.",
		"password": "Ensure this field has at least 5 characters.",
		"name":     MsgString,
	}
	for field, msg := range expected {
		if len(fields[field]) != 1 || fields[field][0] != msg {
			t.Errorf("Expected %s error %q, got %v", field, msg, fields[field])
		}
	}
}

type profile struct {
	Email string  `json:"email" trim:"true" binding:"required,email"`
	Name  *string `json:"name" trim:"true" binding:"omitnil,min=3"`
}

func TestBindJSONTrimsBeforeValidating(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"  Pad@Example.com ","name":"  Bob  "}`))
	var ok profile
	if err := BindJSON(c, &ok); err != nil {
		t.Fatalf("Expected padded values to be valid, got %v", err)
	}
	if ok.Email != "Pad@Example.com" || ok.Name == nil || *ok.Name != "Bob" {
		t.Errorf("Expected trimmed values, got %q %v", ok.Email, ok.Name)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"   ","name":"   ab   "}`))
	var bad profile
	fields := fieldsOf(t, BindJSON(c, &bad))
	if len(fields["email"]) != 1 || fields["email"][0] != MsgBlank {
		t.Errorf("Expected blank error for email, got %v", fields["email"])
	}
	if len(fields["name"]) != 1 || fields["name"][0] != "Ensure this field has at least 3 characters." {
		t.Errorf("Expected length error for trimmed name, got %v", fields["name"])
	}
}

func TestBindJSONRejectsNull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(`{"email":null,"password":"secret","name":null}`))

	var req signup
	fields := fieldsOf(t, BindJSON(c, &req))
	for _, field := range []string{"email", "name"} {
		if len(fields[field]) != 1 || fields[field][0] != MsgNull {
			t.Errorf("Expected null error for %s, got %v", field, fields[field])
		}
	}
	if _, ok := fields["password"]; ok {
		t.Errorf("Expected no error for password, got %v", fields["password"])
	}
}

func TestDecodePayloadRejectsNonObject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, body := range []string{`[1,2]`, `"text"`, `{bad json`} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest("POST", "/", bytes.NewBufferString(body))
		if _, err := DecodePayload(c); err == nil {
			t.Errorf("Expected error for body %s", body)
		}
	}
}

func TestPayloadString(t *testing.T) {
	p := payloadFrom(t, `{"title":"  Tea  ","blank":"  ","num":5,"long":"`+string(bytes.Repeat([]byte("a"), 256))+`","nil":null}`)
	var errs Errors

	if s, ok := p.String(&errs, "title", true, false, "max=255"); !ok || s != "Tea" {
		t.Errorf("Expected trimmed title, got %q", s)
	}
	p.String(&errs, "blank", true, false, "")
	p.String(&errs, "num", true, false, "")
	p.String(&errs, "long", true, false, "max=255")
	p.String(&errs, "nil", true, false, "")
	p.String(&errs, "missing", true, false, "")
	if _, ok := p.String(&errs, "optional", false, false, ""); ok {
		t.Error("Expected missing optional field to report not present")
	}

	fields := fieldsOf(t, errs.Err())
	expected := map[string]string{
		"blank":   MsgBlank,
		"num":     MsgString,
		"long":    "Ensure this field has no more than 255 characters.",
		"nil":     MsgNull,
		"missing": MsgRequired,
	}
	for field, msg := range expected {
		if len(fields[field]) != 1 || fields[field][0] != msg {
			t.Errorf("Expected %s error %q, got %v", field, msg, fields[field])
		}
	}
	if _, ok := fields["optional"]; ok {
		t.Error("Expected no error for missing optional field")
	}
}

func TestPayloadInteger(t *testing.T) {
	p := payloadFrom(t, `{"a":5,"b":"7","c":true,"d":"5.5","e":"abc","f":1.5,"g":99999999999,"h":5.0,"i":"5.0","j":1e3}`)
	var errs Errors

	if n, ok := p.Integer(&errs, "a", true); !ok || n != 5 {
		t.Errorf("Expected 5, got %d", n)
	}
	if n, ok := p.Integer(&errs, "b", true); !ok || n != 7 {
		t.Errorf("Expected 7, got %d", n)
	}
	if n, ok := p.Integer(&errs, "h", true); !ok || n != 5 {
		t.Errorf("Expected JSON 5.0 to read as 5, got %d", n)
	}
	for _, field := range []string{"c", "d", "e", "f", "g", "i", "j"} {
		if _, ok := p.Integer(&errs, field, true); ok {
			t.Errorf("Expected %s to be rejected", field)
		}
	}
	fields := fieldsOf(t, errs.Err())
	if len(fields) != 7 {
		t.Errorf("Expected 7 field errors, got %v", fields)
	}
}

func TestPayloadPrice(t *testing.T) {
	p := payloadFrom(t, `{"a":1.5,"b":"2.25","c":false,"d":12345678921,"e":"1.234"}`)
	var errs Errors

	if price, ok := p.Price(&errs, "a", true); !ok || price.String() != "1.50" {
		t.Errorf("Expected 1.50, got %s", price)
	}
	if price, ok := p.Price(&errs, "b", true); !ok || price.String() != "2.25" {
		t.Errorf("Expected 2.25, got %s", price)
	}
	for _, field := range []string{"c", "d", "e"} {
		if _, ok := p.Price(&errs, field, true); ok {
			t.Errorf("Expected %s to be rejected", field)
		}
	}
	fields := fieldsOf(t, errs.Err())
	if fields["d"][0] != "Ensure that there are no more than 10 digits in total." {
		t.Errorf("Unexpected message for d: %v", fields["d"])
	}
}

func TestPayloadIDList(t *testing.T) {
	p := payloadFrom(t, `{"a":[3,1,3],"b":[],"c":"1","d":[true],"e":["x"],"f":null,"g":[0]}`)
	var errs Errors

	ids, ok := p.IDList(&errs, "a", false)
	if !ok || len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("Expected [3 1], got %v", ids)
	}
	ids, ok = p.IDList(&errs, "b", false)
	if !ok || len(ids) != 0 {
		t.Errorf("Expected empty list, got %v", ids)
	}
	for _, field := range []string{"c", "d", "e", "f", "g"} {
		if _, ok := p.IDList(&errs, field, false); ok {
			t.Errorf("Expected %s to be rejected", field)
		}
	}
	fields := fieldsOf(t, errs.Err())
	if len(fields) != 5 {
		t.Errorf("Expected 5 field errors, got %v", fields)
	}
}

func TestVar(t *testing.T) {
	if msg := Var("https://example.com/recipe", "http_url"); msg != "" {
		t.Errorf("Expected valid url, got %q", msg)
	}
	if msg := Var("not a url", "http_url"); msg != "Enter a valid URL." {
		t.Errorf("Expected url error, got %q", msg)
	}
	if msg := Var("user@example.com", "email"); msg != "" {
		t.Errorf("Expected valid email, got %q", msg)
	}
}
