package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/models"
)

// Payload is a JSON object decoded lazily, one field at a time.
type Payload map[string]json.RawMessage

// DecodePayload reads the request body as a JSON object.
// An empty body decodes to an empty payload.
func DecodePayload(c *gin.Context) (Payload, error) {
	var errs Errors
	if c.Request.Body == nil {
		return Payload{}, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errs.Add(NonFieldErrors, "Could not read request body.")
		return nil, errs.Err()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Payload{}, nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil || p == nil {
		errs.Add(NonFieldErrors, "Invalid JSON body. Expected an object.")
		return nil, errs.Err()
	}
	return p, nil
}

// Has reports whether the field was supplied (including as null)
func (p Payload) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// lookup returns the raw value and whether it was present and non-null.
// Missing and null fields are reported when required.
func (p Payload) lookup(errs *Errors, field string, required bool) (json.RawMessage, bool) {
	raw, ok := p[field]
	if !ok {
		if required {
			errs.Add(field, MsgRequired)
		}
		return nil, false
	}
	if isNull(raw) {
		if required {
			errs.Add(field, MsgNull)
		}
		return nil, false
	}
	return raw, true
}

// String reads a string field, trimming surrounding whitespace.
// Blank values are rejected unless allowBlank is set; tags are validator tags
// applied to the non-blank value.
func (p Payload) String(errs *Errors, field string, required, allowBlank bool, tags string) (string, bool) {
	raw, ok := p.lookup(errs, field, required)
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		errs.Add(field, MsgString)
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if !allowBlank {
			errs.Add(field, MsgBlank)
			return "", false
		}
		return "", true
	}
	if tags != "" {
		if msg := Var(s, tags); msg != "" {
			errs.Add(field, msg)
			return "", false
		}
	}
	return s, true
}

// Integer reads an integer given as a JSON integer or an integer string.
// Booleans, fractions and non-numeric strings are rejected.
func (p Payload) Integer(errs *Errors, field string, required bool) (int, bool) {
	raw, ok := p.lookup(errs, field, required)
	if !ok {
		return 0, false
	}

	text, ok := scalarText(raw)
	if !ok {
		errs.Add(field, "A valid integer is required.")
		return 0, false
	}
	text = strings.TrimSpace(text)
	// A JSON number with a zero fraction, such as 5.0, is an integer.
	// Strings keep the strict form.
	if raw := bytes.TrimSpace(raw); raw[0] != '"' {
		if whole, frac, found := strings.Cut(text, "."); found && frac != "" && strings.Trim(frac, "0") == "" {
			text = whole
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		errs.Add(field, "A valid integer is required.")
		return 0, false
	}
	if n > math.MaxInt32 {
		errs.Add(field, fmt.Sprintf("Ensure this value is less than or equal to %d.", math.MaxInt32))
		return 0, false
	}
	if n < math.MinInt32 {
		errs.Add(field, fmt.Sprintf("Ensure this value is greater than or equal to %d.", math.MinInt32))
		return 0, false
	}
	return int(n), true
}

// Price reads a decimal given as a JSON number or a numeric string
func (p Payload) Price(errs *Errors, field string, required bool) (models.Price, bool) {
	raw, ok := p.lookup(errs, field, required)
	if !ok {
		return 0, false
	}

	text, ok := scalarText(raw)
	if !ok {
		errs.Add(field, "A valid number is required.")
		return 0, false
	}
	price, err := models.ParsePrice(text)
	if err != nil {
		errs.Add(field, sentence(err.Error()))
		return 0, false
	}
	return price, true
}

// IDList reads a JSON array of primary keys. Duplicates are collapsed and
// the first-seen order is kept.
func (p Payload) IDList(errs *Errors, field string, required bool) ([]uint, bool) {
	raw, ok := p.lookup(errs, field, required)
	if !ok {
		if p.Has(field) && !required {
			errs.Add(field, MsgNull)
		}
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		errs.Add(field, fmt.Sprintf("Expected a list of items but got type %q.", jsonType(raw)))
		return nil, false
	}

	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	valid := true
	for _, item := range items {
		text, ok := scalarText(item)
		var id uint64
		var err error
		if ok {
			id, err = strconv.ParseUint(strings.TrimSpace(text), 10, 32)
		}
		if !ok || err != nil || id == 0 {
			errs.Add(field, fmt.Sprintf("Incorrect type. Expected pk value, received %s.", jsonType(item)))
			valid = false
			continue
		}
		if !seen[uint(id)] {
			seen[uint(id)] = true
			ids = append(ids, uint(id))
		}
	}
	if !valid {
		return nil, false
	}
	return ids, true
}

// scalarText returns the literal text of a JSON number or the content of a
// JSON string. Any other JSON type is rejected.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		return string(raw), true
	default:
		return "", false
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func jsonType(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '"':
		return "str"
	case '{':
		return "dict"
	case '[':
		return "list"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
