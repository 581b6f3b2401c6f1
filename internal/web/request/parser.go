// Package request turns HTTP request bodies and path parameters into the
// loosely typed input the engine coerces.
package request

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ohler55/ojg/oj"
)

// ErrBadBody is returned when a body cannot be read as a field map
var ErrBadBody = errors.New("malformed request body")

// Parser reads request bodies as field maps
type Parser struct {
	maxBodySize int64
}

// NewParser creates a new request parser with a 10MB body limit
func NewParser() *Parser {
	return NewParserWithMaxSize(10 << 20)
}

// NewParserWithMaxSize creates a parser with a custom max body size
func NewParserWithMaxSize(maxBytes int64) *Parser {
	return &Parser{maxBodySize: maxBytes}
}

// Fields reads the body as a map of field name to raw value. JSON bodies
// must be an object; an empty JSON body is an empty map. Form bodies map
// single values to strings and repeated keys to string lists.
func (p *Parser) Fields(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch {
	case mediaType == "application/json", contentType == "":
		return p.parseJSON(w, r)
	case mediaType == "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, p.maxBodySize)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: invalid form data: %v", ErrBadBody, err)
		}
		return formToMap(r.PostForm), nil
	case strings.HasPrefix(mediaType, "multipart/form-data"):
		if err := r.ParseMultipartForm(p.maxBodySize); err != nil {
			return nil, fmt.Errorf("%w: invalid multipart form: %v", ErrBadBody, err)
		}
		return formToMap(r.MultipartForm.Value), nil
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrBadBody, mediaType)
	}
}

// parseJSON decodes with oj so integers stay int64 rather than float64
func (p *Parser) parseJSON(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return map[string]interface{}{}, nil
	}

	parsed, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrBadBody, err)
	}
	fields, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %T", ErrBadBody, parsed)
	}
	return fields, nil
}

func formToMap(values url.Values) map[string]interface{} {
	result := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			result[key] = vals[0]
		} else {
			result[key] = vals
		}
	}
	return result
}

// PathInt64 reads a chi path parameter as an integer
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("path parameter %s=%q is not an integer", name, raw)
	}
	return n, nil
}
