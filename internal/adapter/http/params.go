package adapthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bpmnstudio/internal/domain"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 32 << 20

var errInvalidBody = errors.New("invalid request body")

// params is the untyped input of one request. Body fields win over query
// fields with the same name.
type params struct {
	query url.Values
	body  map[string]string
}

func paramsFrom(ctx context.Context) params {
	p, _ := ctx.Value(paramsContextKey).(params)
	return p
}

func readParams(w http.ResponseWriter, r *http.Request) (params, error) {
	p := params{query: r.URL.Query(), body: map[string]string{}}
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return p, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := decodeJSONParams(r, p.body); err != nil {
			return p, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return p, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		copyForm(p.body, r.PostForm)
	default:
		if err := r.ParseForm(); err != nil {
			return p, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		copyForm(p.body, r.PostForm)
	}
	return p, nil
}

func decodeJSONParams(r *http.Request, dst map[string]string) error {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			dst[k] = v
		case json.Number:
			dst[k] = v.String()
		case bool:
			dst[k] = strconv.FormatBool(v)
		}
	}
	return nil
}

func copyForm(dst map[string]string, form url.Values) {
	for k, vs := range form {
		if len(vs) > 0 {
			dst[k] = vs[0]
		}
	}
}

func (p params) lookup(key string) (string, bool) {
	if v, ok := p.body[key]; ok {
		return v, true
	}
	if vs, ok := p.query[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func (p params) str(key string) string {
	v, _ := p.lookup(key)
	return v
}

// ptr returns nil when key is absent and a pointer to the (possibly empty)
// value otherwise.
func (p params) ptr(key string) *string {
	v, ok := p.lookup(key)
	if !ok {
		return nil
	}
	return &v
}

func (p params) bodyValue(key string) string {
	return p.body[key]
}

// boolPtr accepts the spellings HTML forms and JSON clients send.
func (p params) boolPtr(key string) *bool {
	v, ok := p.lookup(key)
	if !ok {
		return nil
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		b = true
	}
	return &b
}

// checkRequest validates req and reports missing fields by their parameter name.
func (s *Server) checkRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &domain.ValidationError{Fields: fields}
}
