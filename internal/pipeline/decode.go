package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const BodyKey = "pipeline.body"

var (
	ErrBodyTooLarge = errors.New("request entity too large")
	ErrBodyShape    = errors.New("JSON body must be an object or array")
)

// BodyDecoder parses JSON and URL-encoded bodies. The raw bytes stay
// readable for gin bindings downstream.
type BodyDecoder struct {
	limit int64
}

func NewBodyDecoder(limit int64) *BodyDecoder {
	return &BodyDecoder{limit: limit}
}

func (d *BodyDecoder) Stage() Stage {
	return Stage{Name: "decode", Run: d.run}
}

func (d *BodyDecoder) run(c *gin.Context) Result {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return Continue()
	}

	contentType := c.ContentType()
	if contentType != binding.MIMEJSON && contentType != binding.MIMEPOSTForm {
		return Continue()
	}

	raw, err := d.read(c)
	if err != nil {
		return Fail(KindDecode, err)
	}
	if len(raw) == 0 {
		return Continue()
	}

	var body any
	switch contentType {
	case binding.MIMEJSON:
		body, err = decodeJSON(raw)
		if err == nil {
			c.Set(gin.BodyBytesKey, raw)
		}
	case binding.MIMEPOSTForm:
		body, err = decodeForm(raw)
	}
	if err != nil {
		return Fail(KindDecode, err)
	}

	c.Set(BodyKey, body)
	return Continue()
}

func (d *BodyDecoder) read(c *gin.Context) ([]byte, error) {
	reader := c.Request.Body
	if d.limit > 0 {
		reader = io.NopCloser(io.LimitReader(reader, d.limit+1))
	}
	raw, err := io.ReadAll(reader)
	_ = c.Request.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if d.limit > 0 && int64(len(raw)) > d.limit {
		return nil, ErrBodyTooLarge
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

func decodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	}
	return nil, ErrBodyShape
}

func decodeForm(raw []byte) (map[string]any, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}

	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
		} else {
			out[key] = vals
		}
	}
	return out, nil
}

// Body returns the decoded request body, if the decoder attached one.
func Body(c *gin.Context) (any, bool) {
	return c.Get(BodyKey)
}

// BodyMap returns the decoded body when it is an object or a form.
func BodyMap(c *gin.Context) map[string]any {
	v, ok := Body(c)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}
