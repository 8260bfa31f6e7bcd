package capture

import (
	"math"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/tidwall/gjson"
)

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(capture *suite.Capture) (any, bool) {
	switch capture.Source {
	case suite.CaptureBody:
		return e.extractFromBody(capture.Path)
	case suite.CaptureHeader:
		return e.extractFromHeader(capture.Path)
	case suite.CaptureStatus:
		return e.response.StatusCode, true
	case suite.CaptureDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	path = strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return value(result), true
}

// value keeps whole numbers integral so ids interpolate as 101, not 1.01e+02.
func value(r gjson.Result) any {
	if r.Type == gjson.Number {
		if f := r.Float(); f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
			return r.Int()
		}
	}
	return r.Value()
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll runs every capture against resp. Captures that found nothing
// are returned by name in missing, in declaration order.
func ExtractAll(resp *http.Response, captures []*suite.Capture) (values map[string]any, missing []string) {
	extractor := NewExtractor(resp)
	values = make(map[string]any)

	for _, c := range captures {
		if v, ok := extractor.Extract(c); ok {
			values[c.Name] = v
		} else {
			missing = append(missing, c.Name)
		}
	}

	return values, missing
}
