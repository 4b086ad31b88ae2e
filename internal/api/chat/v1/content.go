package v1

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// wire types in the OpenAI content-part format
type wirePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

const wireTypeImageURL = "image_url"

// ErrUnknownPartType is returned for content parts this service cannot forward. Part lists
// skip such parts instead of failing.
var ErrUnknownPartType = errors.New("unknown content part type")

// DataURI encodes data inline as data:<mimeType>;base64,<payload>
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI is the inverse of DataURI. It only accepts base64 data URIs.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "error decoding data URI payload")
	}
	return mimeType, data, nil
}

// URLString returns the URL an image part is sent with
func (p ContentPart) URLString() string {
	if p.URL != "" {
		return p.URL
	}
	return DataURI(p.MimeType, p.Data)
}

func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartTypeText:
		return json.Marshal(wirePart{Type: string(PartTypeText), Text: p.Text})
	case PartTypeImage:
		return json.Marshal(wirePart{Type: wireTypeImageURL, ImageURL: &wireImageURL{URL: p.URLString(), Detail: p.Detail}})
	default:
		return nil, fmt.Errorf("unknown content part type %q", p.Type)
	}
}

func (p *ContentPart) UnmarshalJSON(b []byte) error {
	var w wirePart
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case string(PartTypeText):
		*p = TextPart(w.Text)
	case wireTypeImageURL, string(PartTypeImage):
		if w.ImageURL == nil || w.ImageURL.URL == "" {
			return fmt.Errorf("image part has no url")
		}
		if mimeType, data, err := ParseDataURI(w.ImageURL.URL); err == nil {
			*p = ImagePart(mimeType, data)
		} else {
			*p = ContentPart{Type: PartTypeImage, URL: w.ImageURL.URL}
		}
		p.Detail = w.ImageURL.Detail
	default:
		return errors.Wrapf(ErrUnknownPartType, "%q", w.Type)
	}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = Content{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	case len(b) > 0 && b[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		parts := make([]ContentPart, 0, len(raw))
		for _, r := range raw {
			var part ContentPart
			if err := json.Unmarshal(r, &part); err != nil {
				if errors.Is(err, ErrUnknownPartType) {
					continue
				}
				return err
			}
			parts = append(parts, part)
		}
		*c = PartsContent(parts...)
		return nil
	}
	return fmt.Errorf("message content must be a string or an array of parts")
}
