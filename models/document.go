package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Media references non-text content by URL.
type Media struct {
	URL         string `json:"url" validate:"required"`
	ContentType string `json:"contentType,omitempty"`
}

// Part is one chunk of a document. Exactly one of Text or Media is set.
type Part struct {
	Text  *string `json:"text,omitempty"`
	Media *Media  `json:"media,omitempty" validate:"omitempty"`
}

// TextPart creates a text Part.
func TextPart(text string) Part {
	return Part{Text: &text}
}

// Document is multi-part content plus optional metadata.
type Document struct {
	Content  []Part                 `json:"content" validate:"required,min=1,dive"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextDocument creates a Document holding a single text part.
func NewTextDocument(text string, metadata map[string]interface{}) Document {
	return Document{
		Content:  []Part{{Text: &text}},
		Metadata: metadata,
	}
}

// NewMediaDocument creates a Document holding a single media part.
func NewMediaDocument(url, contentType string, metadata map[string]interface{}) Document {
	return Document{
		Content:  []Part{{Media: &Media{URL: url, ContentType: contentType}}},
		Metadata: metadata,
	}
}

// Text concatenates all text parts without a delimiter.
func (d Document) Text() string {
	var b strings.Builder
	for _, p := range d.Content {
		if p.Text != nil {
			b.WriteString(*p.Text)
		}
	}
	return b.String()
}

// Media returns every media part in content order.
func (d Document) Media() []Media {
	var out []Media
	for _, p := range d.Content {
		if p.Media != nil {
			out = append(out, *p.Media)
		}
	}
	return out
}

// Data returns the text if there is any, else the first media URL.
func (d Document) Data() string {
	if text := d.Text(); text != "" {
		return text
	}
	if media := d.Media(); len(media) > 0 {
		return media[0].URL
	}
	return ""
}

// ContentHash returns the hex md5 of the document's JSON encoding. Map keys in
// metadata are marshaled sorted, so equal documents hash equally.
func (d Document) ContentHash() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}
