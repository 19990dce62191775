package model

import (
	"encoding/base64"
	"strings"
)

// ContentKind tags a ContentPart.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// InlineImage is an encoded image ready to be embedded in a request payload.
type InlineImage struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// DataURL renders the image as a self-describing data URL.
func (i InlineImage) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ContentPart is one element of the user content sent to the generation service.
type ContentPart struct {
	Kind  ContentKind
	Text  string
	Image *InlineImage
}

// PromptPair is the fully rendered request to the generation service.
type PromptPair struct {
	Domain       Domain
	Instructions string
	Content      []ContentPart
}

// Text joins all text parts of the content.
func (p PromptPair) Text() string {
	var texts []string
	for _, c := range p.Content {
		if c.Kind == ContentText {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Images returns the inline images of the content in order.
func (p PromptPair) Images() []InlineImage {
	var images []InlineImage
	for _, c := range p.Content {
		if c.Kind == ContentImage && c.Image != nil {
			images = append(images, *c.Image)
		}
	}
	return images
}

// HasImage reports whether any image part is present.
func (p PromptPair) HasImage() bool {
	return len(p.Images()) > 0
}
