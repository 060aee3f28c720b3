// Package pageinfo pulls a short summary out of fetched HTML documents.
package pageinfo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxHTMLBytes caps how much of a body is handed to the HTML parser.
const MaxHTMLBytes = 1 << 20 // 1 MiB

// Info is the summary of one page.
type Info struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Heading     string `json:"heading,omitempty"`
}

// Empty reports whether nothing was extracted.
func (i Info) Empty() bool {
	return i.Title == "" && i.Description == "" && i.Heading == ""
}

// LooksLikeHTML sniffs the start of body for HTML markup.
func LooksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<head")) ||
		bytes.Contains(lower, []byte("<body"))
}

// Extract returns the title, description and first heading of an HTML body.
// Non-HTML bodies yield an empty Info.
func Extract(body []byte) (Info, error) {
	if !LooksLikeHTML(body) {
		return Info{}, nil
	}
	if len(body) > MaxHTMLBytes {
		body = body[:MaxHTMLBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Info{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return Info{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		Heading: strings.TrimSpace(doc.Find("h1").First().Text()),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
