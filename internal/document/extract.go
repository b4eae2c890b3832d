// Package document turns uploaded résumés into plain text for the model.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"careercoach/internal/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported media types
const (
	MediaPlain    = "text/plain"
	MediaMarkdown = "text/markdown"
	MediaHTML     = "text/html"
	MediaPDF      = "application/pdf"
	MediaDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensions = map[string]string{
	".txt":      MediaPlain,
	".text":     MediaPlain,
	".md":       MediaMarkdown,
	".markdown": MediaMarkdown,
	".html":     MediaHTML,
	".htm":      MediaHTML,
	".pdf":      MediaPDF,
	".docx":     MediaDOCX,
}

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t\r\f\v]+`)
	docxParaEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// Fingerprint returns the hex SHA-256 of data
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MediaTypeFor guesses the media type of an upload from its file name and,
// failing that, from its content.
func MediaTypeFor(filename string, data []byte) string {
	if mt, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return Normalize(http.DetectContentType(data))
}

// Normalize drops media type parameters such as charset
func Normalize(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

// MediaOctetStream is what clients send when they do not know the type
const MediaOctetStream = "application/octet-stream"

// Resolve picks the media type of an upload. The declared type wins; the
// content is only sniffed when the client declared nothing specific.
func Resolve(declared, filename string, data []byte) (string, error) {
	mt := Normalize(declared)
	switch {
	case mt == "" || mt == MediaOctetStream:
		return MediaTypeFor(filename, data), nil
	case Supported(mt):
		return mt, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedMedia,
			fmt.Sprintf("unsupported résumé format: %s", declared), nil)
	}
}

// Supported reports whether Extract handles mediaType
func Supported(mediaType string) bool {
	switch Normalize(mediaType) {
	case MediaPlain, MediaMarkdown, MediaHTML, MediaPDF, MediaDOCX:
		return true
	}
	return false
}

// Extract returns the plain text of a document. Unsupported types and files
// without any text are validation errors.
func Extract(mediaType string, data []byte) (string, error) {
	mt := Normalize(mediaType)

	var text string
	var err error
	switch mt {
	case MediaPlain, MediaMarkdown:
		if !utf8.Valid(data) {
			return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
				"text document is not valid UTF-8", nil).WithContext("media_type", mt)
		}
		text = string(data)
	case MediaHTML:
		text, err = extractHTML(data)
	case MediaPDF:
		text, err = extractPDF(data)
	case MediaDOCX:
		text, err = extractDOCX(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedMedia,
			fmt.Sprintf("unsupported résumé format: %s", mediaType), nil)
	}
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"failed to read "+mt+" document", err)
	}

	text = clean(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"document contains no text", nil).WithContext("media_type", mt)
	}
	return text, nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, iframe, noscript").Remove()

	var blocks []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n"), nil
	}
	return doc.Find("body").Text(), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractDOCX strips the WordprocessingML markup of document.xml
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = docxParaEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func clean(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
