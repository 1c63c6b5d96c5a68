package content

import (
	"mime"
	"path"
	"strings"
)

// Category is the preview category of a file.
type Category string

// Preview categories.
const (
	CategoryMarkdown     Category = "markdown"
	CategoryText         Category = "text"
	CategoryImage        Category = "image"
	CategoryPDF          Category = "pdf"
	CategoryWord         Category = "word"
	CategorySpreadsheet  Category = "spreadsheet"
	CategoryPresentation Category = "presentation"
	CategoryBinary       Category = "binary"
)

// DefaultMaxInlineBytes is the largest text or markdown file rendered inline.
const DefaultMaxInlineBytes int64 = 1 << 20

// OctetStream is the MIME type of content that could not be classified.
const OctetStream = "application/octet-stream"

const (
	mimeMarkdown = "text/markdown; charset=utf-8"
	mimeText     = "text/plain; charset=utf-8"
	mimeCSV      = "text/csv; charset=utf-8"
	mimeTSV      = "text/tab-separated-values; charset=utf-8"
	mimeSVG      = "image/svg+xml"
	mimePDF      = "application/pdf"
	mimeDoc      = "application/msword"
	mimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXls      = "application/vnd.ms-excel"
	mimeXlsx     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeOds      = "application/vnd.oasis.opendocument.spreadsheet"
	mimePpt      = "application/vnd.ms-powerpoint"
	mimePptx     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// Result is the category and MIME type assigned to a file.
type Result struct {
	Category Category `json:"category"`
	MIMEType string   `json:"mimeType"`
}

// Preview extends Result with the decisions a renderer needs.
type Preview struct {
	Result

	Language       string `json:"language,omitempty"` // Highlight language, empty when unknown.
	Inline         bool   `json:"inline"`             // Safe to render inline.
	TooLarge       bool   `json:"tooLarge"`           // Text or markdown above the inline limit.
	BinaryDetected bool   `json:"binaryDetected"`     // Text category whose bytes look binary.
	ClientRender   bool   `json:"clientRender"`       // Office formats rendered by the client.
}

// IsTextual reports whether the category renders as text.
func (c Category) IsTextual() bool {
	return c == CategoryText || c == CategoryMarkdown
}

// Classifier assigns preview categories and MIME types to files.
type Classifier struct {
	tables         Tables
	maxInlineBytes int64
}

// New creates a Classifier.
//
// Parameters:
//   - tables: Extension tables, usually DefaultTables().
//   - maxInlineBytes: Inline limit for text and markdown; zero or less selects DefaultMaxInlineBytes.
//
// Returns:
//   - *Classifier: Ready to use classifier. It holds no mutable state.
func New(tables Tables, maxInlineBytes int64) *Classifier {
	if maxInlineBytes <= 0 {
		maxInlineBytes = DefaultMaxInlineBytes
	}

	return &Classifier{tables: tables, maxInlineBytes: maxInlineBytes}
}

// Classify determines the category and MIME type of a file from its name and,
// when the name is inconclusive, from a sample of its bytes.
//
// Parameters:
//   - fileName: Base name or path of the file.
//   - sample: Leading bytes of the content. Only the first 8 KiB are inspected.
//
// Returns:
//   - Result: Category and MIME type; MIME falls back to application/octet-stream.
func (c *Classifier) Classify(fileName string, sample []byte) Result {
	ext := Extension(fileName)
	byName := mimeByName(ext)

	category, known := c.tables.categoryOf(ext)
	if !known {
		category = categoryOfMIME(byName)
	}

	if category == CategoryBinary && IsLikelyText(sample) {
		category = CategoryText
	}

	return Result{Category: category, MIMEType: mimeFor(category, ext, byName)}
}

// Preview classifies content and decides how it may be rendered.
func (c *Classifier) Preview(fileName string, content []byte) Preview {
	result := c.Classify(fileName, content)
	preview := Preview{
		Result:   result,
		Language: c.tables.Languages[Extension(fileName)],
	}

	if result.Category.IsTextual() {
		preview.TooLarge = int64(len(content)) > c.maxInlineBytes
		preview.BinaryDetected = LooksBinary(content)
	}

	switch result.Category {
	case CategoryWord, CategorySpreadsheet, CategoryPresentation:
		preview.ClientRender = true
	}

	preview.Inline = !preview.TooLarge && !preview.BinaryDetected && result.Category != CategoryBinary

	return preview
}

// Extension returns the lower-cased text after the last dot of the base name,
// or "" when there is no dot or the name ends in one.
func Extension(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))

	dot := strings.LastIndexByte(base, '.')
	if dot < 0 || dot == len(base)-1 {
		return ""
	}

	return strings.ToLower(base[dot+1:])
}

func mimeByName(ext string) string {
	if ext == "" {
		return ""
	}

	return mime.TypeByExtension("." + ext)
}

func categoryOfMIME(mimeType string) Category {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return CategoryText
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, mimePDF):
		return CategoryPDF
	default:
		return CategoryBinary
	}
}

func mimeFor(category Category, ext, byName string) string {
	switch category {
	case CategoryMarkdown:
		return mimeMarkdown
	case CategoryText:
		switch ext {
		case "csv":
			return mimeCSV
		case "tsv":
			return mimeTSV
		}

		return mimeText
	case CategoryImage:
		switch ext {
		case "svg":
			return mimeSVG
		case "jpg":
			return "image/jpeg"
		case "":
		default:
			return "image/" + ext
		}
	case CategoryPDF:
		return mimePDF
	case CategoryWord:
		if ext == "docx" {
			return mimeDocx
		}

		return mimeDoc
	case CategorySpreadsheet:
		switch ext {
		case "xlsx":
			return mimeXlsx
		case "ods":
			return mimeOds
		}

		return mimeXls
	case CategoryPresentation:
		if ext == "pptx" {
			return mimePptx
		}

		return mimePpt
	case CategoryBinary:
	}

	if byName != "" {
		return byName
	}

	return OctetStream
}
