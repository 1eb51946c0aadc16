// Package resume extracts plain text from uploaded résumé documents.
package resume

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported file format, use PDF or DOCX")
	ErrNoText             = errors.New("no text content found in document")
	ErrUnreadableDocument = errors.New("document could not be read")
	ErrDocumentTooLarge   = errors.New("document content is too large")
)

// MaxUploadBytes bounds the accepted document size.
const MaxUploadBytes = 10 << 20

// MaxDocumentXMLBytes bounds the decompressed DOCX body.
const MaxDocumentXMLBytes = 20 << 20

// Extract returns the text of a PDF or DOCX document, chosen by file extension.
func Extract(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: read pdf: %v", ErrUnreadableDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrUnreadableDocument, err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

const docxBody = "word/document.xml"

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", ErrUnreadableDocument, err)
	}
	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		if f.UncompressedSize64 > MaxDocumentXMLBytes {
			return "", ErrDocumentTooLarge
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", ErrUnreadableDocument, docxBody, err)
		}
		defer rc.Close()

		// The zip header can understate the size.
		lr := &io.LimitedReader{R: rc, N: MaxDocumentXMLBytes + 1}
		text, err := documentText(lr)
		if lr.N <= 0 {
			return "", ErrDocumentTooLarge
		}
		return text, err
	}
	return "", fmt.Errorf("%w: %s not found", ErrUnreadableDocument, docxBody)
}

// documentText walks WordprocessingML and keeps the contents of w:t runs,
// ending each paragraph with a newline.
func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse docx: %v", ErrUnreadableDocument, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
