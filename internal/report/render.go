package report

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lukasjarosch/go-docx"

	"rlis-backend/internal/inventory"
)

var (
	ErrBadTemplate     = errors.New("template is not a valid document")
	ErrMissingTemplate = errors.New("no template for category")
)

var (
	// Word may split a placeholder across runs, so markup between the
	// braces is allowed and discarded when collecting keys.
	placeholderRe = regexp.MustCompile(`\{((?:[^{}<]|<[^>]*>)*)\}`)
	markupRe      = regexp.MustCompile(`<[^>]*>`)
	keyRe         = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Renderer fills per-category document templates from a directory.
type Renderer struct {
	Dir string
}

// TemplatePath returns the template file used for category.
func (r *Renderer) TemplatePath(category inventory.Category) string {
	return filepath.Join(r.Dir, string(category)+".docx")
}

// Render fills the category template with p.
func (r *Renderer) Render(category inventory.Category, p Payload) ([]byte, error) {
	raw, err := os.ReadFile(r.TemplatePath(category))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, category)
		}
		return nil, fmt.Errorf("read template: %w", err)
	}
	var buf bytes.Buffer
	if err := Fill(raw, p, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fill writes the template to w with every {key} placeholder in the body,
// headers and footers replaced by its value. Keys the payload does not
// carry become empty strings.
func Fill(template []byte, p Payload, w io.Writer) error {
	keys, err := templateKeys(template)
	if err != nil {
		return err
	}

	doc, err := docx.OpenBytes(template)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}
	defer doc.Close()

	values := make(docx.PlaceholderMap, len(keys))
	for _, key := range keys {
		values[key] = p[key]
	}
	if err := doc.ReplaceAll(values); err != nil {
		return fmt.Errorf("fill template: %w", err)
	}
	return doc.Write(w)
}

// templateKeys lists the placeholder keys used in the document body,
// headers and footers.
func templateKeys(template []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}

	var keys []string
	seen := make(map[string]bool)
	hasBody := false
	for _, f := range zr.File {
		if !templated(f.Name) {
			continue
		}
		if f.Name == "word/document.xml" {
			hasBody = true
		}
		body, err := readZipPart(f)
		if err != nil {
			return nil, err
		}
		for _, m := range placeholderRe.FindAllSubmatch(body, -1) {
			key := strings.TrimSpace(markupRe.ReplaceAllString(string(m[1]), ""))
			if keyRe.MatchString(key) && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	if !hasBody {
		return nil, fmt.Errorf("%w: missing word/document.xml", ErrBadTemplate)
	}
	return keys, nil
}

func readZipPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadTemplate, f.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadTemplate, f.Name, err)
	}
	return body, nil
}

func templated(name string) bool {
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return base == "document.xml" ||
		strings.HasPrefix(base, "header") ||
		strings.HasPrefix(base, "footer")
}
