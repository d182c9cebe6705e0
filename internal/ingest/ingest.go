// Package ingest parses index document XML into store documents.
//
// The format is a `documents` root carrying a version attribute, holding
// `document` elements made of `field` elements. The version decides the
// field attribute vocabulary once, at the root; versions 3.0 and 2.0 share
// one vocabulary and anything else is handled as 1.0.
package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/facet"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// IDField names the field whose value becomes the document ID instead of
// being indexed.
const IDField = "_id"

// compactDate is the form date values are indexed in, so range facets can
// classify them by prefix truncation.
const compactDate = "20060102150405"

// Parser turns document XML into store documents.
type Parser struct {
	log *slog.Logger
}

// NewParser creates a parser.
func NewParser(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

// ParseFile parses the XML file at path. Documents without an explicit ID
// get one derived from the file name and their position.
func (p *Parser) ParseFile(path string) ([]*store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("opening document file %q", path), err)
	}
	defer func() { _ = f.Close() }()

	docs, err := p.Parse(f)
	if err != nil {
		return nil, errors.New(errors.ErrCodeParseFailed,
			fmt.Sprintf("parsing document file %q", path), err)
	}
	for i, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("%s#%d", path, i)
		}
	}
	return docs, nil
}

// Parse reads document XML from r.
func (p *Parser) Parse(r io.Reader) ([]*store.Document, error) {
	dec := xml.NewDecoder(r)

	fields, err := p.rootVocabulary(dec)
	if err != nil {
		return nil, err
	}

	var docs []*store.Document
	var doc *store.Document
	var field *fieldAttrs
	var value strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(errors.ErrCodeParseFailed, "reading document XML", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "document":
				doc = &store.Document{}
			case "field":
				if doc == nil {
					return nil, errors.New(errors.ErrCodeParseFailed,
						"field element outside a document", nil)
				}
				field = fields(t.Attr)
				value.Reset()
			}
		case xml.CharData:
			if field != nil {
				value.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "field":
				if doc != nil && field != nil {
					p.addField(doc, field, value.String())
				}
				field = nil
			case "document":
				if doc != nil {
					if len(doc.Fields) == 0 && doc.ID == "" {
						p.log.Warn("skipping empty document")
					} else {
						docs = append(docs, doc)
					}
					doc = nil
				}
			}
		}
	}
	return docs, nil
}

// rootVocabulary consumes tokens up to the `documents` root and returns the
// field attribute vocabulary its version selects.
func (p *Parser) rootVocabulary(dec *xml.Decoder) (func([]xml.Attr) *fieldAttrs, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeParseFailed, "no documents element found", nil)
		}
		if err != nil {
			return nil, errors.New(errors.ErrCodeParseFailed, "reading document XML", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "documents" {
			return nil, errors.New(errors.ErrCodeParseFailed,
				fmt.Sprintf("unexpected root element %q", start.Name.Local), nil)
		}
		version := attr(start.Attr, "version")
		switch version {
		case "3.0", "2.0":
			return currentFields, nil
		default:
			if version != "1.0" && version != "" {
				p.log.Warn("unknown documents version, assuming 1.0",
					slog.String("version", version))
			}
			return legacyFields, nil
		}
	}
}

// fieldAttrs is the normalized field declaration, whatever the vocabulary.
type fieldAttrs struct {
	name        string
	stored      bool
	indexed     bool
	tokenized   bool
	numericType string
	dateFormat  string
	resolution  facet.Resolution
	hasRes      bool
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func isTrue(v string) bool {
	return v == "true" || v == "yes"
}

// currentFields reads the 2.0/3.0 vocabulary.
func currentFields(attrs []xml.Attr) *fieldAttrs {
	f := &fieldAttrs{
		name:        attr(attrs, "name"),
		stored:      isTrue(attr(attrs, "store")),
		indexed:     true,
		numericType: attr(attrs, "numeric-type"),
		dateFormat:  attr(attrs, "date-format"),
	}
	if v := attr(attrs, "index"); v != "" {
		f.indexed = isTrue(v)
	}
	if v := attr(attrs, "tokenize"); v == "" {
		f.tokenized = isTrue(attr(attrs, "tokenise"))
	} else {
		f.tokenized = isTrue(v)
	}
	f.resolution, f.hasRes = parseResolution(attr(attrs, "date-resolution"))
	return f
}

// legacyFields reads the 1.0 vocabulary, where the index attribute carries
// the tokenization too.
func legacyFields(attrs []xml.Attr) *fieldAttrs {
	f := &fieldAttrs{
		name:       attr(attrs, "name"),
		dateFormat: attr(attrs, "date-format"),
	}
	switch attr(attrs, "store") {
	case "yes", "compress":
		f.stored = true
	}
	switch attr(attrs, "index") {
	case "tokenised", "tokenized":
		f.indexed = true
		f.tokenized = true
	case "un-tokenised", "un-tokenized", "":
		f.indexed = true
	case "no":
		f.indexed = false
	}
	f.resolution, f.hasRes = parseResolution(attr(attrs, "date-resolution"))
	return f
}

func parseResolution(v string) (facet.Resolution, bool) {
	switch v {
	case "year":
		return facet.Year, true
	case "month":
		return facet.Month, true
	case "day":
		return facet.Day, true
	case "hour":
		return facet.Hour, true
	case "minute":
		return facet.Minute, true
	case "second":
		return facet.Second, true
	default:
		return 0, false
	}
}

// addField normalizes the raw element text and appends the field. The ID
// field sets the document ID instead. Unparseable numeric and date values
// are dropped with a warning rather than poisoning the whole document.
func (p *Parser) addField(doc *store.Document, f *fieldAttrs, raw string) {
	value := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	if f.name == "" {
		p.log.Warn("skipping field without a name")
		return
	}
	if f.name == IDField {
		doc.ID = value
		return
	}

	field := store.Field{
		Name:      f.name,
		Value:     value,
		Stored:    f.stored,
		Indexed:   f.indexed,
		Tokenized: f.tokenized,
	}

	if f.numericType != "" {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			p.log.Warn("dropping non-numeric value",
				slog.String("field", f.name),
				slog.String("value", value))
			return
		}
		field.Value = n
	} else if f.dateFormat != "" {
		ts, err := time.Parse(f.dateFormat, value)
		if err != nil {
			p.log.Warn("dropping unparseable date value",
				slog.String("field", f.name),
				slog.String("value", value))
			return
		}
		compact := ts.Format(compactDate)
		if f.hasRes {
			compact = f.resolution.Truncate(compact)
		}
		field.Value = compact
	}

	doc.Fields = append(doc.Fields, field)
}
