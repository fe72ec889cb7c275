// Package input decodes posting files (YAML or JSON) into domain postings.
package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"postingcore/internal/core/types"
	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/domain/posting"
)

// File is a posting file: one or more postings.
type File struct {
	Postings []PostingDoc `yaml:"postings" json:"postings" validate:"dive"`
}

// PostingDoc is the wire form of a posting.
type PostingDoc struct {
	Reference string    `yaml:"reference" json:"reference"`
	Currency  string    `yaml:"currency" json:"currency" validate:"omitempty,alpha,len=3"`
	Lines     []LineDoc `yaml:"lines" json:"lines" validate:"dive"`
}

// LineDoc is the wire form of a posting line. Field values are strings and
// are parsed according to the field kind.
type LineDoc struct {
	DocumentType string            `yaml:"document_type" json:"document_type"`
	Account      string            `yaml:"account" json:"account"`
	Debit        string            `yaml:"debit" json:"debit"`
	Credit       string            `yaml:"credit" json:"credit"`
	Fields       map[string]string `yaml:"fields" json:"fields"`
	Persisted    map[string]string `yaml:"persisted" json:"persisted"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Format of a posting file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks the format from the file extension. Anything that is not
// .json is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ReadFile reads a posting file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read posting file: %w", err)
	}
	f, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a posting file. A document without a postings key is read
// as a single posting.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	var single PostingDoc

	switch format {
	case FormatJSON:
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode posting file: %w", err)
		}
		if _, ok := probe["postings"]; ok {
			if err := json.Unmarshal(data, &f); err != nil {
				return nil, fmt.Errorf("decode posting file: %w", err)
			}
		} else {
			if err := json.Unmarshal(data, &single); err != nil {
				return nil, fmt.Errorf("decode posting file: %w", err)
			}
			f.Postings = []PostingDoc{single}
		}
	default:
		var probe map[string]yaml.Node
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode posting file: %w", err)
		}
		_, multi := probe["postings"]
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var err error
		if multi {
			err = dec.Decode(&f)
		} else {
			err = dec.Decode(&single)
			f.Postings = []PostingDoc{single}
		}
		// An empty file decodes to io.EOF and means one empty posting.
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode posting file: %w", err)
		}
	}

	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid posting file: %w", err)
	}
	return &f, nil
}

// ToPosting converts the wire form to a domain posting.
func (d PostingDoc) ToPosting() (posting.Posting, error) {
	p := posting.Posting{
		Reference: d.Reference,
		Currency:  strings.ToUpper(strings.TrimSpace(d.Currency)),
		Lines:     make([]posting.Line, 0, len(d.Lines)),
	}

	var problems []error
	for i, ld := range d.Lines {
		line, err := ld.ToLine()
		if err != nil {
			problems = append(problems, fmt.Errorf("line %d: %w", i, err))
			continue
		}
		p.Lines = append(p.Lines, line)
	}
	if len(problems) > 0 {
		return posting.Posting{}, errors.Join(problems...)
	}
	return p, nil
}

// ToLine converts one line.
func (d LineDoc) ToLine() (posting.Line, error) {
	line := posting.Line{
		Context: fieldrules.Context{DocumentType: d.DocumentType, AccountID: d.Account},
	}

	var err error
	if line.Debit, err = types.NewMoneyFromString(d.Debit); err != nil {
		return posting.Line{}, fmt.Errorf("debit: %w", err)
	}
	if line.Credit, err = types.NewMoneyFromString(d.Credit); err != nil {
		return posting.Line{}, fmt.Errorf("credit: %w", err)
	}
	if line.Values, err = parseValues(d.Fields); err != nil {
		return posting.Line{}, err
	}
	if d.Persisted != nil {
		persisted, err := parseValues(d.Persisted)
		if err != nil {
			return posting.Line{}, fmt.Errorf("persisted: %w", err)
		}
		line.Persisted = &persisted
	}
	return line, nil
}

func parseValues(raw map[string]string) (posting.Values, error) {
	var values posting.Values
	var problems []error
	for name, s := range raw {
		f, err := fieldrules.ParseField(name)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		v, err := ParseValue(f, s)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		values.Set(f, v)
	}
	return values, errors.Join(problems...)
}

// ParseValue parses the textual value of f by its kind. Blank input is
// kept as text so emptiness checks see it as empty.
func ParseValue(f fieldrules.Field, s string) (posting.Value, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return posting.Text(s), nil
	}
	switch f.Kind() {
	case fieldrules.KindNumeric:
		d, err := types.NewMoneyFromString(trimmed)
		if err != nil {
			return posting.Value{}, fmt.Errorf("field %s: %w", f, err)
		}
		return posting.Number(d), nil
	case fieldrules.KindDate:
		t, err := time.Parse(time.DateOnly, trimmed)
		if err != nil {
			return posting.Value{}, fmt.Errorf("field %s: date must be YYYY-MM-DD: %w", f, err)
		}
		return posting.Date(t), nil
	default:
		return posting.Text(s), nil
	}
}
