package revenue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	datasetVersionV1 = "1"
	// DatasetVersion is the current dataset document format version.
	DatasetVersion = datasetVersionV1

	datasetSchemaName = "revenue.dataset.json"
)

const datasetSchema = `{
  "type": "object",
  "required": ["years"],
  "properties": {
    "version": {"type": "string"},
    "current_year": {"type": "string"},
    "prior_gross_income": {"type": "number", "minimum": 0},
    "years": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["year", "samples"],
        "properties": {
          "year": {"type": "string", "minLength": 1},
          "samples": {
            "type": "array",
            "minItems": 12,
            "maxItems": 12,
            "items": {
              "type": "object",
              "required": ["month", "revenue"],
              "properties": {
                "month": {"type": "string", "minLength": 1},
                "revenue": {"type": "number", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

// DatasetDocument is the YAML/JSON representation of a revenue dataset.
type DatasetDocument struct {
	Version          string       `json:"version" yaml:"version"`
	CurrentYear      string       `json:"current_year,omitempty" yaml:"current_year,omitempty"`
	PriorGrossIncome float64      `json:"prior_gross_income" yaml:"prior_gross_income"`
	Years            []YearBucket `json:"years" yaml:"years"`
	Source           string       `json:"-" yaml:"-"`
}

// Dataset converts the document into the in-memory model.
func (doc *DatasetDocument) Dataset() Dataset {
	return Dataset{
		Buckets:          doc.Years,
		PriorGrossIncome: doc.PriorGrossIncome,
		CurrentYear:      doc.CurrentYear,
	}.Clone()
}

func (doc *DatasetDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = datasetVersionV1
	}
}

// NewDatasetDocument wraps a dataset for encoding.
func NewDatasetDocument(dataset Dataset) *DatasetDocument {
	clone := dataset.Clone()
	return &DatasetDocument{
		Version:          DatasetVersion,
		CurrentYear:      clone.CurrentYear,
		PriorGrossIncome: clone.PriorGrossIncome,
		Years:            clone.Buckets,
	}
}

// DatasetValidator checks dataset documents against the embedded JSON schema.
type DatasetValidator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

var defaultDatasetValidator = &DatasetValidator{}

// Validate runs the schema and the structural checks against doc.
func (v *DatasetValidator) Validate(doc *DatasetDocument) error {
	if doc == nil {
		return errors.New("revenue: dataset document is nil")
	}
	if doc.Version != datasetVersionV1 {
		return fmt.Errorf("revenue: unsupported dataset version %q", doc.Version)
	}
	schema, err := v.schema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("revenue: marshal dataset: %w", err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("revenue: normalize dataset: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("revenue: dataset failed validation: %w", err)
	}
	return doc.Dataset().Validate()
}

func (v *DatasetValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(datasetSchemaName, bytes.NewReader([]byte(datasetSchema))); err != nil {
			v.err = fmt.Errorf("revenue: load dataset schema: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile(datasetSchemaName)
		if v.err != nil {
			v.err = fmt.Errorf("revenue: compile dataset schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}

// DecodeDataset reads a YAML or JSON dataset document from r and validates it.
func DecodeDataset(r io.Reader) (*DatasetDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc DatasetDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("revenue: dataset document is empty")
		}
		return nil, fmt.Errorf("revenue: parse dataset: %w", err)
	}
	doc.applyDefaults()
	if err := defaultDatasetValidator.Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadDatasetFile loads and validates a dataset document from disk.
func ReadDatasetFile(path string) (*DatasetDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("revenue: open dataset %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeDataset(f)
	if err != nil {
		return nil, fmt.Errorf("revenue: decode dataset %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// WriteDatasetFile encodes dataset as YAML at path.
func WriteDatasetFile(path string, dataset Dataset) (err error) {
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("revenue: create dataset %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("revenue: close dataset %s: %w", path, cerr))
		}
	}()
	return EncodeDataset(file, dataset)
}

// EncodeDataset writes dataset to w as a YAML document. Errors from the final
// flush are returned.
func EncodeDataset(w io.Writer, dataset Dataset) (err error) {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer func() {
		if cerr := encoder.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("revenue: flush dataset: %w", cerr))
		}
	}()
	if err := encoder.Encode(NewDatasetDocument(dataset)); err != nil {
		return fmt.Errorf("revenue: write dataset: %w", err)
	}
	return nil
}

// FileDatasetSource reads the dataset from a document on disk on every load.
type FileDatasetSource struct {
	Path string
}

// LoadDataset implements DatasetSource.
func (s FileDatasetSource) LoadDataset(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	if s.Path == "" {
		return Dataset{}, errors.New("revenue: dataset path is required")
	}
	doc, err := ReadDatasetFile(s.Path)
	if err != nil {
		return Dataset{}, err
	}
	return doc.Dataset(), nil
}
