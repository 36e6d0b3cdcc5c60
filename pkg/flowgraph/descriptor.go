package flowgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// validate is a singleton validator instance
	validate = validator.New()

	entityIndexPattern = regexp.MustCompile(`\.(Nodes|Links)\[(\d+)\]`)
)

func init() {
	// Report fields by their wire names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// NodeSpec is the external description of a node
type NodeSpec struct {
	ID           string   `json:"id" yaml:"id" validate:"required"`
	DisplayName  string   `json:"displayName" yaml:"displayName"`
	Category     Category `json:"category" yaml:"category"`
	Sector       string   `json:"sector,omitempty" yaml:"sector,omitempty"`
	TotalInflow  float64  `json:"totalInflow" yaml:"totalInflow" validate:"gte=0"`
	TotalOutflow float64  `json:"totalOutflow" yaml:"totalOutflow" validate:"gte=0"`
	// Position seeds the layout; nodes without one are placed by the seeding layout
	Position *Vec `json:"position,omitempty" yaml:"position,omitempty"`
	// Pinned fixes the node for the lifetime of the graph
	Pinned *Vec `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// LinkSpec is the external description of a link
type LinkSpec struct {
	Source   string   `json:"source" yaml:"source" validate:"required"`
	Target   string   `json:"target" yaml:"target" validate:"required"`
	Value    float64  `json:"value" yaml:"value" validate:"gte=0"`
	FlowKind FlowKind `json:"flowKind,omitempty" yaml:"flowKind,omitempty"`
	AuxLabel string   `json:"auxLabel,omitempty" yaml:"auxLabel,omitempty"`
}

// Descriptor is the construction input of a flow network
type Descriptor struct {
	Nodes              []NodeSpec `json:"nodes" yaml:"nodes" validate:"dive"`
	Links              []LinkSpec `json:"links" yaml:"links" validate:"dive"`
	InitialFocusNodeID string     `json:"initialFocusNodeId,omitempty" yaml:"initialFocusNodeId,omitempty"`
}

// Format identifies a descriptor encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeDescriptor reads a descriptor in the given format
func DecodeDescriptor(r io.Reader, format Format) (Descriptor, error) {
	var desc Descriptor
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&desc); err != nil && !errors.Is(err, io.EOF) {
			return Descriptor{}, fmt.Errorf("decode yaml descriptor: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&desc); err != nil {
			return Descriptor{}, fmt.Errorf("decode json descriptor: %w", err)
		}
	default:
		return Descriptor{}, fmt.Errorf("unsupported descriptor format %q", format)
	}
	return desc, nil
}

// LoadDescriptorFile reads a descriptor from disk
func LoadDescriptorFile(path string) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, err
	}
	defer f.Close()
	return DecodeDescriptor(f, FormatFromPath(path))
}

// validateDescriptor runs the struct-tag checks and maps each failure to a ConstructionError
func validateDescriptor(desc *Descriptor) ConstructionErrors {
	err := validate.Struct(desc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ConstructionErrors{NewError("validate").Cause(fmt.Errorf("%w: %v", ErrInvalidInput, err)).Build()}
	}

	out := make(ConstructionErrors, 0, len(verrs))
	for _, fe := range verrs {
		entity, index := entityFromNamespace(fe.StructNamespace())
		b := NewError("validate").Field(fe.Field()).Cause(causeForTag(fe))
		switch entity {
		case "node":
			b.Node(index, desc.Nodes[index].ID)
		case "link":
			l := desc.Links[index]
			b.Link(index, l.Source, l.Target)
		}
		out = append(out, b.Build())
	}
	return out
}

func entityFromNamespace(ns string) (string, int) {
	m := entityIndexPattern.FindStringSubmatch(ns)
	if m == nil {
		return "", 0
	}
	idx, _ := strconv.Atoi(m[2])
	if m[1] == "Nodes" {
		return "node", idx
	}
	return "link", idx
}

func causeForTag(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return ErrEmptyID
	case "gte":
		if v, ok := fe.Value().(float64); ok && math.IsNaN(v) {
			return ErrNonFiniteValue
		}
		return ErrNegativeValue
	default:
		return fmt.Errorf("%w: failed %q", ErrInvalidInput, fe.Tag())
	}
}
