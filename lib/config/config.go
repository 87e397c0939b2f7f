package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/steinarvk/whizdex/lib/dexapi"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/flatten"
	"github.com/steinarvk/whizdex/lib/recquery"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Limits      Limits                 `yaml:"limits"`
	Collections map[string]*Collection `yaml:"collections"`
}

func (c *Config) setDefaults() error {
	if err := c.Limits.setDefaults(); err != nil {
		return fmt.Errorf("error setting defaults for limits: %w", err)
	}

	for name, coll := range c.Collections {
		if coll == nil {
			continue
		}
		if coll.Source == "" {
			coll.Source = name
		}
		coll.name = name
	}

	return nil
}

type Limits struct {
	MaxBytesPerRecord       int `yaml:"max_bytes_per_record"`
	MaxRecordsPerCollection int `yaml:"max_records_per_collection"`
	MaxFieldsPerRecord      int `yaml:"max_fields_per_record"`
	CapturedValueLength     int `yaml:"captured_value_length_limit"`
}

func (l *Limits) setDefaults() error {
	if l.MaxBytesPerRecord == 0 {
		l.MaxBytesPerRecord = 1024 * 1024
	}
	if l.MaxRecordsPerCollection == 0 {
		l.MaxRecordsPerCollection = 100000
	}
	if l.MaxFieldsPerRecord == 0 {
		l.MaxFieldsPerRecord = 1000
	}
	if l.CapturedValueLength == 0 {
		l.CapturedValueLength = 4096
	}

	return nil
}

// Flattener returns a flattener configured with these limits.
func (l Limits) Flattener() flatten.Flattener {
	return flatten.Flattener{
		MaxSerializedLength:       l.MaxBytesPerRecord,
		MaxExploredObjectElements: l.MaxFieldsPerRecord,
		MaxTotalFields:            l.MaxFieldsPerRecord,
		MaxCapturedValueLength:    l.CapturedValueLength,
	}
}

type Field struct {
	Type   recquery.FieldType `yaml:"type"`
	Search bool               `yaml:"search"`
	Filter bool               `yaml:"filter"`
}

type Collection struct {
	name string

	Description string            `yaml:"description"`
	Source      string            `yaml:"source"`
	Fields      map[string]*Field `yaml:"fields"`
	DefaultSort string            `yaml:"default_sort"`
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) fieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collection) Schema() recquery.Schema {
	schema := recquery.Schema{
		Name:   c.name,
		Fields: map[string]recquery.FieldType{},
	}
	for _, name := range c.fieldNames() {
		field := c.Fields[name]
		t := field.Type
		if t == "" {
			t = recquery.FieldString
		}
		schema.Fields[name] = t
		if field.Search {
			schema.Search = append(schema.Search, name)
		}
		if field.Filter {
			schema.Filters = append(schema.Filters, name)
		}
	}
	return schema
}

func (c *Collection) DefaultOrderBy() (*dexapi.OrderBy, error) {
	return dexapi.ParseOrderBy(c.DefaultSort)
}

var sourceNameRegexp = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (c *Collection) validate() error {
	var result error

	if !sourceNameRegexp.MatchString(c.Source) {
		result = multierror.Append(result, fmt.Errorf("invalid source name %q", c.Source))
	}

	if len(c.Fields) == 0 {
		result = multierror.Append(result, errors.New("no fields declared"))
	}

	for _, name := range c.fieldNames() {
		field := c.Fields[name]
		if field == nil {
			result = multierror.Append(result, fmt.Errorf("field %q has no declaration", name))
			continue
		}
		if field.Type != "" && !field.Type.Valid() {
			result = multierror.Append(result, fmt.Errorf("field %q has unknown type %q", name, field.Type))
		}
	}

	orderBy, err := c.DefaultOrderBy()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid default_sort: %w", err))
	} else if orderBy != nil {
		if _, ok := c.Fields[orderBy.Field]; !ok {
			result = multierror.Append(result, fmt.Errorf("default_sort names undeclared field %q", orderBy.Field))
		}
	}

	return result
}

func (c Config) Validate() error {
	var result error

	if len(c.Collections) == 0 {
		result = multierror.Append(result, errors.New("no collections configured"))
	}

	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		coll := c.Collections[name]
		if coll == nil {
			result = multierror.Append(result, fmt.Errorf("collection %q has no declaration", name))
			continue
		}
		if err := coll.validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("collection %q: %w", name, err))
		}
	}

	return result
}

func (c *Config) CollectionNames() []string {
	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Collection(name string) (*Collection, error) {
	coll, ok := c.Collections[name]
	if !ok {
		return nil, dexerror.New(
			dexerror.WithKind(dexerror.KindConfig),
			dexerror.WithErrorID("unknown_collection"),
			dexerror.WithPublicMessage(fmt.Sprintf("no such collection: %q", name)),
			dexerror.WithPublicData("collection", name),
			dexerror.WithPublicData("known", c.CollectionNames()),
		)
	}
	return coll, nil
}

func Parse(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, configError("error unmarshaling config", err)
	}

	if err := config.setDefaults(); err != nil {
		return nil, configError("error setting defaults", err)
	}

	if err := config.Validate(); err != nil {
		return nil, configError("validation error", err)
	}

	return &config, nil
}

// Load reads a config file, or parses the argument itself when it is inline
// JSON.
func Load(filenameOrData string) (*Config, error) {
	if strings.HasPrefix(strings.TrimSpace(filenameOrData), "{") {
		return Parse([]byte(filenameOrData))
	}

	content, err := os.ReadFile(filenameOrData)
	if err != nil {
		return nil, configError("error reading config", err)
	}
	return Parse(content)
}

func configError(message string, err error) error {
	return dexerror.New(
		dexerror.WithKind(dexerror.KindConfig),
		dexerror.WithErrorID("invalid_config"),
		dexerror.WithPublicMessage(message),
		dexerror.WithCause(err),
	)
}
