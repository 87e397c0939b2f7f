package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/datasource"
	"github.com/steinarvk/whizdex/lib/dexapi"
	"github.com/steinarvk/whizdex/lib/fixtures"
	"github.com/steinarvk/whizdex/lib/logging"
	"go.uber.org/zap"
)

type Env struct {
	ConfigPath string `env:"WHIZDEX_CONFIG"`
	DataDir    string `env:"WHIZDEX_DATA_DIR"`
	SQLDriver  string `env:"WHIZDEX_SQL_DRIVER"`
	SQLDSN     string `env:"WHIZDEX_SQL_DSN"`
	Verbose    bool   `env:"WHIZDEX_VERBOSE"`
}

func LoadEnv(ctx context.Context, lookuper envconfig.Lookuper) (*Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &env, lookuper); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}
	return &env, nil
}

func DefaultConfigFilename() (string, error) {
	return homedir.Expand("~/.config/whizdex/collections.yaml")
}

// loadConfig picks the first of: explicit path, the default config file if it
// exists, and the embedded declarations for the fixture data.
func loadConfig(ctx context.Context, explicit string) (*config.Config, error) {
	logger := logging.FromContext(ctx)

	if explicit != "" {
		logger.Debug("loading config", zap.String("source", "explicit"))
		return config.Load(explicit)
	}

	fn, err := DefaultConfigFilename()
	if err != nil {
		logger.Warn("failed to determine default config filename", zap.Error(err))
	} else if _, err := os.Stat(fn); err == nil {
		logger.Debug("loading config", zap.String("filename", fn))
		return config.Load(fn)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	logger.Debug("loading embedded config")
	return config.Parse(fixtures.CollectionsYAML)
}

type sourceOptions struct {
	dataDir   string
	sqlDriver string
	sqlDSN    string
}

func openSource(ctx context.Context, opts sourceOptions, limits config.Limits) (datasource.Source, func() error, error) {
	noop := func() error { return nil }

	switch {
	case opts.sqlDriver != "" || opts.sqlDSN != "":
		if opts.sqlDriver == "" || opts.sqlDSN == "" {
			return nil, nil, errors.New("both a SQL driver and a DSN are required")
		}
		src, err := datasource.OpenSQL(ctx, datasource.SQLParams{Driver: opts.sqlDriver, DSN: opts.sqlDSN}, limits)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case opts.dataDir != "":
		return datasource.NewDirSource(opts.dataDir, limits), noop, nil
	default:
		return datasource.NewFixtureSource(limits), noop, nil
	}
}

// orderByValue adapts dexapi.OrderBy to a pflag.Value.
type orderByValue struct {
	value *dexapi.OrderBy
}

func (o *orderByValue) String() string {
	if o.value == nil {
		return ""
	}
	return o.value.String()
}

func (o *orderByValue) Set(s string) error {
	parsed, err := dexapi.ParseOrderBy(s)
	if err != nil {
		return err
	}
	o.value = parsed
	return nil
}

func (o *orderByValue) Type() string {
	return "[-]field"
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	rv := map[string]string{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("filter %q is not of the form key=value", pair)
		}
		rv[strings.TrimSpace(k)] = v
	}
	return rv, nil
}
