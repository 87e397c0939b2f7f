package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/datasource"
	"github.com/steinarvk/whizdex/lib/dexapi"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/logging"
	"github.com/steinarvk/whizdex/lib/recquery"
	"github.com/steinarvk/whizdex/lib/version"
	"github.com/steinarvk/whizdex/lib/viewstate"
	"github.com/steinarvk/whizdex/lib/watch"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ pflag.Value = (*orderByValue)(nil)

type globalFlags struct {
	configPath string
	sources    sourceOptions
	jsonOutput bool
}

// session is what every command needs: the declarations and an open source.
type session struct {
	cfg    *config.Config
	source datasource.Source
	close  func() error
}

func (g *globalFlags) open(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(ctx, g.configPath)
	if err != nil {
		return nil, err
	}

	src, closer, err := openSource(ctx, g.sources, cfg.Limits)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, source: src, close: closer}, nil
}

func (s *session) load(ctx context.Context, name string) (*config.Collection, []recquery.Record, error) {
	coll, err := s.cfg.Collection(name)
	if err != nil {
		return nil, nil, err
	}

	ctx = logging.WithFields(ctx, zap.String("collection", name))
	records, err := s.source.Records(ctx, coll.Source)
	if err != nil {
		return nil, nil, err
	}
	return coll, records, nil
}

type queryFlags struct {
	search      string
	filters     []string
	orderBy     orderByValue
	page        int
	pageSize    int
	requestFile string
	watch       bool
	debounce    time.Duration
}

func (q *queryFlags) request(collection string, coll *config.Collection) (*dexapi.QueryRequest, error) {
	if q.requestFile != "" {
		req, err := dexapi.ReadQueryRequest(q.requestFile)
		if err != nil {
			return nil, err
		}
		if req.Collection != "" && req.Collection != collection {
			return nil, fmt.Errorf("request is for collection %q, not %q", req.Collection, collection)
		}
		req.Collection = collection
		if req.OrderBy == nil {
			req.OrderBy, err = coll.DefaultOrderBy()
			if err != nil {
				return nil, err
			}
		}
		return req, nil
	}

	filters, err := parseKeyValues(q.filters)
	if err != nil {
		return nil, err
	}

	orderBy := q.orderBy.value
	if orderBy == nil {
		orderBy, err = coll.DefaultOrderBy()
		if err != nil {
			return nil, err
		}
	}

	page, pageSize := q.page, q.pageSize
	return &dexapi.QueryRequest{
		Collection: collection,
		Search:     q.search,
		Filters:    filters,
		OrderBy:    orderBy,
		Page:       &page,
		PageSize:   &pageSize,
	}, nil
}

func runQuery(ctx context.Context, w io.Writer, g *globalFlags, s *session, q *queryFlags, collection string) error {
	logger := logging.FromContext(ctx)

	coll, records, err := s.load(ctx, collection)
	if err != nil {
		return err
	}

	req, err := q.request(collection, coll)
	if err != nil {
		return err
	}

	view := viewstate.New(req.GetPageSize())
	view.SetParams(req.Params())
	view.SetPage(req.GetPage())

	t0 := time.Now()
	page, err := view.Apply(coll.Schema(), records)
	if err != nil {
		return err
	}
	logger.Debug("query complete",
		zap.String("collection", collection),
		zap.Int("input", len(records)),
		zap.Int("matched", page.Total),
		zap.Duration("elapsed", time.Since(t0)))

	if g.jsonOutput {
		resp, err := queryResponse(collection, page, time.Now())
		if err != nil {
			return err
		}
		return writeJSON(w, resp)
	}
	return writeTable(w, coll.Schema(), page)
}

func mkQueryCommand(g *globalFlags) *cobra.Command {
	q := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [collection]",
		Short: "Search, filter and sort the records of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection := args[0]

			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()

			if !q.watch {
				return runQuery(ctx, out, g, s, q, collection)
			}

			if g.sources.dataDir == "" {
				return errors.New("--watch requires --data")
			}
			return watch.Dir(ctx, g.sources.dataDir, q.debounce, func(ctx context.Context, reason string) error {
				fmt.Fprintf(out, "\n# %s (%s)\n", time.Now().Format(time.RFC3339), reason)
				err := runQuery(ctx, out, g, s, q, collection)
				if dexerror.KindOf(err) == dexerror.KindSource {
					// A half-written data file should not end the watch.
					logging.FromContext(ctx).Warn("query failed", zap.Error(err))
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&q.search, "search", "s", "", "free-text search")
	cmd.Flags().StringArrayVarP(&q.filters, "filter", "f", nil, "filter as key=value (repeatable; value \"all\" disables it)")
	cmd.Flags().Var(&q.orderBy, "sort", "sort field, prefixed with - for descending (defaults to the collection's default_sort)")
	cmd.Flags().IntVar(&q.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&q.pageSize, "page-size", 25, "records per page (0 for all)")
	cmd.Flags().StringVar(&q.requestFile, "request", "", "read the query from a JSON request file instead of flags")
	cmd.Flags().BoolVar(&q.watch, "watch", false, "re-run whenever files under --data change")
	cmd.Flags().DurationVar(&q.debounce, "debounce", 500*time.Millisecond, "quiet period before re-running in --watch mode")

	return cmd
}

func mkValuesCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "values [collection] [field]",
		Short: "List the distinct values of a field, with counts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collection, field := args[0], args[1]

			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			coll, records, err := s.load(ctx, collection)
			if err != nil {
				return err
			}

			counts, err := recquery.CountBy(coll.Schema(), records, field)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.jsonOutput {
				return writeJSON(out, dexapi.FacetResponse{Collection: collection, Field: field, Values: counts})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Value, c.Count)
			}
			return tw.Flush()
		},
	}
}

func summarize(ctx context.Context, s *session) ([]dexapi.CollectionSummary, error) {
	names := s.cfg.CollectionNames()
	summaries := make([]dexapi.CollectionSummary, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			coll, records, err := s.load(ctx, name)
			if err != nil {
				return fmt.Errorf("collection %q: %w", name, err)
			}
			schema := coll.Schema()
			summaries[i] = dexapi.CollectionSummary{
				Name:        name,
				NumRecords:  len(records),
				Searchable:  schema.Search,
				Filterable:  schema.Filters,
				DefaultSort: coll.DefaultSort,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func mkCollectionsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List declared collections and how many records each has",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			summaries, err := summarize(ctx, s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.jsonOutput {
				return writeJSON(out, summaries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tRECORDS\tSEARCH\tFILTERS\tDEFAULT SORT")
			for _, sum := range summaries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					sum.Name, sum.NumRecords,
					strings.Join(sum.Searchable, ","),
					strings.Join(sum.Filterable, ","),
					sum.DefaultSort)
			}
			return tw.Flush()
		},
	}
}

func mkVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := version.GetInfo()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:      %s\n", info.VersionString())
			if info.CommitHash != "" {
				dirtyFlag := ""
				if info.DirtyCommit {
					dirtyFlag = " (dirty)"
				}
				fmt.Fprintf(out, "Commit:       %s%s\n", info.CommitHash, dirtyFlag)
				fmt.Fprintf(out, "Commit time:  %s\n", info.CommitTime)
			}
			if info.BinaryHash != "" {
				fmt.Fprintf(out, "Binary hash:  %s\n", info.BinaryHash)
			}
			fmt.Fprintf(out, "Go:           %s\n", info.GoVersion)

			return nil
		},
	}
}

// NewRootCommand builds the command tree. Flags default to the values in env.
func NewRootCommand(env *Env) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "whizdex",
		Short:         "Query WhizCart admin collections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", env.ConfigPath, "collection declarations (YAML file, or inline JSON)")
	pf.StringVar(&g.sources.dataDir, "data", env.DataDir, "directory of <collection>.jsonl files (default: built-in fixtures)")
	pf.StringVar(&g.sources.sqlDriver, "sql-driver", env.SQLDriver, "read records from SQL instead: sqlite3 or postgres")
	pf.StringVar(&g.sources.sqlDSN, "sql-dsn", env.SQLDSN, "SQL data source name")
	pf.BoolVar(&g.jsonOutput, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(
		mkQueryCommand(g),
		mkValuesCommand(g),
		mkCollectionsCommand(g),
		mkVersionCommand(),
	)

	return rootCmd
}

func exitCode(err error) int {
	switch dexerror.KindOf(err) {
	case dexerror.KindPrecondition, dexerror.KindConfig:
		return 2
	default:
		return 1
	}
}

func Main() {
	ctx := context.Background()

	env, err := LoadEnv(ctx, envconfig.OsLookuper())
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(env.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	ctx = logging.NewContextWithLogger(ctx, logger, env.Verbose)

	rootCmd := NewRootCommand(env)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if field, ok := dexerror.FieldOf(err); ok {
			fmt.Fprintln(os.Stderr, "offending field:", field)
		}
		logger.Sync()
		os.Exit(exitCode(err))
	}
}
