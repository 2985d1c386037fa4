package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tabsync/internal/config"
	"github.com/vvka-141/tabsync/internal/infer"
	"github.com/vvka-141/tabsync/internal/logging"
	"github.com/vvka-141/tabsync/internal/render"
	"github.com/vvka-141/tabsync/internal/schema"
	"github.com/vvka-141/tabsync/internal/source"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Profile a file and show the schema a load would create",
	Long: `Inspect runs the reader and the type inferrer over a source file and
prints the table structure a load would produce. No database is touched
and no credentials are required.

Examples:
  tabsync inspect -f data/users.csv
  tabsync inspect -f report.xlsx --sheet "Q3"
  tabsync inspect -f data/codes.csv --preserve-leading-zeros`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

type inspectFlagValues struct {
	file          string
	table         string
	schemaName    string
	sheet         string
	delimiter     string
	keys          []string
	noSurrogate   bool
	preserveZeros bool
	config        string
}

var inspectFlags inspectFlagValues

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFlags.file, "file", "f", "",
		"Source file to profile (required)")
	inspectCmd.Flags().StringVarP(&inspectFlags.table, "table", "t", "",
		"Table name shown in the preview (default: source file base name)")
	inspectCmd.Flags().StringVarP(&inspectFlags.schemaName, "schema", "s", "",
		"Schema shown in the preview (default public)")
	inspectCmd.Flags().StringVar(&inspectFlags.sheet, "sheet", "",
		"Worksheet name for spreadsheet sources (default: first sheet)")
	inspectCmd.Flags().StringVar(&inspectFlags.delimiter, "delimiter", "",
		"Field delimiter for delimited text sources")
	inspectCmd.Flags().StringSliceVar(&inspectFlags.keys, "key", nil,
		"Upsert key columns to include in the preview")
	inspectCmd.Flags().BoolVar(&inspectFlags.noSurrogate, "no-surrogate", false,
		"Preview without the idpk surrogate primary key")
	inspectCmd.Flags().BoolVar(&inspectFlags.preserveZeros, "preserve-leading-zeros", false,
		"Columns of all-digit values with leading zeros stay text (codes, not numbers)")
	inspectCmd.Flags().StringVar(&inspectFlags.config, "config", "",
		"Project file path (default: tabsync.yaml when present)")

	_ = inspectCmd.MarkFlagRequired("file")
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := logging.NewConsoleLogger(getVerboseFlag(cmd))

	proj, err := loadProject(inspectFlags.config)
	if err != nil {
		return err
	}
	if proj == nil {
		proj = &config.ProjectConfig{}
	}

	table := inspectFlags.table
	if table == "" {
		derived, err := config.TableFromPath(inspectFlags.file)
		if err != nil {
			return err
		}
		table = derived
	}
	tableCfg := proj.Tables[table]

	schemaNS := inspectFlags.schemaName
	if schemaNS == "" {
		schemaNS = proj.Connection.Schema
	}
	if schemaNS == "" {
		schemaNS = tabsync.DefaultSchema
	}

	keys := inspectFlags.keys
	if len(keys) == 0 {
		keys = tableCfg.Key
	}

	sheet := inspectFlags.sheet
	if sheet == "" {
		sheet = tableCfg.Sheet
	}

	delimiter, err := config.ParseDelimiter(inspectFlags.delimiter)
	if err != nil {
		return err
	}

	var overrides map[string]tabsync.ColumnType
	if len(tableCfg.Columns) > 0 {
		overrides = make(map[string]tabsync.ColumnType, len(tableCfg.Columns))
		for name, typeName := range tableCfg.Columns {
			t, err := tabsync.ParseColumnType(typeName)
			if err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
			overrides[name] = t
		}
	}

	surrogate := tabsync.DefaultSurrogateKey
	if proj.Load.SurrogateKey != nil && !*proj.Load.SurrogateKey {
		surrogate = ""
	}
	if inspectFlags.noSurrogate {
		surrogate = ""
	}

	opener, err := source.NewOpener(source.NewOSFileSystem(), inspectFlags.file, source.Options{
		Delimiter: delimiter,
		Sheet:     sheet,
	})
	if err != nil {
		return err
	}

	src, err := opener.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	profiler := infer.NewProfiler(src.Header(), infer.Options{
		PreserveLeadingZeros: inspectFlags.preserveZeros,
	})
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		profiler.Observe(row)
	}

	candidate, warnings, err := schema.Build(schemaNS, table, profiler.Profiles(), schema.BuildOptions{
		SurrogateKey:  surrogate,
		KeyColumns:    keys,
		TypeOverrides: overrides,
	})
	if err != nil {
		return err
	}

	for _, warning := range warnings {
		logger.Info("WARNING: %s", warning)
	}
	render.NewRenderer(os.Stdout).SchemaPreview(candidate, profiler.Profiles(), opener.Format(), profiler.Rows())
	return nil
}
