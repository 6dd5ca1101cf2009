// Command loomgraph bulk-loads CSV files into a columnar node-group store.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loomgraph/loomgraph/internal/catalog"
	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/session"
)

const (
	Version   = "0.1.0"
	BuildDate = "2026-07-31"
)

var (
	shutdownChan = make(chan os.Signal, 1)
	cleanupFuncs []func()
)

func main() {
	setupSignalHandler()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "load":
		runLoad(os.Args[2:])
	case "version":
		fmt.Printf("loomgraph v%s (%s)\n", Version, BuildDate)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupSignalHandler() {
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	go handleShutdown()
}

func handleShutdown() {
	<-shutdownChan
	fmt.Fprintln(os.Stderr, "received shutdown signal, cleaning up...")
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	os.Exit(130)
}

func printUsage() {
	fmt.Println(`loomgraph - columnar CSV bulk loader

Usage:
    loomgraph <command> [arguments]

Commands:
    load     Bulk-load a CSV file into a table
    version  Show version
    help     Show this help

Use "loomgraph load --help" for load-specific options.`)
}

// schemaColumn is one column entry in a --schema JSON file.
type schemaColumn struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	ElemType  string `json:"elem_type,omitempty"`
	Width     int    `json:"width,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

func parseTypeID(s string) (common.TypeID, error) {
	switch s {
	case "BOOL":
		return common.BOOL, nil
	case "INT16":
		return common.INT16, nil
	case "INT32":
		return common.INT32, nil
	case "INT64":
		return common.INT64, nil
	case "FLOAT":
		return common.FLOAT, nil
	case "DOUBLE":
		return common.DOUBLE, nil
	case "DATE":
		return common.DATE, nil
	case "TIMESTAMP":
		return common.TIMESTAMP, nil
	case "INTERVAL":
		return common.INTERVAL, nil
	case "STRING":
		return common.STRING, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

// loadSchema reads a JSON array of schemaColumn entries and builds the
// column definitions plus the primary key index (-1 if none is marked).
func loadSchema(path string) ([]catalog.ColumnDef, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, -1, fmt.Errorf("read schema: %w", err)
	}
	var cols []schemaColumn
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, -1, fmt.Errorf("parse schema: %w", err)
	}

	defs := make([]catalog.ColumnDef, len(cols))
	primaryKeyIdx := -1
	for i, c := range cols {
		id, err := parseTypeID(c.Type)
		if err != nil {
			if c.Type == "FIXED_LIST" {
				elemID, eerr := parseTypeID(c.ElemType)
				if eerr != nil {
					return nil, -1, fmt.Errorf("column %q: %w", c.Name, eerr)
				}
				defs[i] = catalog.ColumnDef{Name: c.Name, Type: common.FixedList(common.Primitive(elemID), c.Width)}
				if c.PrimaryKey {
					primaryKeyIdx = i
				}
				continue
			}
			return nil, -1, fmt.Errorf("column %q: %w", c.Name, err)
		}
		defs[i] = catalog.ColumnDef{Name: c.Name, Type: common.Primitive(id)}
		if c.PrimaryKey {
			primaryKeyIdx = i
		}
	}
	return defs, primaryKeyIdx, nil
}

func runLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)

	input := fs.String("input", "", "Input CSV file path")
	dataDir := fs.String("data-dir", "", "Directory to write the table's data/manifest files")
	table := fs.String("table", "", "Table name")
	schemaPath := fs.String("schema", "", "Path to a JSON schema file describing the table's columns")
	delimiter := fs.String("delimiter", ",", "Field delimiter")
	hasHeader := fs.Bool("header", true, "Input has a header row to skip")
	skipNum := fs.Int("skip", 0, "Number of leading rows to skip before the header")
	lenient := fs.Bool("lenient", false, "Skip malformed rows instead of aborting")
	parallel := fs.Bool("parallel", false, "Split the file across workers")
	workers := fs.Int("workers", 0, "Worker count for --parallel (0 = runtime.NumCPU)")

	_ = fs.Parse(args)

	if *input == "" || *table == "" || *schemaPath == "" || *dataDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --input, --table, --schema and --data-dir are required")
		fs.PrintDefaults()
		os.Exit(1)
	}
	if len(*delimiter) != 1 {
		fmt.Fprintln(os.Stderr, "Error: --delimiter must be a single byte")
		os.Exit(1)
	}

	columns, primaryKeyIdx, err := loadSchema(*schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cat := catalog.New()
	if primaryKeyIdx >= 0 {
		if err := cat.CreateNodeTable(*table, columns, primaryKeyIdx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := cat.CreateRelTable(*table, columns); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sess := session.New(*dataDir, cat)
	cleanupFuncs = append(cleanupFuncs, sess.Cancel)

	opts := session.DefaultCopyOptions()
	opts.CSV.Delimiter = (*delimiter)[0]
	opts.CSV.HasHeader = *hasHeader
	opts.CSV.SkipNum = *skipNum
	opts.Lenient = *lenient
	opts.Parallel = *parallel
	if *workers > 0 {
		opts.Workers = *workers
	}

	result, err := sess.CopyFrom(*table, *input, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("loaded %d rows into %q\n", result.RowsInserted, *table)
	if len(result.Errors) > 0 {
		fmt.Printf("%d rows skipped; see %s.errors.json\n", len(result.Errors), *input)
	}
}
