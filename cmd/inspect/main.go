// Inspect prints the directory of a stored table and, optionally, its tuples.
// Usage: go run ./cmd/inspect -table shop::users -schema id:integer,name:string -key 0
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/storage/disk"
	"github.com/jobala/tuplestore/tuplestore"
	"github.com/jobala/tuplestore/types"
)

func main() {
	configPath := flag.String("config", "", "yaml config file")
	root := flag.String("root", "", "storage root, overrides the config")
	table := flag.String("table", "", "table identifier, e.g. shop::users")
	schemaFlag := flag.String("schema", "", "attributes as name:type,... (types: integer, float, boolean, string)")
	keyFlag := flag.String("key", "0", "primary key positions, comma separated")
	dump := flag.Bool("dump", false, "print every tuple")
	flag.Parse()

	if *table == "" || *schemaFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *root, *table, *schemaFlag, *keyFlag, *dump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, root, table, schemaFlag, keyFlag string, dump bool) error {
	cfg := tuplestore.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = tuplestore.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if root != "" {
		cfg.Root = root
	}

	id, err := types.ParseIdentifier(table)
	if err != nil {
		return err
	}
	schema, err := parseSchema(schemaFlag)
	if err != nil {
		return err
	}
	pk, err := parseKey(keyFlag)
	if err != nil {
		return err
	}

	// opening would create a missing table
	dir := disk.NewManager(cfg.Root, id).TableDir()
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(err, "table %s not found", id)
	}

	ts, err := tuplestore.Open(cfg, id, schema, pk)
	if err != nil {
		return err
	}
	defer ts.Close()

	stats := ts.Stats()
	fmt.Printf("table:        %s\n", id)
	fmt.Printf("directory:    %s\n", dir)
	fmt.Printf("global depth: %d (%d slots)\n", stats.GlobalDepth, 1<<stats.GlobalDepth)
	fmt.Printf("pages:        %d\n", len(stats.Pages))
	fmt.Printf("tuples:       %d\n\n", stats.Tuples)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tLOCAL DEPTH\tSLOTS\tTUPLES\tFILL")
	for _, p := range stats.Pages {
		fill := float64(p.Len) / float64(cfg.BucketCapacity) * 100
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.1f%%\n", p.Block, p.LocalDepth, p.Slots, p.Len, fill)
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}

	if !dump {
		return nil
	}

	fmt.Println()
	for tuple, err := range ts.Tuples() {
		if err != nil {
			return err
		}
		fmt.Println(types.Serialize(tuple))
	}
	return nil
}

func parseSchema(s string) (types.Schema, error) {
	var attributes []types.Attribute
	for _, field := range strings.Split(s, ",") {
		name, typeName, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			return types.Schema{}, errors.Errorf("attribute %q must be name:type", field)
		}
		typ, err := types.ParseType(typeName)
		if err != nil {
			return types.Schema{}, err
		}
		attributes = append(attributes, types.Attribute{Name: name, Type: typ})
	}
	return types.NewSchema(attributes...)
}

func parseKey(s string) (types.PrimaryKeyDefinition, error) {
	var positions []int
	for _, field := range strings.Split(s, ",") {
		pos, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return types.PrimaryKeyDefinition{}, errors.Wrapf(err, "invalid key position %q", field)
		}
		positions = append(positions, pos)
	}
	return types.NewPrimaryKeyDefinition(positions...)
}
