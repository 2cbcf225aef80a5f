// Package cli implements the command-line commands exposed next to the
// HTTP server, currently the bulk CSV catalog import.
package cli

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/libshelf/library-api/internal/config"
	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/errs"
)

// ImportBooksCommand bulk-loads catalog books from a CSV file.
//
// Expected columns: title, isbn, description, quantity, authors, genres.
// Authors and genres hold semicolon-separated lists and are resolved by
// name, created when absent. Overlong titles and names are truncated to the
// catalog limits rather than rejected, so exports from other systems load
// without manual cleanup.
type ImportBooksCommand struct {
	CSVPath      string
	DatabasePath string
	Verbose      bool
	DryRun       bool
}

const (
	maxNameLen  = 100
	maxTitleLen = 255
)

func NewImportBooksCommand() *ImportBooksCommand {
	return &ImportBooksCommand{}
}

func (cmd *ImportBooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-books", flag.ExitOnError)

	fs.StringVar(&cmd.CSVPath, "file", "", "Path to the CSV file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and report without writing to the database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-books -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Bulk-import catalog books from a CSV file.\n\n")
		fmt.Fprintf(os.Stderr, "Expected header:\n")
		fmt.Fprintf(os.Stderr, "  title,isbn,description,quantity,authors,genres\n\n")
		fmt.Fprintf(os.Stderr, "The authors and genres columns take semicolon-separated lists:\n")
		fmt.Fprintf(os.Stderr, "  \"Dune\",\"9780441172719\",\"...\",3,\"Frank Herbert\",\"Sci-Fi;Classics\"\n\n")
		fmt.Fprintf(os.Stderr, "Rows that fail validation are skipped and reported; a duplicate\n")
		fmt.Fprintf(os.Stderr, "isbn skips the row without touching the existing book.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.CSVPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *ImportBooksCommand) Run() error {
	fmt.Println("Catalog Import")
	fmt.Println("==============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	file, err := os.Open(cmd.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := parseBookRows(file)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No book rows found in CSV file")
		return nil
	}

	fmt.Printf("Found %d book rows\n", len(rows))

	if cmd.DryRun {
		for i, row := range rows {
			fmt.Printf("%d. %q isbn=%s authors=%d genres=%d\n",
				i+1, row.Title, row.ISBN, len(row.Authors), len(row.Genres))
		}
		fmt.Println("\nDry run complete. Use without -dry-run to import.")
		return nil
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	fmt.Printf("\nSaving to database: %s\n", absDBPath)

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	repo := catalog.NewRepository(db.DB)

	var imported, skipped int
	var importErrors []string

	for i, row := range rows {
		if cmd.Verbose {
			fmt.Printf("  -> %q (%s)...\n", row.Title, row.ISBN)
		}
		_, err := repo.CreateBook(row)
		if err != nil {
			skipped++
			msg := fmt.Sprintf("row %d (%q): %v", i+2, row.Title, err)
			if errs.IsKind(err, errs.KindConflict) {
				msg = fmt.Sprintf("row %d (%q): already in catalog", i+2, row.Title)
			}
			importErrors = append(importErrors, msg)
			if cmd.Verbose {
				fmt.Printf("    [SKIP] %s\n", msg)
			}
			continue
		}
		imported++
	}

	fmt.Println("\n=== Import Summary ===")
	fmt.Printf("Books imported: %d/%d\n", imported, len(rows))
	if skipped > 0 {
		fmt.Printf("Rows skipped: %d\n", skipped)
		for _, msg := range importErrors {
			fmt.Printf("  [SKIP] %s\n", msg)
		}
	}

	fmt.Println("\nImport complete!")
	return nil
}

// parseBookRows reads the CSV stream into create payloads. The header row is
// required and matched by name so column order does not matter.
func parseBookRows(r io.Reader) ([]catalog.BookInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "isbn"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing the %q column", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []catalog.BookInput
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := catalog.BookInput{
			Title:       truncate(field(record, "title"), maxTitleLen),
			ISBN:        field(record, "isbn"),
			Description: field(record, "description"),
		}
		if q := field(record, "quantity"); q != "" {
			n, err := strconv.ParseUint(q, 10, 32)
			if err == nil {
				qty := uint(n)
				row.Quantity = &qty
			}
		}
		for _, name := range splitList(field(record, "authors")) {
			row.Authors = append(row.Authors, catalog.AuthorInput{
				FullName: truncate(name, maxNameLen),
			})
		}
		for _, name := range splitList(field(record, "genres")) {
			row.Genres = append(row.Genres, catalog.GenreInput{
				Name: truncate(name, maxNameLen),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// truncate cuts s to max characters, never mid-rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
