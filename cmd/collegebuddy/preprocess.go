package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/collegebuddy/internal/convert"
)

var (
	preprocessDir     string
	preprocessDocTool string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Convert .doc, .docx and .html files in the data directory to .txt",
	Long: `preprocess extracts and cleans the text of every .doc, .docx and .html
file in the data directory and writes it to <name>.txt next to the source, ready
for ingest. Legacy .doc files need antiword (or --doc-tool) on PATH and are
skipped otherwise.`,
	RunE: runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessDir, "dir", "", "directory to convert (default: corpus.data_dir)")
	preprocessCmd.Flags().StringVar(&preprocessDocTool, "doc-tool", convert.DefaultDocTool,
		"program that prints the text of a .doc file")
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	dir := preprocessDir
	if dir == "" {
		dir = rt.cfg.Corpus.DataDir
	}

	runner := convert.NewRunner(rt.logger,
		convert.DocxConverter{},
		convert.HTMLConverter{},
		convert.NewDocConverter(preprocessDocTool),
	)

	report, err := runner.Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	if report.Total == 0 {
		cmd.Println("No .doc, .docx, or .html files found in the data directory.")
		return nil
	}

	for _, r := range report.Results {
		if r.Err != nil {
			cmd.Printf("  failed   %s: %v\n", filepath.Base(r.Input), r.Err)
			continue
		}
		cmd.Printf("  created  %s\n", filepath.Base(r.Output))
	}
	cmd.Printf("Successfully converted: %d/%d files\n", report.Converted, report.Total)
	if report.Converted > 0 {
		cmd.Println("Run 'collegebuddy ingest' to rebuild the index.")
	}
	return nil
}
