package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"abicompat/internal/extract"
	"abicompat/internal/loader"
	"abicompat/internal/model"
	"abicompat/internal/output"
)

var (
	extractOutput  string
	extractLibrary string
	extractVersion string
	extractBase    string
)

var extractCmd = &cobra.Command{
	Use:   "extract <header|dir>...",
	Short: "Build a declaration model from C++ headers",
	Long: `Parse C++ headers with tree-sitter and write the declaration model that
compare reads. Directory arguments expand to every header below them.
File paths in the model are recorded relative to --base.

Requires a build with cgo enabled.

Examples:
  abicompat extract include/ -o v2.json --library mylib --version 2.0
  abicompat extract include/api.hpp include/types.hpp --base . -o api.yaml
  abicompat extract include/ -o v2.json.zst`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Model file to write (format from extension; default JSON on stdout)")
	extractCmd.Flags().StringVar(&extractLibrary, "library", "", "Library name recorded in the model")
	extractCmd.Flags().StringVar(&extractVersion, "version", "", "Library version recorded in the model")
	extractCmd.Flags().StringVar(&extractBase, "base", ".", "Directory header paths are recorded relative to")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if !extract.IsAvailable() {
		return inputError(extract.ErrNoCGO)
	}
	headers, err := extract.ExpandHeaders(args)
	if err != nil {
		return inputError(err)
	}
	if len(headers) == 0 {
		return inputError(fmt.Errorf("no headers found in %v", args))
	}
	base, err := filepath.Abs(extractBase)
	if err != nil {
		return inputError(err)
	}

	doc, err := extract.Extract(newContext(), headers, extract.Options{
		Root:    base,
		Library: extractLibrary,
		Version: extractVersion,
		Logger:  app.logger,
	})
	if err != nil {
		return inputError(err)
	}
	// Reject output compare could not read back.
	if _, err := model.Build(doc.Label(), doc.Declarations); err != nil {
		return inputError(err)
	}

	if extractOutput == "" {
		data, err := output.DeterministicEncodeIndented(doc, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := os.MkdirAll(filepath.Dir(extractOutput), 0o755); err != nil {
		return err
	}
	if err := loader.WriteDocument(extractOutput, doc); err != nil {
		return inputError(err)
	}
	app.logger.Info("Model written", "path", extractOutput, "declarations", len(doc.Declarations))
	return nil
}
