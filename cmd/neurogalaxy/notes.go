package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [note...]",
	Short: "Lay out notes without storing them",
	Long:  "Lay out the given notes as a galaxy. Notes come from arguments or from --file, one per line.",
	RunE:  runProcess,
}

var addCmd = &cobra.Command{
	Use:   "add [note...]",
	Short: "Store notes and recompute the galaxy",
	Long:  "Append notes to the stored collection and lay out the whole collection.",
	RunE:  runAdd,
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Lay out every stored note",
	Args:  cobra.NoArgs,
	RunE:  runNodes,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored note",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

// Flags
var (
	notesFile    string
	confirmClear bool
)

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(clearCmd)

	processCmd.Flags().StringVar(&notesFile, "file", "", "Read notes from a file, one per line (- for stdin)")
	addCmd.Flags().StringVar(&notesFile, "file", "", "Read notes from a file, one per line (- for stdin)")
	clearCmd.Flags().BoolVar(&confirmClear, "yes", false, "Confirm removal of every stored note")
}

func runProcess(cmd *cobra.Command, args []string) error {
	notes, err := collectNotes(args, notesFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	galaxy, err := globalServer.Process(cmd.Context(), notes)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, galaxy)
}

func runAdd(cmd *cobra.Command, args []string) error {
	notes, err := collectNotes(args, notesFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		return fmt.Errorf("no notes given")
	}
	result, err := globalServer.AddNotes(cmd.Context(), notes)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, result)
}

func runNodes(cmd *cobra.Command, args []string) error {
	galaxy, err := globalServer.Nodes(cmd.Context())
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, galaxy)
}

func runClear(cmd *cobra.Command, args []string) error {
	if !confirmClear {
		return fmt.Errorf("refusing to clear notes without --yes")
	}
	deleted, err := globalServer.ClearNotes()
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, clearResult{DeletedCount: deleted})
}

type clearResult struct {
	DeletedCount int `json:"deleted_count" yaml:"deleted_count"`
}

// collectNotes returns the notes given as arguments followed by the non-blank
// lines of file. A file of "-" reads stdin.
func collectNotes(args []string, file string, stdin io.Reader) ([]string, error) {
	notes := append([]string(nil), args...)
	if file == "" {
		return notes, nil
	}

	var r io.Reader
	if file == "-" {
		r = stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open notes file: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			notes = append(notes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return notes, nil
}
