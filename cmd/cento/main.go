package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/centolabs/cento-go/pkg/assembler"
	"github.com/centolabs/cento-go/pkg/checkpoint"
	"github.com/centolabs/cento-go/pkg/config"
	"github.com/centolabs/cento-go/pkg/corpus"
	"github.com/centolabs/cento-go/pkg/judge"
	"github.com/centolabs/cento-go/pkg/memory"
)

var rootCmd = &cobra.Command{
	Use:   "cento",
	Short: "Assemble long-form text verbatim from a source corpus",
	Long: `cento runs a constrained beam search over a catalog of source fragments,
assembling documents in which every word is quoted verbatim from the corpus
and no source words are ever used twice.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	outPath    string
	documentID string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a document from a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := loadCorpus(cmd.Context(), cfg.Corpus)
		if err != nil {
			return err
		}

		opts, cleanup, err := buildOptions(cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		if documentID != "" {
			opts = append(opts, assembler.WithDocumentID(documentID))
		}

		ctrl, err := assembler.New(cfg, store, opts...)
		if err != nil {
			return err
		}

		doc, err := ctrl.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(doc.Text())
		if outPath != "" {
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	expandIn  string
	expandOut string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand a line corpus into a fragment catalog",
	Long: `Reads a JSONL file of source lines, derives every legal fragment window
with its boundary, meter, and rhyme features, and writes the resulting
catalog as fragment JSONL ready for the "fragments" corpus format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := corpus.LoadLinesJSONL(expandIn)
		if err != nil {
			return err
		}

		out, err := os.Create(expandOut)
		if err != nil {
			return err
		}
		defer out.Close()

		w := bufio.NewWriter(out)
		for _, f := range store.Fragments() {
			data, err := json.Marshal(f)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(data, '\n')); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("wrote %d fragments to %s\n", store.Len(), expandOut)
		return nil
	},
}

func loadCorpus(ctx context.Context, cfg config.CorpusConfig) (*corpus.Store, error) {
	switch cfg.Format {
	case "lines":
		return corpus.LoadLinesJSONL(cfg.Path)
	case "parquet":
		return corpus.LoadFragmentsParquet(ctx, cfg.Path)
	default:
		return corpus.LoadFragmentsJSONL(cfg.Path)
	}
}

// buildOptions wires the optional subsystems the configuration names: shared
// negative memory, the checkpoint archive, and the external critic. The
// returned cleanup closes whatever was opened.
func buildOptions(cfg config.Config) ([]assembler.Option, func(), error) {
	var opts []assembler.Option
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Memory.SharedPath != "" {
		shared, err := memory.NewSharedStore(cfg.Memory.SharedPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = shared.Close() })
		opts = append(opts, assembler.WithNegativeMemory(shared))
	}

	if cfg.Memory.ArchivePath != "" {
		archive, err := checkpoint.NewArchive(cfg.Memory.ArchivePath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = archive.Close() })
		opts = append(opts, assembler.WithArchive(archive))
	}

	if cfg.Judgment.Provider == "anthropic" {
		critic, err := judge.NewCritic("", cfg.Judgment.Model)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, assembler.WithJudgment(critic), assembler.WithChooser(critic))
	}

	return opts, cleanup, nil
}

func main() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "cento.yaml", "configuration file")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the full document JSON to this path")
	runCmd.Flags().StringVar(&documentID, "document-id", "", "fix the document ID for a reproducible run")

	expandCmd.Flags().StringVar(&expandIn, "in", "", "line corpus JSONL to expand")
	expandCmd.Flags().StringVar(&expandOut, "out", "fragments.jsonl", "fragment catalog output path")
	_ = expandCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(runCmd, expandCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
