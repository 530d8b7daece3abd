// Package cento is a constrained sequential assembly engine: it generates
// long-form text entirely out of verbatim fragments of a source corpus,
// guaranteeing that no source words are ever used twice in one document.
//
// Generation is a beam search over assembly states. Each decision extends
// every surviving path with its legal candidate fragments, scores them, and
// keeps the top K. Legality is enforced by hard filters (fragment length,
// word reuse, grammatical adjacency, meter and rhyme feasibility, obligation
// coverage); preference is expressed by a weighted score over semantic fit,
// voice fit, continuity coverage, novelty, and thematic linkage.
//
// Key components:
//
//   - pkg/core: the shared vocabulary: fragments, assembly state, guidance
//     profiles, state signatures, and the store/judgment contracts.
//
//   - pkg/corpus: fragment catalogs loaded from line JSONL (expanded into
//     every legal window with derived boundary, meter, and rhyme features),
//     fragment JSONL, or Parquet.
//
//   - pkg/ledger: the per-path reuse ledger backing the no-reuse guarantee.
//
//   - pkg/transition: the candidate enumerator, with an explainable
//     rejection reason for every fragment it filters out.
//
//   - pkg/scoring: the deterministic, side-effect-free scoring function.
//
//   - pkg/memory: additive negative memory keyed by (state, choice) failure
//     signatures, in process or shared through SQLite across runs.
//
//   - pkg/checkpoint: immutable beam snapshots taken every N decisions, the
//     rollback targets, optionally archived to SQLite.
//
//   - pkg/judge: external judgment at checkpoint boundaries (accept, adjust
//     weights, or roll back) and near-tie choice, backed by Anthropic
//     models. Judgment advises; hard constraints always win, and an
//     unavailable judge degrades to accept-unchanged.
//
//   - pkg/assembler: the controller that drives the decision loop from
//     initialization through checkpoints, rollbacks, and completion.
//
// Minimal example:
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/centolabs/cento-go/pkg/assembler"
//	    "github.com/centolabs/cento-go/pkg/config"
//	    "github.com/centolabs/cento-go/pkg/corpus"
//	)
//
//	func main() {
//	    cfg, err := config.Load("cento.yaml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    store, err := corpus.LoadLinesJSONL(cfg.Corpus.Path)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    ctrl, err := assembler.New(cfg, store)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    doc, err := ctrl.Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(doc.Text())
//	}
//
// The cento CLI under cmd/cento wraps the same flow: "cento expand" turns a
// line corpus into a fragment catalog, "cento run" generates a document from
// a configuration file.
package cento
