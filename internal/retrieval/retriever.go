package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keepstack/mnemo/internal/embedding"
	"github.com/keepstack/mnemo/internal/model"
	"github.com/keepstack/mnemo/internal/store"
)

// DefaultTopK is how many candidates each search channel fetches before
// fusion narrows them down.
const DefaultTopK = 12

// Config tunes the retrieval pipeline.
type Config struct {
	TopK           int
	Budget         BudgetSpec
	DedupThreshold float64
	// KeywordMatchAll switches the keyword query from OR- to AND-combined
	// tokens. Stores carry their own copy of this flag.
	KeywordMatchAll bool
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		TopK:           DefaultTopK,
		DedupThreshold: PassageDupThreshold,
	}
}

// Request is one retrieval call.
type Request struct {
	OwnerID string
	Query   string
	// Embedding of the query. When nil the retriever embeds Query itself;
	// if that fails the vector channel is skipped, not retried.
	Embedding []float32
	Tier      BudgetTier
	// MemoryKinds is the requested type set fed to the memory heuristic.
	MemoryKinds []model.MemoryKind
}

// Result is the produced interface to the generation layer: passages and
// memories, each budgeted and U-shape-arranged, plus diagnostics.
type Result struct {
	Passages    []model.Passage
	Memories    []model.Memory
	Diagnostics Diagnostics
}

// Retriever runs the full pipeline: hybrid search → temporal scope →
// relevance filter → dedup → budget → arrange, with the two-tier memory
// branch fanned out alongside the document branch.
type Retriever struct {
	vec      store.VectorSearcher
	kw       store.KeywordSearcher
	memories *MemoryRetriever
	embedder embedding.Provider
	cfg      Config
	tracer   trace.Tracer
}

// New wires a Retriever from its collaborators. memStore and embedder may be
// nil; the corresponding channels then degrade to empty.
func New(vec store.VectorSearcher, kw store.KeywordSearcher, memStore store.MemoryStore, embedder embedding.Provider, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.DedupThreshold <= 0 {
		cfg.DedupThreshold = PassageDupThreshold
	}
	r := &Retriever{
		vec:      vec,
		kw:       kw,
		embedder: embedder,
		cfg:      cfg,
		tracer:   otel.Tracer("mnemo/retrieval"),
	}
	if memStore != nil {
		r.memories = NewMemoryRetriever(memStore)
	}
	return r
}

// Retrieve executes one retrieval call. Programmer errors (bad owner ID,
// malformed budget) fail eagerly before any I/O; runtime failures of either
// branch degrade that branch to empty, recorded in diagnostics, and never
// abort the call.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	if err := store.ValidateOwnerID(req.OwnerID); err != nil {
		return nil, err
	}
	if err := r.cfg.Budget.Validate(); err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "retrieval.retrieve")
	defer span.End()

	res := &Result{}
	diag := &res.Diagnostics

	// Temporal scope, pushed down into both store searches.
	var yf *store.YearFilter
	if year := ExtractQueryYear(req.Query); year > 0 {
		yf = &store.YearFilter{Year: year}
		diag.YearFilter = year
	}

	queryEmb := req.Embedding
	if queryEmb == nil && r.embedder != nil && req.Query != "" {
		embs, err := r.embedder.Embed(ctx, []string{req.Query}, embedding.ModeQuery)
		if err != nil {
			// Skip the vector channel; keyword search still runs.
			diag.DocumentErr = (&EmbeddingError{Err: err}).Error()
			slog.Warn("query embedding failed, vector channel skipped", "err", err)
		} else if len(embs) > 0 {
			queryEmb = embs[0]
		}
	}

	// Fan-out: the document branch and the memory branch share no state and
	// are joined before assembly. Either branch's failure degrades to empty.
	var wg sync.WaitGroup

	var (
		passages []model.Passage
		memories []model.Memory
		memErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		passages = r.documentBranch(ctx, req, queryEmb, yf, diag)
	}()

	if r.memories != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			memories, memErr = r.memories.Retrieve(ctx, req.OwnerID, req.Query, queryEmb, req.Tier, req.MemoryKinds)
		}()
	}

	wg.Wait()

	if memErr != nil {
		diag.MemoryErr = memErr.Error()
		slog.Warn("memory branch degraded", "owner", req.OwnerID, "err", memErr)
	}
	diag.ProfileMemories, diag.ContextualMemories = countTiers(memories)

	res.Passages = ArrangeUShape(passages)
	res.Memories = ArrangeUShape(memories)

	span.SetAttributes(
		attribute.Int("retrieval.embedding_candidates", diag.EmbeddingCandidates),
		attribute.Int("retrieval.keyword_candidates", diag.KeywordCandidates),
		attribute.Int("retrieval.fused", diag.FusedCount),
		attribute.Int("retrieval.post_budget", diag.PostBudgetCount),
		attribute.Int("retrieval.memories", len(res.Memories)),
		attribute.Int("retrieval.year_filter", diag.YearFilter),
	)
	return res, nil
}

// documentBranch runs hybrid search and the narrowing stages. Store failures
// degrade the failing channel to empty; both failing yields no passages,
// never an error.
func (r *Retriever) documentBranch(ctx context.Context, req Request, queryEmb []float32, yf *store.YearFilter, diag *Diagnostics) []model.Passage {
	ctx, span := r.tracer.Start(ctx, "retrieval.documents")
	defer span.End()

	// The two search channels are independent reads; run them together.
	var (
		wg      sync.WaitGroup
		vecList []model.Passage
		kwList  []model.Passage
		vecErr  error
		kwErr   error
	)

	if r.vec != nil && len(queryEmb) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecList, vecErr = r.vec.SearchByEmbedding(ctx, req.OwnerID, queryEmb, r.cfg.TopK, yf)
		}()
	}
	if r.kw != nil && req.Query != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kwList, kwErr = r.kw.SearchByKeyword(ctx, req.OwnerID, req.Query, r.cfg.TopK, yf)
		}()
	}
	wg.Wait()

	if vecErr != nil {
		diag.DocumentErr = (&StoreQueryError{Op: "vector", Err: vecErr}).Error()
		slog.Warn("vector search degraded", "owner", req.OwnerID, "err", vecErr)
		vecList = nil
	}
	if kwErr != nil {
		diag.DocumentErr = (&StoreQueryError{Op: "keyword", Err: kwErr}).Error()
		slog.Warn("keyword search degraded", "owner", req.OwnerID, "err", kwErr)
		kwList = nil
	}

	fused := FuseRanked(vecList, kwList, diag)
	diag.recordScores(fused)

	fused = FilterPassages(fused, time.Now(), diag)

	deduped := make([]model.Passage, 0, len(fused))
	for _, fp := range fused {
		deduped = append(deduped, fp.Passage)
	}
	deduped = Dedup(deduped, r.cfg.DedupThreshold)
	diag.PostDedupCount = len(deduped)

	budgeted, err := ApplyBudget(deduped, r.cfg.Budget, diag)
	if err != nil {
		// Budget was validated before I/O; reaching this means a bug, but a
		// degraded context still beats a failed request.
		slog.Error("budget application failed after validation", "err", err)
		return nil
	}
	return budgeted
}

// countTiers splits a combined memory list back into tier counts for
// diagnostics.
func countTiers(memories []model.Memory) (profile, contextual int) {
	for _, m := range memories {
		switch m.Kind {
		case model.KindPreference, model.KindFact:
			profile++
		default:
			contextual++
		}
	}
	return
}
