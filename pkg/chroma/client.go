package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	"proactive-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

// InsightStore indexes learning insights in Chroma so related past
// insights can be retrieved by semantic similarity. It is an optional
// enrichment layer: the sqlite insight table remains the source of
// truth and callers must tolerate a nil store.
type InsightStore struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	collection chroma.Collection
}

func NewInsightStore(cfg *config.Config) (*InsightStore, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// The embedding function reads the Gemini key from the environment
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		"insights",
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Println("[Chroma] Initialized insight store with collection: insights")

	return &InsightStore{
		client:     client,
		embedFunc:  embedFunc,
		collection: collection,
	}, nil
}

// IndexInsight upserts one insight. Using the insight id as the document
// id keeps re-syncs idempotent.
func (s *InsightStore) IndexInsight(ctx context.Context, insightID, insightType, content string, confidence float64) error {
	if len(content) > 10000 {
		content = content[:10000]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"insight_type": insightType,
		"confidence":   confidence,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = s.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(insightID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(content),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert insight: %w", err)
	}
	return nil
}

// SimilarInsights returns ids of insights semantically close to query,
// nearest first.
func (s *InsightStore) SimilarInsights(ctx context.Context, query string, limit int) ([]string, []float64, error) {
	if s.collection == nil {
		return nil, nil, fmt.Errorf("collection is nil")
	}
	if limit <= 0 {
		limit = 5
	}

	results, err := s.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}

	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}

	distances := []float64{}
	if len(distanceGroups) > 0 && len(distanceGroups[0]) > 0 {
		for _, d := range distanceGroups[0] {
			distances = append(distances, float64(d))
		}
	}
	return ids, distances, nil
}

// RemoveInsight deletes one insight from the index
func (s *InsightStore) RemoveInsight(ctx context.Context, insightID string) error {
	err := s.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(insightID)))
	if err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	return nil
}
