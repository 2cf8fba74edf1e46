package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

const quizCollection = "quizzes"

// QuizDocument is the denormalised form of a quiz kept in the search index.
type QuizDocument struct {
	ID             uuid.UUID
	PieceName      string
	ComposerName   string
	InstrumentName string
	ArtistNames    []string
	LikeCount      int
	CreatedAt      time.Time
}

// DocumentFor flattens a quiz with its composer, instrument and slice
// artists loaded.
func DocumentFor(q *models.Quiz) QuizDocument {
	doc := QuizDocument{
		ID:        q.ID,
		PieceName: q.PieceName,
		LikeCount: q.LikeCount,
		CreatedAt: q.CreatedAt,
	}
	if q.Composer != nil {
		doc.ComposerName = q.Composer.Name
	}
	if q.Instrument != nil {
		doc.InstrumentName = q.Instrument.Name
	}
	for _, sl := range q.Slices {
		if sl.Artist != nil {
			doc.ArtistNames = append(doc.ArtistNames, sl.Artist.Name)
		}
	}
	return doc
}

// QuizIndex is a best-effort full-text index over quizzes.
type QuizIndex interface {
	Enabled() bool
	Upsert(ctx context.Context, doc QuizDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search returns matching quiz ids, best match first.
	Search(ctx context.Context, q string) ([]uuid.UUID, error)
	Reindex(ctx context.Context, docs []QuizDocument) error
}

type NoopIndex struct{}

func (NoopIndex) Enabled() bool                                       { return false }
func (NoopIndex) Upsert(context.Context, QuizDocument) error          { return nil }
func (NoopIndex) Delete(context.Context, uuid.UUID) error             { return nil }
func (NoopIndex) Search(context.Context, string) ([]uuid.UUID, error) { return nil, nil }
func (NoopIndex) Reindex(context.Context, []QuizDocument) error       { return nil }

type TypesenseIndex struct {
	client *typesense.Client
	log    *logger.Logger
}

func NewTypesenseIndex(ctx context.Context, host, apiKey string, log *logger.Logger) (*TypesenseIndex, error) {
	client := typesense.NewClient(
		typesense.WithServer(host),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)
	idx := &TypesenseIndex{client: client, log: log.Component("search_index")}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}
	return idx, nil
}

func (i *TypesenseIndex) ensureSchema(ctx context.Context) error {
	if _, err := i.client.Collection(quizCollection).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: quizCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "piece_name", Type: "string"},
			{Name: "composer_name", Type: "string", Facet: pointer.True()},
			{Name: "instrument_name", Type: "string", Facet: pointer.True()},
			{Name: "artist_names", Type: "string[]", Optional: pointer.True()},
			{Name: "like_count", Type: "int32"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
	if _, err := i.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	i.log.Info("search collection created", "collection", quizCollection)
	return nil
}

func (i *TypesenseIndex) Enabled() bool { return true }

func (i *TypesenseIndex) Upsert(ctx context.Context, doc QuizDocument) error {
	artists := doc.ArtistNames
	if artists == nil {
		artists = []string{}
	}
	body := map[string]interface{}{
		"id":              doc.ID.String(),
		"piece_name":      doc.PieceName,
		"composer_name":   doc.ComposerName,
		"instrument_name": doc.InstrumentName,
		"artist_names":    artists,
		"like_count":      doc.LikeCount,
		"created_at":      doc.CreatedAt.Unix(),
	}
	if _, err := i.client.Collection(quizCollection).Documents().Upsert(ctx, body); err != nil {
		return fmt.Errorf("index quiz %s: %w", doc.ID, err)
	}
	return nil
}

func (i *TypesenseIndex) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := i.client.Collection(quizCollection).Document(id.String()).Delete(ctx); err != nil {
		return fmt.Errorf("remove quiz %s from index: %w", id, err)
	}
	return nil
}

const (
	searchPageSize = 250
	maxSearchPages = 40
)

// Search returns every matching quiz id, paging through the collection up
// to maxSearchPages*searchPageSize hits.
func (i *TypesenseIndex) Search(ctx context.Context, q string) ([]uuid.UUID, error) {
	ids, truncated, err := collectHits(func(page int) (*api.SearchResult, error) {
		return i.client.Collection(quizCollection).Documents().Search(ctx, &api.SearchCollectionParams{
			Q:       q,
			QueryBy: "piece_name,composer_name,artist_names,instrument_name",
			Prefix:  pointer.String("true"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(searchPageSize),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("search quizzes: %w", err)
	}
	if truncated {
		i.log.Warn("search hits truncated", "query", q, "kept", len(ids))
	}
	return ids, nil
}

// collectHits walks result pages from 1 until every found hit is read, a
// short page arrives, or maxSearchPages is reached (truncated).
func collectHits(fetch func(page int) (*api.SearchResult, error)) ([]uuid.UUID, bool, error) {
	ids := []uuid.UUID{}
	seen := 0
	for page := 1; page <= maxSearchPages; page++ {
		result, err := fetch(page)
		if err != nil {
			return nil, false, err
		}
		if result.Hits == nil || len(*result.Hits) == 0 {
			return ids, false, nil
		}
		for _, hit := range *result.Hits {
			seen++
			if hit.Document == nil {
				continue
			}
			raw, _ := (*hit.Document)["id"].(string)
			if id, err := uuid.Parse(raw); err == nil {
				ids = append(ids, id)
			}
		}
		if len(*result.Hits) < searchPageSize || (result.Found != nil && seen >= *result.Found) {
			return ids, false, nil
		}
	}
	return ids, true, nil
}

// Reindex drops the collection and rebuilds it from docs.
func (i *TypesenseIndex) Reindex(ctx context.Context, docs []QuizDocument) error {
	if _, err := i.client.Collection(quizCollection).Delete(ctx); err != nil {
		i.log.Warn("could not drop search collection", "error", err)
	}
	if err := i.ensureSchema(ctx); err != nil {
		return err
	}
	for n, doc := range docs {
		if err := i.Upsert(ctx, doc); err != nil {
			return err
		}
		if (n+1)%100 == 0 {
			i.log.Info("reindex progress", "indexed", n+1, "total", len(docs))
		}
	}
	i.log.Info("reindex complete", "indexed", len(docs))
	return nil
}
