package session

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SearchHit is one message matching a search query.
type SearchHit struct {
	SessionID   string
	ProjectName string
	MessageID   string
	Role        string
	Score       float64
	Content     string
}

// Searcher provides keyword search over the messages of a set of sessions.
// The index lives in memory and is rebuilt per search session.
type Searcher struct {
	index    bleve.Index
	messages map[string]SearchHit
}

// NewSearcher indexes every message of the given sessions.
func NewSearcher(sessions []*Session) (*Searcher, error) {
	index, err := bleve.NewMemOnly(buildMessageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create message index: %w", err)
	}

	s := &Searcher{index: index, messages: make(map[string]SearchHit)}
	batch := index.NewBatch()
	for _, sess := range sessions {
		for _, m := range sess.Messages {
			docID := sess.ID + "/" + m.ID
			doc := map[string]interface{}{
				"session_id": sess.ID,
				"role":       string(m.Role),
				"content":    m.Content,
			}
			if err := batch.Index(docID, doc); err != nil {
				index.Close()
				return nil, fmt.Errorf("failed to add message %s to batch: %w", docID, err)
			}
			s.messages[docID] = SearchHit{
				SessionID:   sess.ID,
				ProjectName: sess.ProjectName,
				MessageID:   m.ID,
				Role:        string(m.Role),
				Content:     m.Content,
			}
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index messages: %w", err)
	}

	return s, nil
}

func buildMessageMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	msgMapping := bleve.NewDocumentMapping()

	sessionField := bleve.NewTextFieldMapping()
	sessionField.Analyzer = keyword.Name
	sessionField.Store = true
	msgMapping.AddFieldMappingsAt("session_id", sessionField)

	roleField := bleve.NewTextFieldMapping()
	roleField.Analyzer = keyword.Name
	roleField.Store = true
	msgMapping.AddFieldMappingsAt("role", roleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	msgMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = msgMapping
	return indexMapping
}

// Search returns up to k messages matching query, best first.
func (s *Searcher) Search(query string, k int) ([]SearchHit, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("content")

	req := bleve.NewSearchRequest(q)
	req.Size = k

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("message search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit, ok := s.messages[h.ID]
		if !ok {
			continue
		}
		hit.Score = h.Score
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (s *Searcher) Close() error {
	return s.index.Close()
}
