package keyword

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/ayat/internal/models"
)

const (
	fieldText    = "text"
	fieldChapter = "chapter"
)

// fingerprintKey holds the hash of the passage table an on-disk index was built from.
var fingerprintKey = []byte("_ayat_passages_fingerprint")

// passagesFingerprint hashes every field that is indexed or used to map hits to rows.
func passagesFingerprint(passages []models.Passage) []byte {
	h := sha256.New()
	var buf [8]byte
	for _, p := range passages {
		for _, n := range []int{p.ChapterID, p.VerseStart, p.VerseEnd, len(p.Text)} {
			binary.LittleEndian.PutUint64(buf[:], uint64(n))
			h.Write(buf[:])
		}
		h.Write([]byte(p.Text))
	}
	return h.Sum(nil)
}

// PassageIndex is a Bleve index over passage texts keyed by passage store row.
type PassageIndex struct {
	index bleve.Index
}

func passageMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so proper names
	// such as "Musa" are matched as written.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldChapter, bleve.NewNumericFieldMapping())
	im.AddDocumentMapping("passage", docMapping)
	im.DefaultType = "passage"
	im.DefaultMapping = docMapping
	return im
}

// BuildPassageIndex indexes passages. With an empty path the index lives in
// memory. With a path, an existing index built from the same passage table
// (same fingerprint) is reused; otherwise the directory is rebuilt.
func BuildPassageIndex(path string, passages []models.Passage) (*PassageIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(passageMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		p := &PassageIndex{index: index}
		if err := p.indexAll(passages); err != nil {
			_ = index.Close()
			return nil, err
		}
		return p, nil
	}

	fingerprint := passagesFingerprint(passages)
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		stored, err := index.GetInternal(fingerprintKey)
		if err == nil && bytes.Equal(stored, fingerprint) {
			return &PassageIndex{index: index}, nil
		}
		_ = index.Close()
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale Bleve index: %w", err)
		}
	}

	index, err := bleve.New(path, passageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	p := &PassageIndex{index: index}
	if err := p.indexAll(passages); err != nil {
		_ = index.Close()
		return nil, err
	}
	// Written last so an interrupted build is never reused.
	if err := index.SetInternal(fingerprintKey, fingerprint); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to store passage fingerprint: %w", err)
	}
	return p, nil
}

func (p *PassageIndex) indexAll(passages []models.Passage) error {
	const batchSize = 500
	batch := p.index.NewBatch()
	for i, ps := range passages {
		doc := map[string]interface{}{
			fieldText:    ps.Text,
			fieldChapter: float64(ps.ChapterID),
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			return fmt.Errorf("index passage %d: %w", i, err)
		}
		if batch.Size() >= batchSize {
			if err := p.index.Batch(batch); err != nil {
				return fmt.Errorf("index batch: %w", err)
			}
			batch = p.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := p.index.Batch(batch); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
	}
	return nil
}

// Search runs a match (or fuzzy) query over passage texts and returns up to limit rows.
// When opts.PhraseBoost > 1, passages containing the query as a phrase are boosted
// and results are re-ranked.
func (p *PassageIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	if o.Fuzziness <= 0 {
		o.Fuzziness = 2
	}

	var q blevequery.Query
	if o.FuzzyEnabled {
		q = buildFuzzyQuery(query, o.Fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldText)
		q = mq
	}
	q = withChapter(q, o.Chapter)

	reqSize := limit
	if o.PhraseBoost > 1 {
		// Fetch more so boosted passages from further down can move into the top limit.
		reqSize = max(limit*2, 50)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = reqSize
	results, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		row, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Result{Row: row, Score: hit.Score})
	}

	if o.PhraseBoost > 1 && len(tokenizeQuery(query)) > 1 {
		phrase := p.findPhraseMatches(ctx, query, o.Chapter, reqSize)
		for i := range out {
			if phrase[out[i].Row] {
				out[i].Score *= o.PhraseBoost
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func withChapter(q blevequery.Query, chapter int) blevequery.Query {
	if chapter <= 0 {
		return q
	}
	c := float64(chapter)
	inclusive := true
	cq := bleve.NewNumericRangeInclusiveQuery(&c, &c, &inclusive, &inclusive)
	cq.SetField(fieldChapter)
	return bleve.NewConjunctionQuery(q, cq)
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(fieldText)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldText)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// findPhraseMatches returns the rows where the query appears as a phrase.
func (p *PassageIndex) findPhraseMatches(ctx context.Context, query string, chapter, reqSize int) map[int]bool {
	matches := make(map[int]bool)

	pq := bleve.NewMatchPhraseQuery(query)
	pq.SetField(fieldText)
	req := bleve.NewSearchRequest(withChapter(pq, chapter))
	req.Size = reqSize
	results, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return matches
	}
	for _, hit := range results.Hits {
		if row, err := strconv.Atoi(hit.ID); err == nil {
			matches[row] = true
		}
	}
	return matches
}

// DocCount returns the number of indexed passages.
func (p *PassageIndex) DocCount() (uint64, error) {
	return p.index.DocCount()
}

// GetAllTerms returns all unique terms of the text field.
func (p *PassageIndex) GetAllTerms() ([]string, error) {
	dict, err := p.index.FieldDict(fieldText)
	if err != nil {
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()

	var terms []string
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		terms = append(terms, entry.Term)
	}
	return terms, nil
}

// GetTermFrequency returns the number of passages containing term.
func (p *PassageIndex) GetTermFrequency(term string) (int, error) {
	tq := bleve.NewTermQuery(strings.ToLower(term))
	tq.SetField(fieldText)
	req := bleve.NewSearchRequest(tq)
	req.Size = 0
	results, err := p.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// Close closes the Bleve index.
func (p *PassageIndex) Close() error {
	return p.index.Close()
}
