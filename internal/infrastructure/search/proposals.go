// Package search keeps an Elasticsearch index of proposals for free-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
)

// ErrDisabled is returned by Search when no cluster is configured.
var ErrDisabled = errors.New("search index not configured")

const requestTimeout = 3 * time.Second

// ProposalIndex mirrors proposals into one index. A nil client disables it.
type ProposalIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewProposalIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *ProposalIndex {
	return &ProposalIndex{ES: es, Index: index, Logger: logger}
}

func (p *ProposalIndex) Enabled() bool {
	return p != nil && p.ES != nil && p.Index != ""
}

type proposalDoc struct {
	ID          int64  `json:"id"`
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
	Localidad   string `json:"localidad"`
	AutorID     int64  `json:"autorId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Put indexes or replaces the document for p.
func (p *ProposalIndex) Put(ctx context.Context, prop entity.Proposal) error {
	if !p.Enabled() {
		return nil
	}
	b, err := json.Marshal(proposalDoc{
		ID:          prop.ID,
		Titulo:      prop.Titulo,
		Descripcion: prop.Descripcion,
		Localidad:   prop.Localidad,
		AutorID:     prop.AutorID,
		CreatedAt:   prop.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   prop.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      p.Index,
		DocumentID: strconv.FormatInt(prop.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, p.ES)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Remove deletes the document for id. A missing document is not an error.
func (p *ProposalIndex) Remove(ctx context.Context, id int64) error {
	if !p.Enabled() {
		return nil
	}
	req := esapi.DeleteRequest{Index: p.Index, DocumentID: strconv.FormatInt(id, 10)}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, p.ES)
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match on title and description and returns matching ids by score.
func (p *ProposalIndex) Search(ctx context.Context, q string, size int) ([]int64, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     strings.TrimSpace(q),
				"fields":    []string{"titulo^2", "descripcion", "localidad"},
				"fuzziness": "AUTO",
			},
		},
		"size":    size,
		"_source": false,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := p.ES.Search(p.ES.Search.WithContext(c), p.ES.Search.WithIndex(p.Index), p.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("es search decode: %w", err)
	}
	out := make([]int64, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			if p.Logger != nil {
				p.Logger.WithField("doc_id", h.ID).Warn("es hit with non-numeric id")
			}
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
