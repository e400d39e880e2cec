package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deptkb-go/internal/model"
	"deptkb-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esIndex 是基于 Elasticsearch dense_vector 的 Index 实现。
// 文档 _id 直接使用 vector_id，写入天然幂等。
type esIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewESIndex 创建一个基于 Elasticsearch 的向量索引。
func NewESIndex(client *elasticsearch.Client, indexName string) Index {
	return &esIndex{client: client, indexName: indexName}
}

func (e *esIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("序列化向量记录失败: %w", err)
		}
		req := esapi.IndexRequest{
			Index:      e.indexName,
			DocumentID: rec.ID,
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			return fmt.Errorf("写入向量记录失败: %w", err)
		}
		if res.IsError() {
			msg := res.String()
			res.Body.Close()
			return fmt.Errorf("写入向量记录时 Elasticsearch 返回错误: %s", msg)
		}
		res.Body.Close()
	}
	return nil
}

func (e *esIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]model.ChunkHit, error) {
	if filter.Empty() {
		return nil, nil
	}

	// 文档与条目各自一条 should 分支，命中任一分支即可见
	var should []map[string]interface{}
	if len(filter.DocumentLevels) > 0 {
		levels := make([]string, 0, len(filter.DocumentLevels))
		for _, lv := range filter.DocumentLevels {
			levels = append(levels, string(lv))
		}
		should = append(should, map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"source_type": model.SourceTypeDocument}},
					{"terms": map[string]interface{}{"access_level": levels}},
				},
			},
		})
	}
	if filter.NoteRole != "" {
		should = append(should, map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"source_type": model.SourceTypeNote}},
					{"term": map[string]interface{}{"access_level": string(filter.NoteRole)}},
				},
			},
		})
	}

	// kNN 检索，角色过滤在索引侧执行
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"should":               should,
					"minimum_should_match": 1,
				},
			},
		},
		"size":    topK,
		"_source": []string{"vector_id", "source_id", "source_type", "access_level", "file_name", "title", "chunk_index", "text_content"},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("向量检索时 Elasticsearch 返回错误: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64            `json:"_score"`
				Source model.VectorRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	hits := make([]model.ChunkHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, model.ChunkHit{
			VectorID:     h.Source.ID,
			SourceID:     h.Source.SourceID,
			SourceType:   h.Source.SourceType,
			AccessLevels: h.Source.AccessLevels,
			FileName:     h.Source.FileName,
			Title:        h.Source.Title,
			ChunkIndex:   h.Source.ChunkIndex,
			TextContent:  h.Source.TextContent,
			Score:        h.Score,
		})
	}
	return hits, nil
}

func (e *esIndex) DeleteByIDs(ctx context.Context, vectorIDs []string) error {
	if len(vectorIDs) == 0 {
		return nil
	}
	return e.deleteByQuery(ctx, map[string]interface{}{
		"query": map[string]interface{}{
			"terms": map[string]interface{}{"vector_id": vectorIDs},
		},
	})
}

func (e *esIndex) DeleteBySource(ctx context.Context, sourceType, sourceID string) error {
	return e.deleteByQuery(ctx, map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"source_type": sourceType}},
					{"term": map[string]interface{}{"source_id": sourceID}},
				},
			},
		},
	})
}

func (e *esIndex) deleteByQuery(ctx context.Context, query map[string]interface{}) error {
	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("序列化删除请求失败: %w", err)
	}
	res, err := e.client.DeleteByQuery(
		[]string{e.indexName},
		bytes.NewReader(body),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("删除向量记录失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("删除向量记录时 Elasticsearch 返回错误: %s", res.String())
	}
	log.Infof("向量删除完成: %s", strings.TrimSpace(res.Status()))
	return nil
}

func (e *esIndex) FetchIDs(ctx context.Context, vectorIDs []string) ([]string, error) {
	if len(vectorIDs) == 0 {
		return nil, nil
	}
	return e.fetch(ctx, map[string]interface{}{
		"query": map[string]interface{}{
			"terms": map[string]interface{}{"vector_id": vectorIDs},
		},
		"size":    len(vectorIDs),
		"_source": []string{"vector_id"},
	})
}

func (e *esIndex) FetchBySource(ctx context.Context, sourceType, sourceID string) ([]string, error) {
	return e.fetch(ctx, map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"source_type": sourceType}},
					{"term": map[string]interface{}{"source_id": sourceID}},
				},
			},
		},
		"size":    10000,
		"_source": []string{"vector_id"},
	})
}

func (e *esIndex) fetch(ctx context.Context, query map[string]interface{}) ([]string, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("查询向量记录失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("查询向量记录时 Elasticsearch 返回错误: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					VectorID string `json:"vector_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.Source.VectorID)
	}
	return ids, nil
}
