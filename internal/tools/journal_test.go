package tools

import (
	"os"
	"path/filepath"
	"testing"

	"deptkb-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestJournalTool(t *testing.T) *JournalTool {
	jcr := writeDataset(t, "jcr.csv",
		"title,issn,eissn,impact_factor,quartile,category\n"+
			"Nature,0028-0836,1476-4687,64.8,Q1,Multidisciplinary Sciences\n"+
			"Nature Communications,2041-1723,2041-1723,16.6,Q1,Multidisciplinary Sciences\n"+
			"Journal of Informetrics,1751-1577,1875-5879,3.4,Q1,Information Science\n")
	nature := writeDataset(t, "nature_index.csv",
		"title\nNature\nNature Communications\n")
	return NewJournalTool(config.DatasetsConfig{JCRPath: jcr, NatureIndexPath: nature})
}

func TestLookupByISSN(t *testing.T) {
	tool := newTestJournalTool(t)

	res := tool.LookupByISSN("0028-0836")
	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Nature", res.Title)
	assert.Contains(t, res.Content, "64.8")

	res = tool.LookupByISSN("9999-9999")
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestLookupByTitleExactBeatsFuzzy(t *testing.T) {
	tool := newTestJournalTool(t)

	// "Nature" 与 "Nature Communications" 同时存在时，精确匹配必须优先
	res := tool.LookupByTitle("nature")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Nature", res.Title)
}

func TestLookupByTitleFuzzyWithinThreshold(t *testing.T) {
	tool := newTestJournalTool(t)

	// 轻微拼写错误应命中最接近的期刊
	res := tool.LookupByTitle("Journal of Informatrics")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Journal of Informetrics", res.Title)
	assert.Contains(t, res.Content, "最接近")
}

func TestLookupByTitleRejectsDistantMatch(t *testing.T) {
	tool := newTestJournalTool(t)

	// 与任何期刊距离都超过阈值时必须返回未命中，而不是硬凑一个结果
	res := tool.LookupByTitle("Chinese Physics Letters")
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestNatureIndexMembership(t *testing.T) {
	tool := newTestJournalTool(t)

	res := tool.InNatureIndex("Nature Communications")
	assert.Equal(t, StatusFound, res.Status)

	res = tool.InNatureIndex("Journal of Informetrics")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Contains(t, res.Content, "不在")
}

func TestMissingDatasetReturnsUnavailable(t *testing.T) {
	tool := NewJournalTool(config.DatasetsConfig{
		JCRPath:         "/nonexistent/jcr.csv",
		NatureIndexPath: "",
	})

	res := tool.LookupByTitle("Nature")
	assert.Equal(t, StatusUnavailable, res.Status)

	res = tool.InNatureIndex("Nature")
	assert.Equal(t, StatusUnavailable, res.Status)
}

func TestNormalizedDistance(t *testing.T) {
	assert.Equal(t, 0.0, normalizedDistance("nature", "nature"))
	assert.InDelta(t, 1.0/6.0, normalizedDistance("nature", "naturo"), 1e-9)
	assert.Equal(t, 1.0, normalizedDistance("", "abc"))
}
