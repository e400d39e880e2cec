package tools

import (
	"fmt"
	"strings"

	"deptkb-go/internal/config"

	"github.com/agnivade/levenshtein"
)

// FuzzyDistanceThreshold 是模糊标题匹配允许的最大归一化编辑距离。
// 距离大于等于该值时按未命中处理，避免把不相干的期刊说成命中。
const FuzzyDistanceThreshold = 0.3

// 工具名，用于权限配置与结果标识。
const (
	ToolJournalLookup = "journal_lookup"
	ToolNatureIndex   = "nature_index"
)

// JournalTool 查询 JCR 影响因子与 Nature Index 收录情况。
type JournalTool struct {
	jcr         *dataset[JournalRecord]
	natureIndex *dataset[string]
}

// NewJournalTool 创建一个新的 JournalTool 实例。
func NewJournalTool(cfg config.DatasetsConfig) *JournalTool {
	return &JournalTool{
		jcr:         &dataset[JournalRecord]{path: cfg.JCRPath, parse: parseJournalRow},
		natureIndex: &dataset[string]{path: cfg.NatureIndexPath, parse: parseNatureIndexRow},
	}
}

// LookupByISSN 按 ISSN 精确查询期刊。
func (t *JournalTool) LookupByISSN(issn string) Result {
	records, err := t.jcr.load()
	if err != nil {
		return Unavailable(ToolJournalLookup)
	}
	normalized := strings.ToUpper(strings.TrimSpace(issn))
	for _, rec := range records {
		if strings.ToUpper(rec.ISSN) == normalized || strings.ToUpper(rec.EISSN) == normalized {
			return Found(ToolJournalLookup, rec.Title, describeJournal(rec))
		}
	}
	return NotFound(ToolJournalLookup, fmt.Sprintf("JCR 数据中没有 ISSN 为 %s 的期刊", issn))
}

// LookupByTitle 按标题查询期刊。先做大小写不敏感的精确匹配，
// 精确未命中时退化为模糊匹配，距离达到阈值则按未命中处理。
func (t *JournalTool) LookupByTitle(title string) Result {
	records, err := t.jcr.load()
	if err != nil {
		return Unavailable(ToolJournalLookup)
	}
	normalized := normalizeTitle(title)
	if normalized == "" {
		return NotFound(ToolJournalLookup, "期刊名为空")
	}

	for _, rec := range records {
		if normalizeTitle(rec.Title) == normalized {
			return Found(ToolJournalLookup, rec.Title, describeJournal(rec))
		}
	}

	best, bestDistance := JournalRecord{}, 1.0
	for _, rec := range records {
		d := normalizedDistance(normalized, normalizeTitle(rec.Title))
		if d < bestDistance {
			best, bestDistance = rec, d
		}
	}
	if bestDistance < FuzzyDistanceThreshold {
		content := fmt.Sprintf("未找到与 %q 完全一致的期刊，最接近的是 %q。%s",
			title, best.Title, describeJournal(best))
		return Found(ToolJournalLookup, best.Title, content)
	}
	return NotFound(ToolJournalLookup, fmt.Sprintf("JCR 数据中没有名为 %q 的期刊", title))
}

// InNatureIndex 查询期刊是否被 Nature Index 收录。
func (t *JournalTool) InNatureIndex(title string) Result {
	titles, err := t.natureIndex.load()
	if err != nil {
		return Unavailable(ToolNatureIndex)
	}
	normalized := normalizeTitle(title)
	for _, item := range titles {
		if normalizeTitle(item) == normalized {
			return Found(ToolNatureIndex, item, fmt.Sprintf("期刊 %q 在 Nature Index 收录名单中", item))
		}
	}
	return NotFound(ToolNatureIndex, fmt.Sprintf("期刊 %q 不在 Nature Index 收录名单中", title))
}

func describeJournal(rec JournalRecord) string {
	return fmt.Sprintf("期刊 %q (ISSN: %s) 的最新影响因子为 %.1f，分区 %s，学科类别：%s",
		rec.Title, rec.ISSN, rec.ImpactFactor, rec.Quartile, rec.Category)
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// normalizedDistance 返回按较长串长度归一化的编辑距离，范围 [0, 1]。
func normalizedDistance(a, b string) float64 {
	if a == b {
		return 0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
