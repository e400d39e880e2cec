package tools

import (
	"regexp"
	"strings"

	"deptkb-go/internal/model"
	"deptkb-go/internal/settings"
	"deptkb-go/pkg/log"
)

// issnPattern 匹配 ISSN 号（如 0028-0836）。
var issnPattern = regexp.MustCompile(`\d{4}-\d{3}[\dXx]`)

// quotedTitlePattern 从查询中提取书名号或引号内的期刊名。
var quotedTitlePattern = regexp.MustCompile(`[《"“]([^》"”]+)[》"”]`)

// Requester 是工具调用的请求方身份。
type Requester struct {
	Role  model.Role
	Email string
}

// Registry 按查询内容触发结构化数据工具，并按工具权限配置做粗粒度门禁。
type Registry struct {
	cache    *settings.ConfigCache
	journal  *JournalTool
	staff    *StaffTool
	research *ResearchTool
}

// NewRegistry 创建一个新的 Registry 实例。
func NewRegistry(cache *settings.ConfigCache, journal *JournalTool, staff *StaffTool, research *ResearchTool) *Registry {
	return &Registry{cache: cache, journal: journal, staff: staff, research: research}
}

// Execute 检测查询涉及的数据域并执行相应工具，返回全部结构化结果。
// 工具失败不会中断整个检索，权限不足的工具不会被调用。
func (r *Registry) Execute(query string, requester Requester) []Result {
	var results []Result
	lower := strings.ToLower(query)

	if issn := issnPattern.FindString(query); issn != "" && r.allowed(ToolJournalLookup, requester.Role) {
		results = append(results, r.journal.LookupByISSN(issn))
	} else if containsAny(lower, "影响因子", "impact factor", "jcr", "分区", "quartile") &&
		r.allowed(ToolJournalLookup, requester.Role) {
		results = append(results, r.journal.LookupByTitle(extractJournalTitle(query)))
	}

	if containsAny(lower, "nature index", "自然指数") && r.allowed(ToolNatureIndex, requester.Role) {
		results = append(results, r.journal.InNatureIndex(extractJournalTitle(query)))
	}

	if containsAny(lower, "老师", "教授", "导师", "研究方向", "联系方式", "professor", "supervisor", "research area") &&
		r.allowed(ToolStaffDirectory, requester.Role) {
		results = append(results, r.staff.SearchByName(extractStaffName(query)))
	}

	if containsAny(lower, "项目", "基金", "经费", "grant", "funding") &&
		r.allowed(ToolGrants, requester.Role) {
		results = append(results, r.research.QueryGrants("", requester.Role, requester.Email))
	}

	if containsAny(lower, "论文", "发表", "publication", "paper") &&
		r.allowed(ToolPublications, requester.Role) {
		results = append(results, r.research.QueryPublications("", requester.Role, requester.Email))
	}

	return results
}

// allowed 检查工具对请求角色是否开放。无权限记录表示全员开放。
func (r *Registry) allowed(toolName string, role model.Role) bool {
	roles, restricted, err := r.cache.ToolPermission(toolName)
	if err != nil {
		log.Warnf("读取工具权限失败, tool: %s, error: %v", toolName, err)
		return false
	}
	if !restricted {
		return true
	}
	return roles.Contains(role)
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// extractJournalTitle 从查询中提取期刊名：优先取书名号/引号内的内容，
// 否则剥掉触发关键词后把剩余部分当作期刊名。
func extractJournalTitle(query string) string {
	if m := quotedTitlePattern.FindStringSubmatch(query); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	stripped := query
	for _, kw := range []string{
		"影响因子是多少", "的影响因子", "影响因子", "impact factor of", "impact factor",
		"是否被", "nature index", "自然指数", "收录", "jcr", "分区", "quartile",
		"是多少", "怎么样", "如何", "什么", "?", "？",
	} {
		stripped = removeFold(stripped, kw)
	}
	return strings.TrimSpace(stripped)
}

// extractStaffName 从查询中提取姓名：剥掉称谓与疑问词后取剩余部分。
func extractStaffName(query string) string {
	stripped := query
	for _, kw := range []string{
		"的研究方向是什么", "的研究方向", "研究方向", "的联系方式", "联系方式",
		"老师", "教授", "导师", "professor", "supervisor", "research area of",
		"who is", "介绍一下", "是谁", "?", "？",
	} {
		stripped = removeFold(stripped, kw)
	}
	return strings.TrimSpace(stripped)
}

// removeFold 大小写不敏感地移除子串。
func removeFold(s, sub string) string {
	lower := strings.ToLower(s)
	sub = strings.ToLower(sub)
	for {
		idx := strings.Index(lower, sub)
		if idx < 0 {
			return s
		}
		s = s[:idx] + s[idx+len(sub):]
		lower = lower[:idx] + lower[idx+len(sub):]
	}
}
