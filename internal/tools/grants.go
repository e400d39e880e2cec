package tools

import (
	"fmt"
	"strings"

	"deptkb-go/internal/config"
	"deptkb-go/internal/model"
)

// 科研数据工具名。
const (
	ToolGrants       = "grants"
	ToolPublications = "publications"
)

// ResearchTool 查询科研项目与论文成果。
// 非主任角色只能看到自己名下的记录，这一过滤发生在工具内部，
// 不依赖外层的权限开关。
type ResearchTool struct {
	grants       *dataset[GrantRecord]
	publications *dataset[PublicationRecord]
}

// NewResearchTool 创建一个新的 ResearchTool 实例。
func NewResearchTool(cfg config.DatasetsConfig) *ResearchTool {
	return &ResearchTool{
		grants:       &dataset[GrantRecord]{path: cfg.GrantsPath, parse: parseGrantRow},
		publications: &dataset[PublicationRecord]{path: cfg.PublicationsPath, parse: parsePublicationRow},
	}
}

// QueryGrants 查询科研项目。staffID 为空时主任角色返回全系汇总，
// 其他角色按请求者邮箱解析出的工号过滤。
func (t *ResearchTool) QueryGrants(staffID string, requester model.Role, requesterEmail string) Result {
	records, err := t.grants.load()
	if err != nil {
		return Unavailable(ToolGrants)
	}

	scoped, scopeDesc, ok := scopeRecords(records, func(r GrantRecord) string { return r.StaffID },
		staffID, requester, requesterEmail)
	if !ok {
		return NotFound(ToolGrants, "当前角色只能查询本人的项目记录")
	}
	if len(scoped) == 0 {
		return NotFound(ToolGrants, fmt.Sprintf("没有找到%s的项目记录", scopeDesc))
	}

	var total float64
	lines := make([]string, 0, len(scoped))
	for _, g := range scoped {
		total += g.Amount
		lines = append(lines, fmt.Sprintf("- %d 年 %q（%s，%.1f 万元）", g.Year, g.Title, g.Agency, g.Amount))
	}
	content := fmt.Sprintf("%s共有 %d 项科研项目，经费合计 %.1f 万元：\n%s",
		scopeDesc, len(scoped), total, strings.Join(lines, "\n"))
	return Found(ToolGrants, "科研项目"+scopeDesc, content)
}

// QueryPublications 查询论文成果，范围规则与 QueryGrants 相同。
func (t *ResearchTool) QueryPublications(staffID string, requester model.Role, requesterEmail string) Result {
	records, err := t.publications.load()
	if err != nil {
		return Unavailable(ToolPublications)
	}

	scoped, scopeDesc, ok := scopeRecords(records, func(r PublicationRecord) string { return r.StaffID },
		staffID, requester, requesterEmail)
	if !ok {
		return NotFound(ToolPublications, "当前角色只能查询本人的论文记录")
	}
	if len(scoped) == 0 {
		return NotFound(ToolPublications, fmt.Sprintf("没有找到%s的论文记录", scopeDesc))
	}

	lines := make([]string, 0, len(scoped))
	for _, p := range scoped {
		lines = append(lines, fmt.Sprintf("- %d 年 %q 发表于 %s", p.Year, p.Title, p.Journal))
	}
	content := fmt.Sprintf("%s共有 %d 篇论文：\n%s", scopeDesc, len(scoped), strings.Join(lines, "\n"))
	return Found(ToolPublications, "论文成果"+scopeDesc, content)
}

// scopeRecords 按角色裁剪可见范围。主任可查任意工号或全系；
// 其他角色仅当目标是本人（或未指定目标）时可查，否则拒绝。
func scopeRecords[T any](records []T, staffIDOf func(T) string, staffID string,
	requester model.Role, requesterEmail string) ([]T, string, bool) {

	if requester == model.RoleChairperson {
		if staffID == "" {
			return records, "全系", true
		}
		return filterByStaffID(records, staffIDOf, staffID), fmt.Sprintf("工号 %s ", staffID), true
	}

	own := StaffIDFromEmail(requesterEmail)
	if own == "" {
		return nil, "", false
	}
	if staffID != "" && staffID != own {
		return nil, "", false
	}
	return filterByStaffID(records, staffIDOf, own), "本人", true
}

func filterByStaffID[T any](records []T, staffIDOf func(T) string, staffID string) []T {
	var out []T
	for _, r := range records {
		if staffIDOf(r) == staffID {
			out = append(out, r)
		}
	}
	return out
}
