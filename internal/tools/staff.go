package tools

import (
	"fmt"
	"strings"

	"deptkb-go/internal/config"
)

// ToolStaffDirectory 是教职工名录工具的名称。
const ToolStaffDirectory = "staff_directory"

// StaffTool 查询教职工名录。
type StaffTool struct {
	staff *dataset[StaffRecord]
}

// NewStaffTool 创建一个新的 StaffTool 实例。
func NewStaffTool(cfg config.DatasetsConfig) *StaffTool {
	return &StaffTool{
		staff: &dataset[StaffRecord]{path: cfg.StaffPath, parse: parseStaffRow},
	}
}

// SearchByName 按姓名查询教职工，先精确匹配，再做包含匹配。
func (t *StaffTool) SearchByName(name string) Result {
	records, err := t.staff.load()
	if err != nil {
		return Unavailable(ToolStaffDirectory)
	}
	query := strings.TrimSpace(name)
	if query == "" {
		return NotFound(ToolStaffDirectory, "姓名为空")
	}

	for _, rec := range records {
		if rec.Name == query {
			return Found(ToolStaffDirectory, rec.Name, describeStaff(rec))
		}
	}

	var partial []StaffRecord
	lower := strings.ToLower(query)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Name), lower) {
			partial = append(partial, rec)
		}
	}
	switch len(partial) {
	case 0:
		return NotFound(ToolStaffDirectory, fmt.Sprintf("名录中没有找到 %q", name))
	case 1:
		return Found(ToolStaffDirectory, partial[0].Name, describeStaff(partial[0]))
	default:
		names := make([]string, 0, len(partial))
		for _, rec := range partial {
			names = append(names, rec.Name)
		}
		return Found(ToolStaffDirectory, query,
			fmt.Sprintf("名录中有多位教师匹配 %q: %s", name, strings.Join(names, "、")))
	}
}

// ResolveByEmail 按邮箱（取本地部分为工号）查找教职工记录。
func (t *StaffTool) ResolveByEmail(email string) (StaffRecord, bool) {
	records, err := t.staff.load()
	if err != nil {
		return StaffRecord{}, false
	}
	staffID := StaffIDFromEmail(email)
	for _, rec := range records {
		if rec.StaffID == staffID {
			return rec, true
		}
	}
	return StaffRecord{}, false
}

func describeStaff(rec StaffRecord) string {
	return fmt.Sprintf("%s，%s，%s。研究方向：%s。邮箱：%s",
		rec.Name, rec.Title, rec.Department, rec.ResearchArea, rec.Email)
}
