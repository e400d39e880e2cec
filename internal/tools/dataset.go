package tools

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"deptkb-go/pkg/log"
)

// ErrDatasetUnavailable 表示数据集文件缺失或损坏，工具应返回 unavailable 而非报错中断。
var ErrDatasetUnavailable = errors.New("数据集不可用")

// JournalRecord 是 JCR 数据集中的一行。
type JournalRecord struct {
	Title        string
	ISSN         string
	EISSN        string
	ImpactFactor float64
	Quartile     string
	Category     string
}

// StaffRecord 是教职工名录中的一行。StaffID 与邮箱本地部分一致。
type StaffRecord struct {
	StaffID      string
	Name         string
	Email        string
	Title        string
	Department   string
	ResearchArea string
}

// GrantRecord 是科研项目数据集中的一行。
type GrantRecord struct {
	StaffID string
	Year    int
	Title   string
	Agency  string
	Amount  float64
}

// PublicationRecord 是论文成果数据集中的一行。
type PublicationRecord struct {
	StaffID string
	Year    int
	Title   string
	Journal string
}

// dataset 惰性加载一个 CSV 文件并缓存解析结果。
// 加载失败的状态被显式保留，调用方据此返回 unavailable。
type dataset[T any] struct {
	path  string
	parse func(row []string) (T, bool)

	once    sync.Once
	records []T
	err     error
}

func (d *dataset[T]) load() ([]T, error) {
	d.once.Do(func() {
		if d.path == "" {
			d.err = ErrDatasetUnavailable
			return
		}
		f, err := os.Open(d.path)
		if err != nil {
			log.Warnf("打开数据集文件失败: %s, error: %v", d.path, err)
			d.err = ErrDatasetUnavailable
			return
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			log.Warnf("解析数据集文件失败: %s, error: %v", d.path, err)
			d.err = ErrDatasetUnavailable
			return
		}
		// 跳过表头行
		for i, row := range rows {
			if i == 0 {
				continue
			}
			if rec, ok := d.parse(row); ok {
				d.records = append(d.records, rec)
			}
		}
		log.Infof("数据集加载完成: %s, 共 %d 条记录", d.path, len(d.records))
	})
	return d.records, d.err
}

func parseJournalRow(row []string) (JournalRecord, bool) {
	if len(row) < 6 {
		return JournalRecord{}, false
	}
	impact, _ := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	return JournalRecord{
		Title:        strings.TrimSpace(row[0]),
		ISSN:         strings.TrimSpace(row[1]),
		EISSN:        strings.TrimSpace(row[2]),
		ImpactFactor: impact,
		Quartile:     strings.TrimSpace(row[4]),
		Category:     strings.TrimSpace(row[5]),
	}, true
}

func parseNatureIndexRow(row []string) (string, bool) {
	if len(row) < 1 || strings.TrimSpace(row[0]) == "" {
		return "", false
	}
	return strings.TrimSpace(row[0]), true
}

func parseStaffRow(row []string) (StaffRecord, bool) {
	if len(row) < 6 {
		return StaffRecord{}, false
	}
	email := strings.TrimSpace(row[2])
	staffID := strings.TrimSpace(row[0])
	if staffID == "" && email != "" {
		staffID = StaffIDFromEmail(email)
	}
	return StaffRecord{
		StaffID:      staffID,
		Name:         strings.TrimSpace(row[1]),
		Email:        email,
		Title:        strings.TrimSpace(row[3]),
		Department:   strings.TrimSpace(row[4]),
		ResearchArea: strings.TrimSpace(row[5]),
	}, true
}

func parseGrantRow(row []string) (GrantRecord, bool) {
	if len(row) < 5 {
		return GrantRecord{}, false
	}
	year, _ := strconv.Atoi(strings.TrimSpace(row[1]))
	amount, _ := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	return GrantRecord{
		StaffID: strings.TrimSpace(row[0]),
		Year:    year,
		Title:   strings.TrimSpace(row[2]),
		Agency:  strings.TrimSpace(row[3]),
		Amount:  amount,
	}, true
}

func parsePublicationRow(row []string) (PublicationRecord, bool) {
	if len(row) < 4 {
		return PublicationRecord{}, false
	}
	year, _ := strconv.Atoi(strings.TrimSpace(row[1]))
	return PublicationRecord{
		StaffID: strings.TrimSpace(row[0]),
		Year:    year,
		Title:   strings.TrimSpace(row[2]),
		Journal: strings.TrimSpace(row[3]),
	}, true
}

// StaffIDFromEmail 从邮箱地址归一化出工号（取 @ 前的本地部分，小写）。
func StaffIDFromEmail(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx >= 0 {
		local = email[:idx]
	}
	return strings.ToLower(strings.TrimSpace(local))
}
