package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/vectorindex"
)

// fakeIndex 是内存版向量索引。
type fakeIndex struct {
	mu      sync.Mutex
	records map[string]model.VectorRecord
	failing bool
	// upsertDelay 在写入前注入延迟，用于构造写入与删除的竞争窗口。
	upsertDelay time.Duration
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]model.VectorRecord)}
}

func (f *fakeIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	if f.upsertDelay > 0 {
		time.Sleep(f.upsertDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("index unavailable")
	}
	for _, rec := range records {
		f.records[rec.ID] = rec
	}
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, filter vectorindex.Filter) ([]model.ChunkHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("index unavailable")
	}
	allowedDoc := make(map[model.Role]bool)
	for _, lv := range filter.DocumentLevels {
		allowedDoc[lv] = true
	}
	var hits []model.ChunkHit
	for _, rec := range f.records {
		visible := false
		switch rec.SourceType {
		case model.SourceTypeDocument:
			visible = len(rec.AccessLevels) > 0 && allowedDoc[rec.AccessLevels[0]]
		case model.SourceTypeNote:
			visible = filter.NoteRole != "" && rec.AccessLevels.Contains(filter.NoteRole)
		}
		if !visible {
			continue
		}
		hits = append(hits, model.ChunkHit{
			VectorID: rec.ID, SourceID: rec.SourceID, SourceType: rec.SourceType,
			AccessLevels: rec.AccessLevels, FileName: rec.FileName, Title: rec.Title,
			ChunkIndex: rec.ChunkIndex, TextContent: rec.TextContent, Score: 1.0,
		})
		if len(hits) >= topK {
			break
		}
	}
	return hits, nil
}

func (f *fakeIndex) DeleteByIDs(ctx context.Context, vectorIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range vectorIDs {
		delete(f.records, id)
	}
	return nil
}

func (f *fakeIndex) DeleteBySource(ctx context.Context, sourceType, sourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rec := range f.records {
		if rec.SourceType == sourceType && rec.SourceID == sourceID {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeIndex) FetchIDs(ctx context.Context, vectorIDs []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range vectorIDs {
		if _, ok := f.records[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeIndex) FetchBySource(ctx context.Context, sourceType, sourceID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, rec := range f.records {
		if rec.SourceType == sourceType && rec.SourceID == sourceID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeIndex) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeDocRepo 是内存版文档仓储。
type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uint]*model.Document
	// onMarkProcessed 在状态切换时回调，用于检查切换时刻的索引状态。
	onMarkProcessed func()
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[uint]*model.Document)}
}

func (f *fakeDocRepo) Create(doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = uint(len(f.docs) + 1)
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocRepo) FindByID(id uint) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocRepo) FindByFileName(fileName string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.FileName == fileName && !doc.DeletedAt.Valid {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDocRepo) FindByOriginalName(name string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.OriginalName == name && !doc.DeletedAt.Valid {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDocRepo) ListByAccessLevels(levels []model.Role) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[model.Role]bool)
	for _, lv := range levels {
		allowed[lv] = true
	}
	var out []model.Document
	for _, doc := range f.docs {
		if !doc.DeletedAt.Valid && allowed[doc.AccessLevel] {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) MarkProcessed(id uint, chunkCount int, vectorIDs model.StringList) error {
	f.mu.Lock()
	hook := f.onMarkProcessed
	doc, ok := f.docs[id]
	if ok {
		doc.Status = model.DocStatusProcessed
		doc.ChunkCount = chunkCount
		doc.VectorIDs = vectorIDs
	}
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeDocRepo) MarkFailed(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = model.DocStatusFailed
	}
	return nil
}

func (f *fakeDocRepo) SoftDelete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.DeletedAt.Valid = true
	}
	return nil
}

func (f *fakeDocRepo) FindDeletedWithVectors() ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if doc.DeletedAt.Valid && len(doc.VectorIDs) > 0 {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) FindFailed() ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if !doc.DeletedAt.Valid && doc.Status == model.DocStatusFailed {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) FindProcessedWithVectors() ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if !doc.DeletedAt.Valid && doc.Status == model.DocStatusProcessed && len(doc.VectorIDs) > 0 {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) FindByIDUnscoped(id uint) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocRepo) ClearVectorIDs(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.VectorIDs = model.StringList{}
	}
	return nil
}

func (f *fakeDocRepo) CreateLibraryEntry(entry *model.DocumentLibraryEntry) error { return nil }
func (f *fakeDocRepo) ListLibraryByLevels(levels []model.Role) ([]model.DocumentLibraryEntry, error) {
	return nil, nil
}
func (f *fakeDocRepo) FindLibraryByTitle(title string) (*model.DocumentLibraryEntry, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeDocRepo) DeleteLibraryEntry(id uint) error { return nil }

// fakeNoteRepo 是内存版知识条目仓储。
type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[uint]*model.KnowledgeNote
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[uint]*model.KnowledgeNote)}
}

func (f *fakeNoteRepo) Create(note *model.KnowledgeNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note.ID == 0 {
		note.ID = uint(len(f.notes) + 1)
	}
	copied := *note
	f.notes[note.ID] = &copied
	return nil
}

func (f *fakeNoteRepo) Update(note *model.KnowledgeNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *note
	f.notes[note.ID] = &copied
	return nil
}

func (f *fakeNoteRepo) FindByID(id uint) (*model.KnowledgeNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok || note.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	copied := *note
	return &copied, nil
}

func (f *fakeNoteRepo) ListForRole(role model.Role) ([]model.KnowledgeNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeNote
	for _, note := range f.notes {
		if !note.DeletedAt.Valid && note.AccessLevels.Contains(role) {
			out = append(out, *note)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) ListAll() ([]model.KnowledgeNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeNote
	for _, note := range f.notes {
		if !note.DeletedAt.Valid {
			out = append(out, *note)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) SoftDelete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note, ok := f.notes[id]; ok {
		note.DeletedAt.Valid = true
	}
	return nil
}

func (f *fakeNoteRepo) UpdateVectorID(id uint, vectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note, ok := f.notes[id]; ok {
		note.VectorID = vectorID
	}
	return nil
}

func (f *fakeNoteRepo) FindDeletedWithVector() ([]model.KnowledgeNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeNote
	for _, note := range f.notes {
		if note.DeletedAt.Valid && note.VectorID != "" {
			out = append(out, *note)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) ClearVectorID(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note, ok := f.notes[id]; ok {
		note.VectorID = ""
	}
	return nil
}

// fakeEmbedder 返回固定维度的向量。
type fakeEmbedder struct {
	failing bool
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.failing {
		return nil, errors.New("embedding api down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeFetcher 返回固定内容。
type fakeFetcher struct {
	content string
	// onFetch 在下载发生时回调，用于感知入库已经开始。
	onFetch func()
}

func (f *fakeFetcher) Fetch(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

// passthroughExtractor 原样返回文件内容。
type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(r io.Reader, fileName string) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}
