package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"deptkb-go/internal/model"
	"deptkb-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(docs *fakeDocRepo, notes *fakeNoteRepo, index *fakeIndex, content string) *Processor {
	return NewProcessor(docs, notes, index, &fakeEmbedder{}, &fakeFetcher{content: content}, passthroughExtractor{})
}

func seedDocument(t *testing.T, docs *fakeDocRepo) *model.Document {
	t.Helper()
	doc := &model.Document{
		FileName:     "a1b2c3.pdf",
		OriginalName: "研究生培养方案.pdf",
		AccessLevel:  model.RoleStudent,
		Status:       model.DocStatusProcessing,
	}
	require.NoError(t, docs.Create(doc))
	return doc
}

func TestProcessDocumentVectorsWrittenBeforeProcessed(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	doc := seedDocument(t, docs)

	// 长文本会切出多个分块
	content := strings.Repeat("培养方案要求研究生完成学位课程并通过中期考核。", 200)
	proc := newTestProcessor(docs, newFakeNoteRepo(), index, content)

	// 状态切到 processed 的时刻，所有向量必须已经在索引中
	var vectorsAtTransition int
	docs.onMarkProcessed = func() {
		vectorsAtTransition = index.size()
	}

	err := proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
		DocumentID: doc.ID, FileName: doc.FileName,
	})
	require.NoError(t, err)

	stored, err := docs.FindByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusProcessed, stored.Status)
	assert.Greater(t, stored.ChunkCount, 1)
	assert.Len(t, stored.VectorIDs, stored.ChunkCount)
	assert.Equal(t, stored.ChunkCount, vectorsAtTransition)

	remaining, err := index.FetchIDs(context.Background(), []string(stored.VectorIDs))
	require.NoError(t, err)
	assert.Len(t, remaining, stored.ChunkCount)
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	doc := seedDocument(t, docs)
	proc := newTestProcessor(docs, newFakeNoteRepo(), index, strings.Repeat("内容段落。", 500))

	task := tasks.DocumentProcessingTask{DocumentID: doc.ID, FileName: doc.FileName}
	require.NoError(t, proc.ProcessDocument(context.Background(), task))
	first := index.size()

	// 重复消费同一任务不应产生多余向量
	require.NoError(t, proc.ProcessDocument(context.Background(), task))
	assert.Equal(t, first, index.size())
}

func TestProcessDocumentIndexFailureMarksFailed(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	index.failing = true
	doc := seedDocument(t, docs)
	proc := newTestProcessor(docs, newFakeNoteRepo(), index, "一些内容")

	err := proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
		DocumentID: doc.ID, FileName: doc.FileName,
	})
	require.Error(t, err)

	stored, err := docs.FindByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusFailed, stored.Status)
	assert.Empty(t, stored.VectorIDs)
}

func TestProcessDocumentEmbedFailureMarksFailed(t *testing.T) {
	docs := newFakeDocRepo()
	doc := seedDocument(t, docs)
	proc := NewProcessor(docs, newFakeNoteRepo(), newFakeIndex(),
		&fakeEmbedder{failing: true}, &fakeFetcher{content: "一些内容"}, passthroughExtractor{})

	err := proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
		DocumentID: doc.ID, FileName: doc.FileName,
	})
	require.Error(t, err)

	stored, err := docs.FindByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusFailed, stored.Status)
}

func TestProcessDocumentSkipsDeleted(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	doc := seedDocument(t, docs)
	require.NoError(t, docs.SoftDelete(doc.ID))

	proc := newTestProcessor(docs, newFakeNoteRepo(), index, "一些内容")
	err := proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
		DocumentID: doc.ID, FileName: doc.FileName,
	})
	require.NoError(t, err)
	assert.Zero(t, index.size())
}

func TestPurgeSourceIsIdempotent(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	doc := seedDocument(t, docs)
	proc := newTestProcessor(docs, newFakeNoteRepo(), index, strings.Repeat("内容。", 600))

	require.NoError(t, proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
		DocumentID: doc.ID, FileName: doc.FileName,
	}))
	require.Greater(t, index.size(), 0)
	require.NoError(t, docs.SoftDelete(doc.ID))

	task := tasks.VectorPurgeTask{SourceID: "1", SourceType: model.SourceTypeDocument}
	require.NoError(t, proc.PurgeSource(context.Background(), task))
	assert.Zero(t, index.size())

	// 重复清理不报错
	require.NoError(t, proc.PurgeSource(context.Background(), task))

	stored, err := docs.FindByIDUnscoped(doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.VectorIDs)
}

func TestKeyedLocksMutualExclusion(t *testing.T) {
	locks := newKeyedLocks()
	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				unlock := locks.Lock("document:1")
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestConcurrentIngestAndPurgeSerialized(t *testing.T) {
	docs := newFakeDocRepo()
	index := newFakeIndex()
	// 写入前注入延迟，制造入库与清理的竞争窗口
	index.upsertDelay = 30 * time.Millisecond
	doc := seedDocument(t, docs)

	started := make(chan struct{})
	fetcher := &fakeFetcher{
		content: strings.Repeat("内容。", 600),
		onFetch: func() { close(started) },
	}
	proc := NewProcessor(docs, newFakeNoteRepo(), index, &fakeEmbedder{}, fetcher, passthroughExtractor{})

	var wg sync.WaitGroup
	var processErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		processErr = proc.ProcessDocument(context.Background(), tasks.DocumentProcessingTask{
			DocumentID: doc.ID, FileName: doc.FileName,
		})
	}()

	// 入库进行中发起清理。同一文档的入库与清理必须串行：
	// 清理要等入库落完向量后才执行，不能在写入中途穿插。
	<-started
	require.NoError(t, proc.PurgeSource(context.Background(), tasks.VectorPurgeTask{
		SourceID: "1", SourceType: model.SourceTypeDocument,
	}))
	wg.Wait()
	require.NoError(t, processErr)

	// 清理确认完成后，索引中不得残留该文档的任何向量
	residue, err := index.FetchBySource(context.Background(), model.SourceTypeDocument, "1")
	require.NoError(t, err)
	assert.Empty(t, residue)
	assert.Zero(t, index.size())

	stored, err := docs.FindByIDUnscoped(doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.VectorIDs)
}

func TestSplitText(t *testing.T) {
	// 短文本不切块
	chunks := splitText("短文本", chunkSize, chunkOverlap)
	require.Len(t, chunks, 1)

	// 长文本按窗口切块且相邻块有重叠
	text := strings.Repeat("学位论文评审流程说明。", 200)
	chunks = splitText(text, chunkSize, chunkOverlap)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), chunkSize)
	}

	// 空白文本没有分块
	assert.Nil(t, splitText("   ", chunkSize, chunkOverlap))
}
