package ragsvc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
)

// IngestOptions 控制 ingest 命令的行为。
type IngestOptions struct {
	// Paths 待导入的文件, 为空时使用 rag.default-file。
	Paths []string
	// ID 覆盖单个文件的文档 ID。
	ID string
	// Watch 导入后持续监听文件变更并重新导入。
	Watch bool
}

// RunIngest 导入文本文件到知识库。
func (cfg *Config) RunIngest(ctx context.Context, opts IngestOptions, out io.Writer) error {
	if err := app.InitLogger(cfg.LogOptions, Name); err != nil {
		return err
	}
	defer app.FlushLogger()

	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{cfg.RAGOptions.DefaultFile}
	}

	comps, err := newComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.close(context.Background()); err != nil {
			logger.Warnw("Failed to release resources", "error", err.Error())
		}
	}()

	ing := NewIngester(comps.service, out)
	if err := ing.Ingest(ctx, paths, opts.ID); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return ing.Watch(ctx, paths, opts.ID)
}

// Ingester 将文本文件写入知识库, 文档 ID 默认取文件名。
type Ingester struct {
	service  biz.Service
	out      io.Writer
	debounce time.Duration
}

// NewIngester creates an Ingester that reports progress to out.
func NewIngester(service biz.Service, out io.Writer) *Ingester {
	if out == nil {
		out = io.Discard
	}
	return &Ingester{
		service:  service,
		out:      out,
		debounce: 200 * time.Millisecond,
	}
}

// Ingest 导入 paths。指定 id 时只允许一个文件。
func (i *Ingester) Ingest(ctx context.Context, paths []string, id string) error {
	if id != "" {
		if len(paths) != 1 {
			return fmt.Errorf("--id can only be used with a single file, got %d", len(paths))
		}
		return i.ingestOne(ctx, paths[0], id)
	}

	results, err := i.service.IngestFiles(ctx, paths)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(i.out, "✗ Error: %s: %v\n", r.Path, r.Err)
			continue
		}
		i.report(r)
	}
	return err
}

func (i *Ingester) ingestOne(ctx context.Context, path, id string) error {
	res, err := i.service.IngestFile(ctx, path, id)
	if err != nil {
		fmt.Fprintf(i.out, "✗ Error: %v\n", err)
		return err
	}
	i.report(res)
	return nil
}

func (i *Ingester) report(r *biz.IngestResult) {
	fmt.Fprintf(i.out, "✓ Successfully embedded '%s' with ID '%s'\n", r.Path, r.ID)
}

// Watch 监听 paths 所在目录, 文件写入或重建后重新导入, 直到 ctx 结束。
// 监听目录而不是文件本身, 编辑器替换文件时仍能收到事件。
func (i *Ingester) Watch(ctx context.Context, paths []string, id string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logger.Infow("Watching files for changes", "files", len(targets))

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	// 同一文件的连续事件合并为一次导入
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		pending[path] = time.AfterFunc(i.debounce, func() {
			defer wg.Done()
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			if _, err := os.Stat(path); err != nil {
				return
			}
			if err := i.ingestOne(ctx, path, id); err != nil {
				logger.Warnw("Re-ingest failed", "path", path, "error", err.Error())
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[abs]; ok {
				schedule(abs)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("File watcher error", "error", err.Error())
		}
	}
}
