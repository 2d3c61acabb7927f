package ragsvc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/ollama"
)

const (
	checkPrompt = "Hello"

	// 往返检查使用固定 ID, 重复执行只覆盖同一条文档。
	checkDocumentID = "connection-test"
	checkDocument   = "Test document for connection testing."
	checkQuestion   = "What is this test about?"
)

// RunCheck 检查生成后端与文档存储的连通性并输出汇总。
func (cfg *Config) RunCheck(ctx context.Context, out io.Writer) error {
	if err := app.InitLogger(cfg.LogOptions, Name); err != nil {
		return err
	}
	defer app.FlushLogger()

	line := strings.Repeat("=", 60)
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, "Sentinel RAG Connection Test")
	fmt.Fprintln(out, line)

	fmt.Fprintln(out, "Testing generation backend...")
	genOK := false
	if cfg.GenerationOptions.Provider == ollama.ProviderName {
		fmt.Fprintf(out, "  Using host: %s\n", ollama.NormalizeHost(cfg.GenerationOptions.Host))
	}
	generator, err := llm.NewGenerationProvider(cfg.GenerationOptions.Provider, cfg.GenerationOptions.ToConfigMap())
	if err != nil {
		fmt.Fprintf(out, "  ✗ %v\n", err)
	} else {
		genOK = checkGeneration(ctx, generator, out)
	}

	fmt.Fprintf(out, "\nTesting document store (%s)...\n", cfg.RAGOptions.Store)
	storeOK, appOK := false, false
	comps, err := newComponents(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "  ✗ %v\n", err)
	} else {
		storeOK = checkStore(ctx, comps.store, out)

		fmt.Fprintln(out, "\nTesting add and query round trip...")
		if genOK && storeOK {
			appOK = checkRoundTrip(ctx, comps.service, out)
		} else {
			fmt.Fprintln(out, "  ✗ Skipped, backend or store unavailable")
		}
		_ = comps.close(ctx)
	}

	fmt.Fprintln(out, "\n"+line)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Generation: %s\n", status(genOK))
	fmt.Fprintf(out, "  Store:      %s\n", status(storeOK))
	fmt.Fprintf(out, "  App:        %s\n", status(appOK))
	fmt.Fprintln(out, line)

	if !genOK || !storeOK || !appOK {
		return fmt.Errorf("connection check failed")
	}
	fmt.Fprintln(out, "\n✓ All checks passed!")
	return nil
}

// checkGeneration 先探活再发送一次最小生成请求。
func checkGeneration(ctx context.Context, generator llm.GenerationProvider, out io.Writer) bool {
	if p, ok := generator.(llm.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Backend unreachable: %v\n", err)
			return false
		}
	}

	resp, err := generator.Generate(ctx, checkPrompt, "")
	if err != nil {
		fmt.Fprintf(out, "  ✗ Generation failed: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "  ✓ Generation backend connection successful")
	fmt.Fprintf(out, "  ✓ Sample response: %s...\n", truncate(resp.Content, 50))
	return true
}

func checkStore(ctx context.Context, s store.DocumentStore, out io.Writer) bool {
	count, err := s.Count(ctx)
	if err != nil {
		fmt.Fprintf(out, "  ✗ Store unavailable: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "  ✓ Document store connection successful")
	fmt.Fprintf(out, "  ✓ Store has %d documents\n", count)
	return true
}

// checkRoundTrip 写入一条测试文档后发起查询, 覆盖完整的检索与生成链路。
func checkRoundTrip(ctx context.Context, svc biz.Service, out io.Writer) bool {
	if _, err := svc.AddDocument(ctx, checkDocument, checkDocumentID); err != nil {
		fmt.Fprintf(out, "  ✗ Add failed: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "  ✓ Add endpoint working")

	res, err := svc.Query(ctx, checkQuestion)
	if err != nil {
		fmt.Fprintf(out, "  ✗ Query failed: %v\n", err)
		return false
	}
	fmt.Fprintln(out, "  ✓ Query endpoint working")
	fmt.Fprintf(out, "  ✓ Answer: %s...\n", truncate(res.Answer, 50))
	return true
}

func status(ok bool) string {
	if ok {
		return "✓ OK"
	}
	return "✗ FAILED"
}

// truncate 按字符截断, 避免截断多字节字符。
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
