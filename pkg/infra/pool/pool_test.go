package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("池名称不匹配: 期望 test, 实际 %s", p.Name())
	}
	if p.Cap() != 1000 {
		t.Errorf("池容量不匹配: 期望 1000, 实际 %d", p.Cap())
	}
}

func TestNewPoolInvalidConfig(t *testing.T) {
	_, err := NewPool("bad", &Config{Capacity: 0})
	if !errors.Is(err, ErrInvalidPoolConfig) {
		t.Fatalf("期望 ErrInvalidPoolConfig, 实际 %v", err)
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", IngestPoolConfig(10))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}
	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
}

func TestPoolSubmitWithCanceledContext(t *testing.T) {
	p, err := NewPool("test", IngestPoolConfig(2))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.SubmitWithContext(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际 %v", err)
	}
}

func TestPoolRunAll(t *testing.T) {
	p, err := NewPool("ingest", IngestPoolConfig(3))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	boom := errors.New("boom")
	tasks := []func(context.Context) error{
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(context.Context) error { panic("bad task") },
		func(context.Context) error { time.Sleep(10 * time.Millisecond); return nil },
	}

	errs := p.RunAll(context.Background(), tasks)
	if len(errs) != len(tasks) {
		t.Fatalf("错误数量不匹配: 期望 %d, 实际 %d", len(tasks), len(errs))
	}
	if errs[0] != nil || errs[3] != nil {
		t.Errorf("成功任务不应返回错误: %v, %v", errs[0], errs[3])
	}
	if !errors.Is(errs[1], boom) {
		t.Errorf("期望 boom, 实际 %v", errs[1])
	}
	if errs[2] == nil {
		t.Error("panic 任务应返回错误")
	}
}

func TestPoolRunAllCanceled(t *testing.T) {
	p, err := NewPool("ingest", IngestPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	errs := p.RunAll(ctx, []func(context.Context) error{
		func(context.Context) error { ran.Add(1); return nil },
	})
	if !errors.Is(errs[0], context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际 %v", errs[0])
	}
	if ran.Load() != 0 {
		t.Error("ctx 取消后任务不应执行")
	}
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", IngestPoolConfig(1))
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	p.Release()
	p.Release()

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际 %v", err)
	}
}

func TestPoolPanicRecovery(t *testing.T) {
	var handled atomic.Int32
	p, err := NewPool("test", &Config{
		Capacity:       1,
		ExpiryDuration: time.Second,
		PanicHandler:   func(interface{}) { handled.Add(1) },
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if err := p.Submit(func() { panic("test panic") }); err != nil {
		t.Fatalf("提交任务失败: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for handled.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if handled.Load() != 1 {
		t.Errorf("panic 处理次数不匹配: 期望 1, 实际 %d", handled.Load())
	}
	if p.Stats().PanicRecovered != 1 {
		t.Errorf("PanicRecovered 不匹配: %d", p.Stats().PanicRecovered)
	}
}
