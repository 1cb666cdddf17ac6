package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"ofi-stream-go/config"
	"ofi-stream-go/feed"
	"ofi-stream-go/sink"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			// 启动失败，回滚已启动的组件
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start %s failed: %w", component.Name(), err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", m.components[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("%s unhealthy: %w", component.Name(), err)
		}
	}
	return nil
}

// httpServerComponent HTTP服务器组件；Start 同步 Listen，端口占用会直接返回错误
type httpServerComponent struct {
	name    string
	server  *http.Server
	logger  *zap.Logger
	started bool
	mu      sync.Mutex
}

func (h *httpServerComponent) Name() string { return h.name }

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		h.logger.Info("listening", zap.String("component", h.name), zap.String("addr", ln.Addr().String()))
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("serve failed", zap.String("component", h.name), zap.Error(err))
		}
	}()
	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}
	h.logger.Info("stopped", zap.String("component", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// feedComponent 在后台运行全部订阅的 Supervisor
type feedComponent struct {
	supervisors []*feed.Supervisor
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (f *feedComponent) Name() string { return "feed" }

func (f *feedComponent) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		err := feed.RunAll(runCtx, f.supervisors...)
		f.logger.Info("feed stopped", zap.Error(err))
	}()
	return nil
}

func (f *feedComponent) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel = nil
	f.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("feed did not stop in time")
	}
}

// Health 至少一个订阅处于 Subscribed 时为健康
func (f *feedComponent) Health() error {
	for _, s := range f.supervisors {
		if s.State() == feed.Subscribed {
			return nil
		}
	}
	return errors.New("no subscription is streaming")
}

// sinkComponent 停止时关闭所有输出
type sinkComponent struct {
	sinks []sink.Sink
}

func (s *sinkComponent) Name() string                { return "sinks" }
func (s *sinkComponent) Start(context.Context) error { return nil }
func (s *sinkComponent) Health() error               { return nil }

func (s *sinkComponent) Stop() error {
	var errs []error
	for i := len(s.sinks) - 1; i >= 0; i-- {
		if err := s.sinks[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.sinks[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// watcherComponent 配置文件变更时回调
type watcherComponent struct {
	watcher config.Watcher
	apply   func(config.AppConfig)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (w *watcherComponent) Name() string  { return "config_watcher" }
func (w *watcherComponent) Health() error { return nil }

func (w *watcherComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go func() { _ = w.watcher.Start(runCtx, w.apply) }()
	return nil
}

func (w *watcherComponent) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	return nil
}
