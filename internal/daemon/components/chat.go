package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/polaris/internal/chat"
	"github.com/harunnryd/polaris/internal/cms"
	"github.com/harunnryd/polaris/internal/config"
	"github.com/harunnryd/polaris/internal/daemon"
	"github.com/harunnryd/polaris/internal/model"
	"github.com/harunnryd/polaris/internal/tool"
	"github.com/harunnryd/polaris/internal/tool/contentstack"
)

// ChatComponent wires the LLM provider, the CMS tools and the session store
// into the chat service.
type ChatComponent struct {
	cfg         *config.Config
	sessions    *SessionStoreComponent
	activity    *ActivityLogComponent
	service     *chat.Service
	runner      *tool.Runner
	initialized bool
	mu          sync.RWMutex
}

func NewChatComponent(cfg *config.Config, sessions *SessionStoreComponent, activity *ActivityLogComponent) *ChatComponent {
	return &ChatComponent{cfg: cfg, sessions: sessions, activity: activity}
}

func (c *ChatComponent) Name() string {
	return "Chat"
}

func (c *ChatComponent) Dependencies() []string {
	return []string{"SessionStore", "ActivityLog"}
}

func (c *ChatComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.sessions.Store()
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}

	provider, err := model.NewProvider(ctx, c.cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}

	cmsClient, err := cms.New(c.cfg.CMS)
	if err != nil {
		return fmt.Errorf("create cms client: %w", err)
	}

	c.runner = tool.NewRunner(contentstack.NewRegistry(cmsClient))

	var recorder chat.Recorder
	if log := c.activity.Log(); log != nil {
		recorder = log
	}

	c.service = chat.NewService(provider, c.runner, store, recorder, chat.OptionsFromConfig(c.cfg))
	c.initialized = true
	slog.Info("Chat initialized", "component", c.Name(), "provider", provider.Name(), "model", c.cfg.LLM.Model, "tools", len(c.runner.Definitions()))
	return nil
}

func (c *ChatComponent) Start(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return fmt.Errorf("Chat not initialized")
	}
	return nil
}

func (c *ChatComponent) Stop(ctx context.Context) error {
	return nil
}

func (c *ChatComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if err := config.ValidateCredentials(c.cfg.Credentials()); err != nil {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: true}, nil
}

func (c *ChatComponent) Service() *chat.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.service
}

func (c *ChatComponent) Runner() *tool.Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runner
}
