package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/killallgit/strand/pkg/api"
	"github.com/killallgit/strand/pkg/config"
	"github.com/killallgit/strand/pkg/history"
	"github.com/killallgit/strand/pkg/logger"
	"github.com/killallgit/strand/pkg/session"
)

// App wires the backend client, the session controller, and the local
// history cache into the CLI chat loop
type App struct {
	cfg            *config.Config
	client         *api.Client
	controller     *session.Controller
	history        *history.Store
	conversationID string
	userLabel      string
	log            *logger.Logger

	mu      sync.Mutex
	printed int
}

// NewApp builds the application from loaded configuration
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.WithComponent("app")
	log.Info("Application starting", "backend", cfg.Backend.URL)

	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Token,
		api.WithTimeout(cfg.Backend.Timeout))

	app := &App{
		cfg:    cfg,
		client: client,
		log:    log,
	}

	ctx := context.Background()

	// Profile fetch is cosmetic; a failure falls back to a generic label
	if profile, err := client.GetProfile(ctx); err == nil {
		if profile.DisplayName != "" {
			app.userLabel = profile.DisplayName
		} else {
			app.userLabel = profile.Username
		}
	} else {
		log.Warn("Profile fetch failed", "error", err)
	}

	conv, err := client.GetOrCreateConversation(ctx, cfg.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}
	app.conversationID = conv.ID
	log.Info("Conversation ready", "conversation", conv.ID)

	app.controller = session.NewController(client,
		session.WithSenderID(app.userLabel),
		session.WithReconcileTuning(cfg.Reconcile.Delay, cfg.Reconcile.Attempts, cfg.Reconcile.FetchLimit),
		session.WithUpdateHandler(app.onUpdate),
		session.WithErrorHandler(func(conversationID string, err error) {
			renderNotice(os.Stderr, fmt.Sprintf("message failed: %v", err))
		}),
	)

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.Path)
		if err != nil {
			// The cache is a convenience; chat works without it
			log.Warn("History cache unavailable", "error", err)
		} else {
			app.history = store
		}
	}

	if viper.GetBool("continue") && app.history != nil {
		if cached, err := app.history.Load(app.conversationID); err == nil && len(cached) > 0 {
			app.controller.Store(app.conversationID).ReplaceAll(cached)
			renderTranscript(os.Stdout, cached, app.userLabel)
			renderNotice(os.Stdout, fmt.Sprintf("restored %d cached messages", len(cached)))
		}
	}

	return app, nil
}

// onUpdate prints freshly streamed tokens as they arrive
func (a *App) onUpdate(conversationID string) {
	sess, ok := a.controller.Active(conversationID)
	if !ok {
		return
	}

	content, _ := sess.Snapshot()
	a.mu.Lock()
	if len(content) > a.printed {
		fmt.Print(content[a.printed:])
		a.printed = len(content)
	}
	a.mu.Unlock()
}

// RunPrompt sends one message, streams the response live, and renders
// the reconciled transcript entry once tools have been placed
func (a *App) RunPrompt(ctx context.Context, prompt string) error {
	a.mu.Lock()
	a.printed = 0
	a.mu.Unlock()

	fmt.Printf("%s\n", aiPrefixStyle.Render("ai:"))

	sess, err := a.controller.Send(ctx, a.conversationID, prompt)
	if err != nil {
		return err
	}

	<-sess.Done()
	fmt.Println()

	if err := sess.Err(); err != nil {
		return err
	}

	// Re-render the canonical message when it carries tool usages so
	// the indicators show up at their reconciled positions
	store := a.controller.Store(a.conversationID)
	if last, ok := store.Last(); ok && last.IsAI() && last.HasToolUsages() {
		renderMessage(os.Stdout, last, a.userLabel)
	}

	a.saveHistory()
	return nil
}

// RunInteractive reads lines from stdin until EOF or /quit
func (a *App) RunInteractive(ctx context.Context) error {
	renderNotice(os.Stdout, "type a message and press enter, /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		if err := a.RunPrompt(ctx, line); err != nil {
			if err == session.ErrStreamActive {
				renderNotice(os.Stderr, "still streaming, hold on")
				continue
			}
			renderNotice(os.Stderr, fmt.Sprintf("send failed: %v", err))
		}
	}

	return scanner.Err()
}

// saveHistory caches the canonical transcript locally
func (a *App) saveHistory() {
	if a.history == nil {
		return
	}
	messages := a.controller.Store(a.conversationID).Messages()
	if err := a.history.Save(a.conversationID, messages); err != nil {
		a.log.Warn("Failed to save history", "error", err)
	}
}

// Cleanup tears down sessions and closes the history cache
func (a *App) Cleanup() {
	a.controller.Close()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("Failed to close history cache", "error", err)
		}
	}
}
