package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal"
	"github.com/daiyunwei1998/customer-chat/pkg/auth"
	"github.com/daiyunwei1998/customer-chat/pkg/bus"
	"github.com/daiyunwei1998/customer-chat/pkg/chat"
	"github.com/daiyunwei1998/customer-chat/pkg/logger"
	"github.com/daiyunwei1998/customer-chat/pkg/tenant"
	"github.com/daiyunwei1998/customer-chat/pkg/transport"
)

func chatCmd(tenantAlias, userID, host string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if host != "" {
		cfg.Chat.Host = host
	}

	if userID == "" {
		userID = "guest-" + uuid.New().String()[:8]
	}

	credential := ""
	if cred, err := auth.LoadCredential(internal.GetCredentialPath()); err == nil && cred != nil {
		credential = cred.Token
		logger.InfoCF("chat", "Using saved credential", map[string]any{"tenant_id": cred.TenantID})
	}

	events := bus.NewEventBus()
	session := chat.NewSession(
		transport.NewDialer(cfg.Chat.Host),
		tenant.NewClient(cfg.Tenant.Host),
		events,
		chat.Options{
			ReconnectDelay:       time.Duration(cfg.Session.ReconnectDelaySeconds) * time.Second,
			MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
			HandshakeTimeout:     time.Duration(cfg.Session.HandshakeTimeoutSeconds) * time.Second,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go renderEvents(ctx, events, userID)

	fmt.Printf("%s Connecting to %s as %s...\n", internal.Logo, tenantAlias, userID)
	if err := session.ConnectAlias(ctx, tenantAlias, userID, credential); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return fmt.Errorf("tenant %q not found", tenantAlias)
		}
		return fmt.Errorf("error resolving tenant: %w", err)
	}

	defer func() {
		session.Disconnect()
		events.Close()
	}()

	fmt.Printf("%s Type a message and press Enter. /quit to leave.\n\n", internal.Logo)
	return inputLoop(session)
}

func inputLoop(session *chat.Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".customer_chat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("error initializing readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			fmt.Println("Goodbye!")
			return nil
		case "/status":
			fmt.Printf("state: %s", session.State())
			if reason := session.CloseReason(); reason != "" {
				fmt.Printf(" (%s)", reason)
			}
			fmt.Printf(", messages: %d\n", session.Store().Len())
			continue
		}

		if err := session.Send(input); err != nil {
			if errors.Is(err, chat.ErrNotConnected) {
				fmt.Println("Not connected yet; message discarded.")
				continue
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// renderEvents prints session events above the prompt until the bus closes.
func renderEvents(ctx context.Context, events *bus.EventBus, selfID string) {
	typingShown := false
	for {
		ev, ok := events.Consume(ctx)
		if !ok {
			return
		}
		switch ev.Kind {
		case bus.EventMessage:
			if typingShown {
				typingShown = false
			}
			who := ev.Sender
			if who == selfID {
				who = "you"
			}
			fmt.Printf("\r[%s] %s: %s\n", ev.Timestamp.Format("15:04:05"), who, ev.Content)
		case bus.EventTyping:
			if ev.Typing && !typingShown {
				typingShown = true
				fmt.Print("\ragent is typing...\n")
			} else if !ev.Typing {
				typingShown = false
			}
		case bus.EventState:
			switch ev.State {
			case "joined":
				fmt.Print("\r✅ Connected.\n")
			case "connecting":
				fmt.Print("\r⏳ Reconnecting...\n")
			case "closed":
				if ev.Reason != "" && ev.Reason != "user-initiated" {
					fmt.Printf("\r❌ Session closed: %s\n", ev.Reason)
				}
			}
		case bus.EventError:
			logger.DebugCF("chat", "Session error", map[string]any{"error": ev.Err})
		}
	}
}
