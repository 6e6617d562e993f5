// Command storefront runs a small demo of the client against a storefront
// backend. With -stub it starts the in-memory stub backend first, so the
// whole flow (signup, token refresh, optimistic cart mutations) can be
// exercised without any external service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArnaudHalvick/storefront-go/cart"
	"github.com/ArnaudHalvick/storefront-go/internal/stubapi"
	"github.com/ArnaudHalvick/storefront-go/pkg/logger"
	"github.com/ArnaudHalvick/storefront-go/pkg/tracing"
	"github.com/ArnaudHalvick/storefront-go/session"
	"github.com/ArnaudHalvick/storefront-go/storefront"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	useStub := flag.Bool("stub", false, "start the in-memory stub backend and run the demo against it")
	flag.Parse()

	cfg, err := storefront.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("storefront", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, tracing.DefaultConfig("storefront-demo"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	if *useStub {
		baseURL, stop, err := startStub(log)
		if err != nil {
			return fmt.Errorf("start stub backend: %w", err)
		}
		defer stop()
		cfg.BaseURL = baseURL
	}

	sessionPath, err := session.DefaultSessionPath()
	if err != nil {
		return fmt.Errorf("resolve session path: %w", err)
	}
	store, err := session.NewFileStore(sessionPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	client, err := storefront.New(cfg,
		storefront.WithSessionStore(store),
		storefront.WithLogger(log),
		storefront.WithNotifier(storefront.NotifierFuncs{
			OnTokenRefreshFailed: func(err error) {
				log.Warn("session expired", slog.String("error", err.Error()))
			},
			OnEmailVerificationRequired: func(message string) {
				log.Warn("email verification required", slog.String("message", message))
			},
		}),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	log.Info("running demo", slog.String("base_url", cfg.BaseURL))
	return demo(ctx, log, client)
}

// demo signs up a throwaway account, mutates the cart, and prints the
// resulting state.
func demo(ctx context.Context, log *slog.Logger, client *storefront.Client) error {
	email := fmt.Sprintf("demo+%d@example.com", time.Now().UnixNano())
	user, err := client.Signup(ctx, storefront.SignupInput{
		Name:     "Demo User",
		Email:    email,
		Password: "demo-password-1",
	})
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	log.Info("signed up", slog.String("email", user.Email))

	products, err := client.ListProducts(ctx, 1, 10)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	log.Info("catalog", slog.Int("products", len(products.Products)))
	if len(products.Products) == 0 {
		return nil
	}

	tracker := client.NewCartTracker()
	first := products.Products[0]
	size := "One"
	if len(first.Sizes) > 0 {
		size = first.Sizes[0]
	}

	if res := tracker.AddItem(ctx, cart.AddItemInput{ProductID: first.ID, Size: size, Quantity: 2}); !res.Success {
		return fmt.Errorf("add item: %s", res.Message)
	}
	if res := tracker.UpdateQuantity(ctx, cart.UpdateItemInput{ProductID: first.ID, Size: size, Quantity: 3}); !res.Success {
		return fmt.Errorf("update quantity: %s", res.Message)
	}

	for _, line := range tracker.Lines() {
		log.Info("cart line",
			slog.String("product_id", line.ProductID),
			slog.String("size", line.Size),
			slog.Int("quantity", line.Quantity),
			slog.Int64("unit_price_cents", line.UnitPrice),
		)
	}
	log.Info("cart totals",
		slog.Int("items", tracker.ItemCount()),
		slog.Int64("total_cents", tracker.TotalPrice()),
	)

	if err := client.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	log.Info("demo complete")
	return nil
}

// startStub serves the stub backend on an ephemeral local port.
func startStub(log *slog.Logger) (baseURL string, stop func(), err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	server := &http.Server{
		Handler:           stubapi.New(stubapi.Config{AccessTokenTTL: 30 * time.Second}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("stub backend failed", slog.String("error", err.Error()))
		}
	}()

	baseURL = fmt.Sprintf("http://%s/api", listener.Addr())
	log.Info("stub backend listening", slog.String("base_url", baseURL))
	return baseURL, func() { _ = server.Close() }, nil
}
