// Command posd runs the local proxy that keeps the processor API key
// server-side. The browser app talks to /api/* here instead of the
// processor directly.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightningpos/lnpos/gateway"
	lnposhttp "github.com/lightningpos/lnpos/http"
)

func main() {
	baseURL := gateway.ProductionBaseURL
	if os.Getenv("STRIKE_SANDBOX") == "true" {
		baseURL = gateway.SandboxBaseURL
	}

	gw := gateway.NewClient(&gateway.Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("STRIKE_API_KEY"),
	})
	if !gw.Configured() {
		log.Println("warning: STRIKE_API_KEY not set; invoice endpoints will return 500")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: lnposhttp.NewRouter(gw),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on :%s (upstream %s)", port, baseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
