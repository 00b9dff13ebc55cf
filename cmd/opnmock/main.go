package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mock Opn Payments gateway for local development. It mimics the small part
// of the real API the backend talks to: create source, create charge, fetch
// charge. Charges start pending and settle after a configurable delay,
// optionally notifying a webhook endpoint.

type source struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type scannableImage struct {
	DownloadURI string `json:"download_uri"`
}

type scannableCode struct {
	Image scannableImage `json:"image"`
}

type chargeSource struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	ScannableCode *scannableCode `json:"scannable_code,omitempty"`
}

type charge struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Paid     bool          `json:"paid"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	Source   *chargeSource `json:"source,omitempty"`

	createdAt time.Time
	settled   bool
}

type createSourceRequest struct {
	Type     string `json:"type" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

type createChargeRequest struct {
	Amount   int64  `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Source   string `json:"source" binding:"required"`
}

type webhookEvent struct {
	Key  string  `json:"key"`
	Data *charge `json:"data"`
}

func marshalEvent(ch *charge) ([]byte, error) {
	return json.Marshal(webhookEvent{Key: "charge.complete", Data: ch})
}

// MockGateway keeps all state in memory. Restarting it forgets everything,
// which is fine for local runs.
type MockGateway struct {
	mu          sync.Mutex
	sources     map[string]*source
	charges     map[string]*charge
	successRate float64
	settleDelay time.Duration
	webhookURL  string
	baseURL     string
	rng         *rand.Rand
}

func NewMockGateway(successRate float64, settleDelay time.Duration, webhookURL, baseURL string) *MockGateway {
	return &MockGateway{
		sources:     make(map[string]*source),
		charges:     make(map[string]*charge),
		successRate: successRate,
		settleDelay: settleDelay,
		webhookURL:  webhookURL,
		baseURL:     baseURL,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *MockGateway) createSource(req *createSourceRequest) *source {
	g.mu.Lock()
	defer g.mu.Unlock()

	src := &source{
		ID:       "src_" + uuid.New().String()[:13],
		Type:     req.Type,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	g.sources[src.ID] = src
	return src
}

func (g *MockGateway) createCharge(req *createChargeRequest) (*charge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.sources[req.Source]
	if !ok {
		return nil, false
	}

	ch := &charge{
		ID:       "chrg_" + uuid.New().String()[:13],
		Status:   "pending",
		Amount:   req.Amount,
		Currency: req.Currency,
		Source: &chargeSource{
			ID:   src.ID,
			Type: src.Type,
		},
		createdAt: time.Now(),
	}
	ch.Source.ScannableCode = &scannableCode{
		Image: scannableImage{
			DownloadURI: fmt.Sprintf("%s/charges/%s/qr.png", g.baseURL, ch.ID),
		},
	}
	g.charges[ch.ID] = ch
	return ch, true
}

// getCharge settles the charge once its delay has elapsed, then returns it.
func (g *MockGateway) getCharge(id string) (*charge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.charges[id]
	if !ok {
		return nil, false
	}

	if !ch.settled && time.Since(ch.createdAt) >= g.settleDelay {
		g.settleLocked(ch, g.rng.Float64() < g.successRate)
	}
	return ch, true
}

func (g *MockGateway) forceSettle(id string, status string) (*charge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.charges[id]
	if !ok {
		return nil, false
	}
	ch.settled = true
	ch.Status = status
	ch.Paid = status == "successful"
	g.notify(ch)
	return ch, true
}

func (g *MockGateway) settleLocked(ch *charge, success bool) {
	ch.settled = true
	if success {
		ch.Status = "successful"
		ch.Paid = true
	} else {
		ch.Status = "failed"
	}

	log.Info().
		Str("charge_id", ch.ID).
		Str("status", ch.Status).
		Msg("Charge settled")

	g.notify(ch)
}

// notify posts a charge.complete event to the configured webhook endpoint.
// Fire and forget, the backend reconciles by polling anyway.
func (g *MockGateway) notify(ch *charge) {
	if g.webhookURL == "" {
		return
	}

	snapshot := *ch
	go func() {
		body, err := marshalEvent(&snapshot)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to marshal webhook event")
			return
		}
		resp, err := http.Post(g.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("charge_id", snapshot.ID).Msg("Webhook delivery failed")
			return
		}
		resp.Body.Close()
		log.Info().
			Str("charge_id", snapshot.ID).
			Int("status", resp.StatusCode).
			Msg("Webhook delivered")
	}()
}

type Handler struct {
	gateway *MockGateway
}

func NewHandler(gateway *MockGateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	src := h.gateway.createSource(&req)

	log.Info().
		Str("source_id", src.ID).
		Int64("amount", src.Amount).
		Str("currency", src.Currency).
		Msg("Source created")

	c.JSON(http.StatusOK, src)
}

func (h *Handler) CreateCharge(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	ch, ok := h.gateway.createCharge(&req)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	log.Info().
		Str("charge_id", ch.ID).
		Int64("amount", ch.Amount).
		Msg("Charge created")

	c.JSON(http.StatusOK, ch)
}

func (h *Handler) GetCharge(c *gin.Context) {
	ch, ok := h.gateway.getCharge(c.Param("charge_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "charge not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

// SettleCharge flips a charge to the given terminal status on demand, so a
// payment flow can be driven end to end without waiting for the timer.
func (h *Handler) SettleCharge(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	ch, ok := h.gateway.forceSettle(c.Param("charge_id"), req.Status)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "charge not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"success_rate": h.gateway.successRate,
		"timestamp":    time.Now(),
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/sources", handler.CreateSource)
	router.POST("/charges", handler.CreateCharge)
	router.GET("/charges/:charge_id", handler.GetCharge)
	router.POST("/charges/:charge_id/settle", handler.SettleCharge)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8090")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	settleDelay := getEnvDuration("SETTLE_DELAY", 10*time.Second)
	webhookURL := getEnv("WEBHOOK_URL", "")
	baseURL := getEnv("BASE_URL", "http://localhost:"+port)

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("settle_delay", settleDelay).
		Str("webhook_url", webhookURL).
		Msg("Starting mock payment gateway")

	gateway := NewMockGateway(successRate, settleDelay, webhookURL, baseURL)
	handler := NewHandler(gateway)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
