package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MockProvider simulates a Glific-style chat provider: templated sends to
// contacts and groups, paged group membership, contact lookup by phone.
type MockProvider struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	providerID   string
	rng          *rand.Rand

	mu       sync.Mutex
	contacts map[string]Contact // keyed by phone
	groups   map[string][]Contact
}

type Contact struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

type SendRequest struct {
	TemplateID string   `json:"template_id" binding:"required"`
	ContactID  string   `json:"contact_id"`
	GroupID    string   `json:"group_id"`
	Parameters []string `json:"parameters"`
}

type SendResponse struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	SentAt    time.Time `json:"sent_at"`
}

func NewMockProvider(deliveryRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	p := &MockProvider{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		providerID:   "MOCK_PROVIDER_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		contacts:     make(map[string]Contact),
		groups:       make(map[string][]Contact),
	}
	p.seed()
	return p
}

// seed creates a deterministic set of contacts and a few groups so local
// runs have something to send to.
func (p *MockProvider) seed() {
	for i := 1; i <= 1200; i++ {
		c := Contact{
			ID:    fmt.Sprintf("contact-%d", i),
			Phone: fmt.Sprintf("+10000000%04d", i),
			Name:  fmt.Sprintf("Contact %d", i),
		}
		p.contacts[c.Phone] = c

		switch {
		case i <= 1000:
			p.groups["group-large"] = append(p.groups["group-large"], c)
		case i <= 1100:
			p.groups["group-medium"] = append(p.groups["group-medium"], c)
		default:
			p.groups["group-small"] = append(p.groups["group-small"], c)
		}
	}
}

func (p *MockProvider) simulateSend() (*SendResponse, bool) {
	delay := p.minDelay
	if p.maxDelay > p.minDelay {
		delay += time.Duration(p.rng.Int63n(int64(p.maxDelay - p.minDelay)))
	}
	time.Sleep(delay)

	if p.rng.Float64() >= p.deliveryRate {
		return nil, false
	}
	return &SendResponse{
		MessageID: uuid.NewString(),
		Status:    "sent",
		SentAt:    time.Now(),
	}, true
}

type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

func (h *Handler) SendToContact(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, ok := h.provider.simulateSend()
	if !ok {
		log.Warn().Str("contact_id", req.ContactID).Str("template_id", req.TemplateID).Msg("Simulated delivery failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
		return
	}

	log.Info().Str("contact_id", req.ContactID).Str("template_id", req.TemplateID).Msg("Message sent to contact")
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SendToGroup(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	h.provider.mu.Lock()
	_, exists := h.provider.groups[req.GroupID]
	h.provider.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	resp, ok := h.provider.simulateSend()
	if !ok {
		log.Warn().Str("group_id", req.GroupID).Msg("Simulated group delivery failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
		return
	}

	log.Info().Str("group_id", req.GroupID).Str("template_id", req.TemplateID).Msg("Message sent to group")
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetGroupContacts(c *gin.Context) {
	groupID := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "500"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 500
	}

	h.provider.mu.Lock()
	members, exists := h.provider.groups[groupID]
	h.provider.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	start := (page - 1) * size
	if start >= len(members) {
		c.JSON(http.StatusOK, gin.H{"contacts": []Contact{}})
		return
	}
	end := start + size
	if end > len(members) {
		end = len(members)
	}

	c.JSON(http.StatusOK, gin.H{"contacts": members[start:end]})
}

func (h *Handler) GetContactByPhone(c *gin.Context) {
	phone := c.Query("phone")

	h.provider.mu.Lock()
	contact, exists := h.provider.contacts[phone]
	h.provider.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"provider_id":   h.provider.providerID,
		"timestamp":     time.Now(),
		"delivery_rate": h.provider.deliveryRate,
	})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1 {
		h.provider.deliveryRate = *config.DeliveryRate
		log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.provider.deliveryRate,
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

	v1 := router.Group("/api/v1")
	{
		v1.POST("/messages/contact", handler.SendToContact)
		v1.POST("/messages/group", handler.SendToGroup)
		v1.GET("/contact-groups/:id/contacts", handler.GetGroupContacts)
		v1.GET("/contacts", handler.GetContactByPhone)
		v1.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 200*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting mock chat provider")

	provider := NewMockProvider(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(provider)
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
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
