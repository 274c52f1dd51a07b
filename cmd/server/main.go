package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/commerce-orchestrator/internal/circuitbreaker"
	"github.com/yourorg/commerce-orchestrator/internal/commerce"
	"github.com/yourorg/commerce-orchestrator/internal/config"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/gateway/paypal"
	"github.com/yourorg/commerce-orchestrator/internal/monitor"
	"github.com/yourorg/commerce-orchestrator/internal/partner"
	"github.com/yourorg/commerce-orchestrator/internal/policy"
	"github.com/yourorg/commerce-orchestrator/internal/reporting"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

type server struct {
	purchases *commerce.PurchaseService
	capture   *commerce.CaptureProcessor
	admin     commerce.GatewayAdministrator
	monitor   *monitor.ContractMonitor
	recorder  *reporting.Recorder
	payments  config.PaymentRepository
	branding  config.BrandingRepository
}

type purchaseRequest struct {
	CustomerID    string                 `json:"customerId"`
	Operation     commerce.OperationType `json:"operation"`
	RedirectURL   string                 `json:"redirectUrl"`
	Subscriptions []commerce.LineItem    `json:"subscriptions"`
}

func (s *server) createPurchaseHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}
	valid, violations, err := s.monitor.Validate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}

	var req purchaseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}

	order := commerce.PurchaseOrder{
		CustomerID:    req.CustomerID,
		Operation:     req.Operation,
		Subscriptions: req.Subscriptions,
	}
	checkoutURL, err := s.purchases.Checkout(c.Request.Context(), req.RedirectURL, order)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"checkoutUrl": checkoutURL})
}

func (s *server) purchaseReturnHandler(c *gin.Context) {
	if c.Query("payment") != "success" {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment was canceled at the provider"})
		return
	}
	payerID := c.Query("PayerID")
	paymentID := c.Query("paymentId")
	if payerID == "" || paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PayerID and paymentId query parameters are required"})
		return
	}

	outcome, err := s.purchases.CompletePurchase(c.Request.Context(), payerID, paymentID)
	if err != nil {
		c.JSON(statusForKind(faults.KindOf(err)), gin.H{
			"sagaId":    outcome.SagaID,
			"faultKind": outcome.FaultKind,
			"detail":    outcome.Detail,
			"decision":  outcome.Decision,
		})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *server) captureHandler(c *gin.Context) {
	code := c.Param("authorizationId")
	if err := s.capture.Capture(c.Request.Context(), code); err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorizationCode": code, "captured": true})
}

type adminConfigRequest struct {
	Payment  config.PaymentConfig  `json:"payment"`
	Branding config.BrandingConfig `json:"branding"`
}

func (s *server) adminConfigHandler(c *gin.Context) {
	var req adminConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	ctx := c.Request.Context()

	if err := s.admin.ValidateConfiguration(ctx, req.Payment); err != nil {
		respondFault(c, err)
		return
	}
	profileID, err := s.admin.CreateWebExperienceProfile(ctx, req.Payment, req.Branding)
	if err != nil {
		respondFault(c, err)
		return
	}
	req.Payment.WebExperienceProfileID = profileID
	if err := s.payments.Update(req.Payment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persisting payment configuration: " + err.Error()})
		return
	}
	if err := s.branding.Update(req.Branding); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persisting branding configuration: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webExperienceProfileId": profileID})
}

func (s *server) retrospectiveHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.recorder.Report())
}

func respondFault(c *gin.Context, err error) {
	kind := faults.KindOf(err)
	c.JSON(statusForKind(kind), gin.H{"faultKind": kind, "detail": err.Error()})
}

func statusForKind(kind faults.Kind) int {
	switch kind {
	case faults.InvalidInput:
		return http.StatusBadRequest
	case faults.AlreadyExists:
		return http.StatusConflict
	case faults.PaymentGatewayPaymentError:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}

func setupRouter(s *server) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("commerce-orchestrator"))

	router.POST("/api/purchases", s.createPurchaseHandler)
	router.GET("/api/purchases/return", s.purchaseReturnHandler)
	router.POST("/api/payments/:authorizationId/capture", s.captureHandler)
	router.POST("/api/admin/payment-config", s.adminConfigHandler)
	router.GET("/api/admin/retrospective", s.retrospectiveHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	shutdown, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Tracer shutdown: %v", err)
		}
	}()

	currencyDecimals, err := strconv.Atoi(envOr("CURRENCY_DECIMAL_DIGITS", "2"))
	if err != nil {
		log.Fatalf("CURRENCY_DECIMAL_DIGITS must be an integer: %v", err)
	}

	paymentsRepo := config.NewInMemoryPaymentRepository(config.PaymentConfig{
		ClientID:               os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret:           os.Getenv("PAYPAL_CLIENT_SECRET"),
		AccountType:            envOr("PAYPAL_ACCOUNT_TYPE", config.AccountSandbox),
		WebExperienceProfileID: os.Getenv("PAYPAL_WEB_EXPERIENCE_PROFILE_ID"),
	})
	brandingRepo := config.NewInMemoryBrandingRepository(config.BrandingConfig{
		OrganizationName:      envOr("ORGANIZATION_NAME", "Customer Portal"),
		LogoURL:               os.Getenv("ORGANIZATION_LOGO_URL"),
		LocaleCode:            envOr("LOCALE_CODE", "US"),
		CurrencyCode:          envOr("CURRENCY_CODE", "USD"),
		CurrencyDecimalDigits: currencyDecimals,
	})

	breaker := circuitbreaker.New(circuitbreaker.Config{})
	gateway := paypal.NewAdapter(nil, paymentsRepo, brandingRepo, breaker, "Customer portal purchase")
	orders := partner.NewClient(nil, envOr("PARTNER_API_URL", "http://localhost:9090"), os.Getenv("PARTNER_API_KEY"))

	enforcer, err := policy.NewEnforcer(policy.DefaultRules())
	if err != nil {
		log.Fatalf("Failed to compile policy rules: %v", err)
	}
	contractMonitor, err := monitor.NewContractMonitor()
	if err != nil {
		log.Fatalf("Failed to compile request schema: %v", err)
	}

	notifier := commerce.NewLogNotifier()
	recorder := reporting.NewRecorder()
	purchases := commerce.NewPurchaseService(gateway, orders, brandingRepo, saga.NewOrchestrator(), enforcer, notifier, recorder)

	s := &server{
		purchases: purchases,
		capture:   commerce.NewCaptureProcessor(gateway, notifier),
		admin:     gateway,
		monitor:   contractMonitor,
		recorder:  recorder,
		payments:  paymentsRepo,
		branding:  brandingRepo,
	}

	log.Println("Starting server...")
	if err := setupRouter(s).Run(":" + envOr("PORT", "8080")); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
