// Package backendtest runs a scriptable in-process marketplace backend for
// tests. It serves the same endpoints the real backend exposes and records
// every call per resource.
package backendtest

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
)

// DepositScript describes how the fake backend answers status checks for one
// deposit.
type DepositScript struct {
	// PendingChecks is the number of GETs answered with "pending" before
	// FinalStatus is reported.
	PendingChecks int
	// FinalStatus is "paid" or "failed". Empty means pending forever.
	FinalStatus string
	Amount      int64
	Balance     int64

	// StatusCode, if non-zero, makes every GET fail with that HTTP status.
	StatusCode int
	// TransientFailures makes the first N GETs fail with HTTP 500.
	TransientFailures int
}

// ActivationScript describes how the fake backend answers SMS checks for one
// activation.
type ActivationScript struct {
	// PendingChecks is the number of GETs answered with a null sms.
	PendingChecks int
	// SMS is reported once PendingChecks is exhausted. Empty means pending
	// forever.
	SMS string

	// StatusCode, if non-zero, makes every GET fail with that HTTP status.
	StatusCode int
}

// PurchaseScript configures the purchase endpoint.
type PurchaseScript struct {
	PhoneNumber  string
	ActivationID string
	Error        string
}

type depositState struct {
	script     DepositScript
	getCalls   int
	markFailed int
	marked     bool
}

type activationState struct {
	script   ActivationScript
	getCalls int
}

// Server is the fake backend.
type Server struct {
	app *fiber.App
	ln  net.Listener

	mu          sync.Mutex
	deposits    map[string]*depositState
	activations map[string]*activationState
	purchase    PurchaseScript
	offerings   []map[string]any

	createDepositError string
	lastIdempotencyKey string
	lastCreateAmount   int64
}

// New builds and starts a server on an ephemeral port.
func New() (*Server, error) {
	s := &Server{
		deposits:    make(map[string]*depositState),
		activations: make(map[string]*activationState),
	}

	app := fiber.New(fiber.Config{
		AppName: "boostpanel-backendtest",
	})

	app.Get("/api/deposit/status/:depositID/", s.handleDepositStatus)
	app.Post("/api/deposit/status/:depositID/", s.handleMarkDeposit)
	app.Post("/api/deposit/create/", s.handleCreateDeposit)
	app.Get("/api/virtualnumbers/services/", s.handleListOfferings)
	app.Post("/api/virtualnumbers/purchase/", s.handlePurchase)
	app.Get("/api/virtualnumbers/sms/:activationID/", s.handleActivationSMS)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s.app = app
	s.ln = ln

	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	return s, nil
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close() {
	_ = s.app.Shutdown()
}

// ScriptDeposit installs the reply script for a deposit id.
func (s *Server) ScriptDeposit(depositID string, script DepositScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[depositID] = &depositState{script: script}
}

// ScriptActivation installs the reply script for an activation id.
func (s *Server) ScriptActivation(activationID string, script ActivationScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activations[activationID] = &activationState{script: script}
}

// ScriptPurchase installs the purchase endpoint reply.
func (s *Server) ScriptPurchase(script PurchaseScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchase = script
}

// ScriptOfferings installs the services listing reply.
func (s *Server) ScriptOfferings(offerings []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offerings = offerings
}

// ScriptCreateDepositError makes deposit creation answer with an error body.
func (s *Server) ScriptCreateDepositError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createDepositError = message
}

// DepositGetCalls returns the number of status GETs seen for a deposit.
func (s *Server) DepositGetCalls(depositID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.deposits[depositID]; ok {
		return st.getCalls
	}
	return 0
}

// DepositMarkFailedCalls returns the number of mark-failed POSTs seen.
func (s *Server) DepositMarkFailedCalls(depositID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.deposits[depositID]; ok {
		return st.markFailed
	}
	return 0
}

// ActivationGetCalls returns the number of SMS GETs seen for an activation.
func (s *Server) ActivationGetCalls(activationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.activations[activationID]; ok {
		return st.getCalls
	}
	return 0
}

// LastIdempotencyKey returns the idempotency key of the last create call.
func (s *Server) LastIdempotencyKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIdempotencyKey
}

// LastCreateAmount returns the amount of the last create call.
func (s *Server) LastCreateAmount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCreateAmount
}

func bearerToken(c fiber.Ctx) string {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func (s *Server) handleDepositStatus(c fiber.Ctx) error {
	if bearerToken(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	depositID := c.Params("depositID")

	s.mu.Lock()
	st, ok := s.deposits[depositID]
	if !ok {
		s.mu.Unlock()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "deposit not found"})
	}

	st.getCalls++
	call := st.getCalls
	script := st.script
	marked := st.marked
	s.mu.Unlock()

	if script.StatusCode != 0 {
		return c.Status(script.StatusCode).JSON(fiber.Map{"error": "deposit check rejected"})
	}
	if call <= script.TransientFailures {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "temporary backend error"})
	}

	// A forced mark wins over the script; terminal statuses stay stable.
	if marked {
		return c.JSON(fiber.Map{"status": "failed"})
	}

	if script.FinalStatus == "" || call <= script.PendingChecks {
		return c.JSON(fiber.Map{"status": "pending"})
	}

	if script.FinalStatus == "paid" {
		return c.JSON(fiber.Map{
			"status":  "paid",
			"amount":  script.Amount,
			"balance": script.Balance,
		})
	}

	return c.JSON(fiber.Map{"status": script.FinalStatus})
}

func (s *Server) handleMarkDeposit(c fiber.Ctx) error {
	if bearerToken(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	depositID := c.Params("depositID")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Status != "failed" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "only failed may be forced"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.deposits[depositID]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "deposit not found"})
	}

	st.markFailed++
	st.marked = true

	return c.JSON(fiber.Map{"status": "failed"})
}

func (s *Server) handleCreateDeposit(c fiber.Ctx) error {
	if bearerToken(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	s.mu.Lock()
	s.lastIdempotencyKey = c.Get("X-Idempotency-Key")
	s.lastCreateAmount = req.Amount
	createErr := s.createDepositError
	s.mu.Unlock()

	if createErr != "" {
		return c.JSON(fiber.Map{"error": createErr})
	}

	return c.JSON(fiber.Map{
		"authorization_url": "https://pay.example.com/authorize/" + c.Get("X-Idempotency-Key"),
	})
}

func (s *Server) handleListOfferings(c fiber.Ctx) error {
	service := c.Query("service")
	country := c.Query("country")
	if service == "" || country == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "service and country are required"})
	}

	s.mu.Lock()
	offerings := s.offerings
	s.mu.Unlock()

	if offerings == nil {
		offerings = []map[string]any{}
	}

	return c.JSON(fiber.Map{"services": offerings})
}

func (s *Server) handlePurchase(c fiber.Ctx) error {
	if bearerToken(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req struct {
		Service  string `json:"service"`
		Country  string `json:"country"`
		Duration string `json:"duration"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Service == "" || req.Country == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "service and country are required"})
	}

	s.mu.Lock()
	purchase := s.purchase
	s.mu.Unlock()

	if purchase.Error != "" {
		return c.JSON(fiber.Map{"error": purchase.Error})
	}

	return c.JSON(fiber.Map{
		"phone_number":  purchase.PhoneNumber,
		"activation_id": purchase.ActivationID,
	})
}

func (s *Server) handleActivationSMS(c fiber.Ctx) error {
	if bearerToken(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	activationID := c.Params("activationID")

	s.mu.Lock()
	st, ok := s.activations[activationID]
	if !ok {
		s.mu.Unlock()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "activation not found"})
	}

	st.getCalls++
	call := st.getCalls
	script := st.script
	s.mu.Unlock()

	if script.StatusCode != 0 {
		return c.Status(script.StatusCode).JSON(fiber.Map{"error": "activation check rejected"})
	}

	if script.SMS == "" || call <= script.PendingChecks {
		return c.JSON(fiber.Map{"sms": nil})
	}

	return c.JSON(fiber.Map{"sms": script.SMS})
}
