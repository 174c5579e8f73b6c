// Package gatewaytest provides an in-process double of the ticket backend
// for integration tests: the same REST contract, auth scheme and CSRF rules
// the real gateway exposes, backed by in-memory state.
package gatewaytest

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminEmail and AdminPassword are the seeded staff credentials.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "correct-horse"
	csrfCookie    = "csrftoken"
)

type wireUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type wireTicket struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	CreatedByName  string    `json:"created_by_name"`
	CreatedByEmail string    `json:"created_by_email"`
	AssignedTo     *wireUser `json:"assigned_to"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type wireActivity struct {
	ID        string    `json:"id"`
	Ticket    string    `json:"ticket"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is the fake backend. All state lives in memory behind one mutex.
type Server struct {
	app    *fiber.App
	ln     net.Listener
	tokens *tokenManager

	mu           sync.Mutex
	admin        wireUser
	passwordHash []byte
	revoked      map[string]bool
	tickets      []*wireTicket
	activities   []*wireActivity
	clock        time.Time
}

// NewServer seeds an admin account and wires the routes. Call Start to
// listen on a random local port.
func NewServer() *Server {
	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s := &Server{
		tokens: newTokenManager(uuid.NewString(), time.Hour),
		admin: wireUser{
			ID:        uuid.NewString(),
			Username:  "admin",
			Email:     AdminEmail,
			FirstName: "Ada",
			LastName:  "Admin",
		},
		passwordHash: hash,
		revoked:      make(map[string]bool),
		clock:        time.Now().UTC().Truncate(time.Second),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/auth/login/", s.handleLogin)
	app.Post("/auth/logout/", s.requireAuth, s.requireCSRF, s.handleLogout)
	app.Get("/auth/user/", s.requireAuth, s.handleCurrentUser)

	app.Get("/tickets/", s.handleListTickets)
	app.Post("/tickets/", s.requireCSRFIfCookie, s.handleCreateTicket)
	app.Get("/tickets/:id/", s.handleGetTicket)
	app.Patch("/tickets/:id/", s.requireAuth, s.requireCSRF, s.handleUpdateTicket)
	app.Get("/tickets/:id/activities/", s.handleListActivities)
	app.Post("/activities/", s.requireAuth, s.requireCSRF, s.handleCreateActivity)

	s.app = app
	return s
}

// Start listens on 127.0.0.1:0 and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		_ = s.app.Listener(ln)
	}()
	return nil
}

// URL returns the base URL clients should use.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.ln.Addr().String())
}

// Stop shuts the server down.
func (s *Server) Stop() {
	_ = s.app.Shutdown()
}

// SeedTicket injects a ticket directly into the backend state and returns
// its id. Each seeded ticket is created one minute after the previous one.
func (s *Server) SeedTicket(title, description, status, priority, name, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Minute)
	ticket := &wireTicket{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    description,
		Status:         status,
		Priority:       priority,
		CreatedByName:  name,
		CreatedByEmail: email,
		CreatedAt:      s.clock,
		UpdatedAt:      s.clock,
	}
	s.tickets = append(s.tickets, ticket)
	return ticket.ID
}

// ActivityCount reports how many activities exist for a ticket.
func (s *Server) ActivityCount(ticketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, act := range s.activities {
		if act.Ticket == ticketID {
			count++
		}
	}
	return count
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return detail(c, fiber.StatusBadRequest, "Email and password required.")
	}

	s.mu.Lock()
	admin := s.admin
	hash := s.passwordHash
	s.mu.Unlock()

	if !strings.EqualFold(req.Email, admin.Email) {
		return detail(c, fiber.StatusBadRequest, "Invalid credentials.")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid credentials.")
	}

	token, err := s.tokens.issue(admin.ID)
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "token issue failed")
	}
	s.setCSRFCookie(c)
	return c.JSON(fiber.Map{"token": token, "user": admin})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	token := bearerToken(c)
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleCurrentUser(c *fiber.Ctx) error {
	s.mu.Lock()
	admin := s.admin
	s.mu.Unlock()
	return c.JSON(admin)
}

func (s *Server) handleListTickets(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listed := make([]wireTicket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		listed = append(listed, *ticket)
	}
	// Newest first, matching the backend's default ordering.
	sort.SliceStable(listed, func(i, j int) bool {
		return listed[i].CreatedAt.After(listed[j].CreatedAt)
	})
	return c.JSON(listed)
}

func (s *Server) handleGetTicket(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := s.findTicketLocked(c.Params("id"))
	if ticket == nil {
		return detail(c, fiber.StatusNotFound, "Not found.")
	}
	return c.JSON(*ticket)
}

func (s *Server) handleCreateTicket(c *fiber.Ctx) error {
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		Priority       string `json:"priority"`
		CreatedByName  string `json:"created_by_name"`
		CreatedByEmail string `json:"created_by_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}
	if req.Title == "" || req.Description == "" || req.CreatedByName == "" || req.CreatedByEmail == "" {
		return detail(c, fiber.StatusBadRequest, "missing required fields")
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	s.mu.Lock()
	s.clock = s.clock.Add(time.Minute)
	ticket := &wireTicket{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Status:         "new",
		Priority:       req.Priority,
		CreatedByName:  req.CreatedByName,
		CreatedByEmail: req.CreatedByEmail,
		CreatedAt:      s.clock,
		UpdatedAt:      s.clock,
	}
	s.tickets = append(s.tickets, ticket)
	// The backend records an initial activity on every creation.
	s.activities = append(s.activities, &wireActivity{
		ID:        uuid.NewString(),
		Ticket:    ticket.ID,
		Type:      "comment",
		Message:   "Ticket created",
		CreatedBy: req.CreatedByName,
		CreatedAt: s.clock,
	})
	created := *ticket
	s.mu.Unlock()

	s.setCSRFCookie(c)
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) handleUpdateTicket(c *fiber.Ctx) error {
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Priority    *string `json:"priority"`
		AssignedTo  *string `json:"assigned_to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := s.findTicketLocked(c.Params("id"))
	if ticket == nil {
		return detail(c, fiber.StatusNotFound, "Not found.")
	}
	if req.Title != nil {
		ticket.Title = *req.Title
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Status != nil {
		ticket.Status = *req.Status
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == s.admin.ID {
			admin := s.admin
			ticket.AssignedTo = &admin
		} else {
			return detail(c, fiber.StatusBadRequest, "unknown assignee")
		}
	}
	s.clock = s.clock.Add(time.Minute)
	ticket.UpdatedAt = s.clock
	return c.JSON(*ticket)
}

func (s *Server) handleListActivities(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findTicketLocked(c.Params("id")) == nil {
		return detail(c, fiber.StatusNotFound, "Not found.")
	}
	ticketID := c.Params("id")
	listed := make([]wireActivity, 0)
	for _, act := range s.activities {
		if act.Ticket == ticketID {
			listed = append(listed, *act)
		}
	}
	sort.SliceStable(listed, func(i, j int) bool {
		return listed[i].CreatedAt.Before(listed[j].CreatedAt)
	})
	return c.JSON(listed)
}

func (s *Server) handleCreateActivity(c *fiber.Ctx) error {
	var req struct {
		Ticket    string `json:"ticket"`
		Type      string `json:"type"`
		Message   string `json:"message"`
		CreatedBy string `json:"created_by"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findTicketLocked(req.Ticket) == nil {
		return detail(c, fiber.StatusBadRequest, "unknown ticket")
	}
	s.clock = s.clock.Add(time.Minute)
	activity := &wireActivity{
		ID:        uuid.NewString(),
		Ticket:    req.Ticket,
		Type:      req.Type,
		Message:   req.Message,
		CreatedBy: req.CreatedBy,
		CreatedAt: s.clock,
	}
	s.activities = append(s.activities, activity)
	return c.Status(fiber.StatusCreated).JSON(*activity)
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return detail(c, fiber.StatusUnauthorized, "Authentication credentials were not provided.")
	}
	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return detail(c, fiber.StatusUnauthorized, "Invalid token.")
	}
	if _, err := s.tokens.validate(token); err != nil {
		return detail(c, fiber.StatusUnauthorized, "Invalid token.")
	}
	return c.Next()
}

// requireCSRF enforces the double-submit check: the X-CSRFToken header must
// match the csrftoken cookie.
func (s *Server) requireCSRF(c *fiber.Ctx) error {
	cookie := c.Cookies(csrfCookie)
	header := c.Get("X-CSRFToken")
	if cookie == "" || header == "" || cookie != header {
		return detail(c, fiber.StatusForbidden, "CSRF verification failed.")
	}
	return c.Next()
}

// requireCSRFIfCookie lets the public create endpoint through for clients
// that have never received a csrftoken cookie, but still verifies the
// header when one is present.
func (s *Server) requireCSRFIfCookie(c *fiber.Ctx) error {
	if c.Cookies(csrfCookie) == "" {
		return c.Next()
	}
	return s.requireCSRF(c)
}

func (s *Server) setCSRFCookie(c *fiber.Ctx) {
	if c.Cookies(csrfCookie) != "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:  csrfCookie,
		Value: uuid.NewString(),
		Path:  "/",
	})
}

func (s *Server) findTicketLocked(id string) *wireTicket {
	for _, ticket := range s.tickets {
		if ticket.ID == id {
			return ticket
		}
	}
	return nil
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
		return ""
	}
	return parts[1]
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}
