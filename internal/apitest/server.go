// Package apitest runs an in-memory stand-in for the productivity backend.
// It speaks the same JSON shapes as the real service, including its quirks
// (numeric ids, "_id" keys on diary entries, naive local timestamps).
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	prefix      = "/api/v1"
	localLayout = "2006-01-02T15:04:05"
	dayLayout   = "2006-01-02"
)

// Review is one review the server accepted.
type Review struct {
	CardID     string
	Difficulty int
}

type user struct {
	ID       int
	Username string
	Password string
	Email    string
	FullName string
	Active   bool
	Admin    bool
}

type deck struct {
	ID          int
	Name        string
	Description string
}

type card struct {
	ID            int
	DeckID        int
	Front         string
	Back          string
	Hint          string
	Tags          []string
	TimesReviewed int
	NextReview    *time.Time
	EaseFactor    float64
}

type event struct {
	ID       int
	Title    string
	Start    time.Time
	End      time.Time
	Status   string
	Priority string
}

type diaryEntry struct {
	ID      string
	Date    string
	Mood    string
	Content string
}

type improvementLog struct {
	ID    int
	Type  string
	Title string
	Notes []string
}

type material struct {
	ID    int
	Title string
	URL   string
}

// Server is a fake backend. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	// Now is the server clock used for due-card filtering and rescheduling.
	Now func() time.Time
	// Loc is the zone naive timestamps are written in.
	Loc *time.Location

	mu        sync.Mutex
	nextID    int
	users     map[string]*user
	tokens    map[string]string
	decks     []*deck
	cards     []*card
	events    []*event
	diary     []*diaryEntry
	logs      []*improvementLog
	materials []*material
	reviews   []Review
	failures  map[string][]int
	calls     map[string]int
}

// New starts a fake backend. Callers must Close it.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Now:      time.Now,
		Loc:      time.Local,
		nextID:   1,
		users:    make(map[string]*user),
		tokens:   make(map[string]string),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// BaseURL is the API root clients should be pointed at.
func (s *Server) BaseURL() string {
	return s.URL + prefix
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countCalls(), s.injectFailures())

	v1 := r.Group(prefix)
	v1.POST("/auth/login", s.login)
	v1.POST("/users/", s.register)

	authed := v1.Group("", s.requireToken())
	authed.GET("/users/me", s.me)

	authed.GET("/flashcards/decks", s.listDecks)
	authed.POST("/flashcards/decks", s.createDeck)
	authed.GET("/flashcards/decks/:id", s.getDeck)
	authed.DELETE("/flashcards/decks/:id", s.deleteDeck)
	authed.GET("/flashcards/decks/:id/cards", s.listCards)
	authed.POST("/flashcards/decks/:id/cards", s.createCard)
	authed.DELETE("/flashcards/cards/:id", s.deleteCard)
	authed.POST("/flashcards/cards/:id/review", s.reviewCard)

	authed.GET("/calendar/events", s.listEvents)
	authed.POST("/calendar/events", s.createEvent)
	authed.POST("/calendar/events/:id/complete", s.setEventStatus("completed"))
	authed.POST("/calendar/events/:id/skip", s.setEventStatus("skipped"))

	authed.GET("/diary/entries", s.listDiary)
	authed.POST("/diary/entries", s.createDiary)
	authed.GET("/diary/entries/:date", s.getDiary)

	authed.GET("/improvement-log", s.listLogs)
	authed.POST("/improvement-log/:id/progress", s.addProgress)
	authed.GET("/learning-materials/", s.listMaterials)

	admin := authed.Group("/admin", s.requireAdmin())
	admin.GET("/stats", s.adminStats)
	admin.GET("/users", s.adminUsers)
	admin.PUT("/users/:id/activate", s.setActive(true))
	admin.PUT("/users/:id/deactivate", s.setActive(false))

	return r
}

func routeKey(method, fullPath string) string {
	return method + " " + strings.TrimPrefix(fullPath, prefix)
}

// FailNext makes the next call to method+route answer with status instead of
// being handled. route uses gin syntax, e.g. "/flashcards/cards/:id/review".
func (s *Server) FailNext(method, route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	s.failures[key] = append(s.failures[key], status)
}

// Calls reports how many requests reached method+route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

func (s *Server) countCalls() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[routeKey(c.Request.Method, c.FullPath())]++
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := routeKey(c.Request.Method, c.FullPath())
		s.mu.Lock()
		queue := s.failures[key]
		status := 0
		if len(queue) > 0 {
			status = queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure"})
			return
		}
		c.Next()
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		s.mu.Lock()
		username, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		u := s.users[c.GetString("username")]
		s.mu.Unlock()
		if u == nil || !u.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not enough permissions"})
			return
		}
		c.Next()
	}
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(username, password string, active, admin bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{ID: s.id(), Username: username, Password: password, Email: username + "@example.com", Active: active, Admin: admin}
	s.users[username] = u
	return strconv.Itoa(u.ID)
}

// IssueToken returns a valid bearer token for username without a login round trip.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token, as if all sessions expired.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// AddDeck seeds a deck and returns its id.
func (s *Server) AddDeck(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &deck{ID: s.id(), Name: name}
	s.decks = append(s.decks, d)
	return strconv.Itoa(d.ID)
}

// AddCard seeds a card. A nil nextReview means never reviewed.
func (s *Server) AddCard(deckID, front, back string, nextReview *time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	did, _ := strconv.Atoi(deckID)
	c := &card{ID: s.id(), DeckID: did, Front: front, Back: back, NextReview: nextReview, EaseFactor: 2.5}
	s.cards = append(s.cards, c)
	return strconv.Itoa(c.ID)
}

// AddEvent seeds a calendar event.
func (s *Server) AddEvent(title string, start, end time.Time, status string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &event{ID: s.id(), Title: title, Start: start, End: end, Status: status, Priority: "medium"}
	s.events = append(s.events, e)
	return strconv.Itoa(e.ID)
}

// AddDiaryEntry seeds a diary entry for day (YYYY-MM-DD).
func (s *Server) AddDiaryEntry(day, mood string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &diaryEntry{ID: uuid.NewString(), Date: day, Mood: mood}
	s.diary = append(s.diary, e)
	return e.ID
}

// AddImprovementLog seeds an improvement or distraction log.
func (s *Server) AddImprovementLog(typ, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &improvementLog{ID: s.id(), Type: typ, Title: title}
	s.logs = append(s.logs, l)
	return strconv.Itoa(l.ID)
}

// AddMaterial seeds a learning material.
func (s *Server) AddMaterial(title, url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &material{ID: s.id(), Title: title, URL: url}
	s.materials = append(s.materials, m)
	return strconv.Itoa(m.ID)
}

// Reviews returns the reviews accepted so far, in order.
func (s *Server) Reviews() []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Review(nil), s.reviews...)
}

// Cards returns the fronts of all cards in a deck, in creation order.
func (s *Server) Cards(deckID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	did, _ := strconv.Atoi(deckID)
	var fronts []string
	for _, c := range s.cards {
		if c.DeckID == did {
			fronts = append(fronts, c.Front)
		}
	}
	return fronts
}

// EventStatus returns the stored status of an event.
func (s *Server) EventStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if strconv.Itoa(e.ID) == id {
			return e.Status
		}
	}
	return ""
}

// id must be called with mu held.
func (s *Server) id() int {
	id := s.nextID
	s.nextID++
	return id
}
