package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) login(c *gin.Context) {
	if c.PostForm("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}
	username, password := c.PostForm("username"), c.PostForm("password")

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok || u.Password != password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}
	token := uuid.NewString()
	s.tokens[token] = username
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Server) register(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": err.Error()}}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Username]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already registered"})
		return
	}
	u := &user{ID: s.id(), Username: in.Username, Password: in.Password, Email: in.Email, FullName: in.FullName}
	s.users[in.Username] = u
	c.JSON(http.StatusOK, userJSON(u))
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, userJSON(s.users[c.GetString("username")]))
}

func userJSON(u *user) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"is_active": u.Active,
		"is_admin":  u.Admin,
	}
}

func (s *Server) deckJSON(d *deck) gin.H {
	count := 0
	for _, c := range s.cards {
		if c.DeckID == d.ID {
			count++
		}
	}
	return gin.H{"id": d.ID, "name": d.Name, "description": d.Description, "card_count": count}
}

func (s *Server) cardJSON(c *card) gin.H {
	var next any
	if c.NextReview != nil {
		next = c.NextReview.In(s.Loc).Format(localLayout)
	}
	return gin.H{
		"id":             c.ID,
		"deck_id":        c.DeckID,
		"front":          c.Front,
		"back":           c.Back,
		"hint":           c.Hint,
		"tags":           c.Tags,
		"times_reviewed": c.TimesReviewed,
		"next_review":    next,
		"ease_factor":    c.EaseFactor,
	}
}

func (s *Server) eventJSON(e *event) gin.H {
	return gin.H{
		"id":         e.ID,
		"title":      e.Title,
		"start_time": e.Start.In(s.Loc).Format(localLayout),
		"end_time":   e.End.In(s.Loc).Format(localLayout),
		"status":     e.Status,
		"priority":   e.Priority,
	}
}

func diaryJSON(e *diaryEntry) gin.H {
	return gin.H{"_id": e.ID, "date": e.Date, "mood": e.Mood, "content": e.Content}
}

func (s *Server) listDecks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0, len(s.decks))
	for _, d := range s.decks {
		out = append(out, s.deckJSON(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createDeck(c *gin.Context) {
	var in struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &deck{ID: s.id(), Name: in.Name, Description: in.Description}
	s.decks = append(s.decks, d)
	c.JSON(http.StatusOK, s.deckJSON(d))
}

func (s *Server) findDeck(c *gin.Context) *deck {
	id, _ := strconv.Atoi(c.Param("id"))
	for _, d := range s.decks {
		if d.ID == id {
			return d
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Deck not found"})
	return nil
}

func (s *Server) getDeck(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.findDeck(c); d != nil {
		c.JSON(http.StatusOK, s.deckJSON(d))
	}
}

func (s *Server) deleteDeck(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDeck(c)
	if d == nil {
		return
	}
	for i, candidate := range s.decks {
		if candidate == d {
			s.decks = append(s.decks[:i], s.decks[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listCards(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDeck(c)
	if d == nil {
		return
	}
	dueOnly := c.Query("due_only") == "true"
	now := s.Now()
	out := []gin.H{}
	for _, card := range s.cards {
		if card.DeckID != d.ID {
			continue
		}
		if dueOnly && card.NextReview != nil && card.NextReview.After(now) {
			continue
		}
		out = append(out, s.cardJSON(card))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCard(c *gin.Context) {
	var in struct {
		Front string   `json:"front" binding:"required"`
		Back  string   `json:"back" binding:"required"`
		Hint  string   `json:"hint"`
		Tags  []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDeck(c)
	if d == nil {
		return
	}
	created := &card{ID: s.id(), DeckID: d.ID, Front: in.Front, Back: in.Back, Hint: in.Hint, Tags: in.Tags, EaseFactor: 2.5}
	s.cards = append(s.cards, created)
	c.JSON(http.StatusOK, s.cardJSON(created))
}

func (s *Server) findCard(c *gin.Context) *card {
	id, _ := strconv.Atoi(c.Param("id"))
	for _, card := range s.cards {
		if card.ID == id {
			return card
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Card not found"})
	return nil
}

func (s *Server) deleteCard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card := s.findCard(c)
	if card == nil {
		return
	}
	for i, candidate := range s.cards {
		if candidate == card {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reviewCard(c *gin.Context) {
	var in struct {
		Difficulty int `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	switch in.Difficulty {
	case 1, 2, 3, 5:
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "difficulty must be one of 1, 2, 3, 5"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	card := s.findCard(c)
	if card == nil {
		return
	}
	next := s.Now().Add(time.Duration(in.Difficulty) * 24 * time.Hour)
	card.NextReview = &next
	card.TimesReviewed++
	s.reviews = append(s.reviews, Review{CardID: strconv.Itoa(card.ID), Difficulty: in.Difficulty})
	c.JSON(http.StatusOK, s.cardJSON(card))
}

// rangeParams reads start_date and end_date as naive local timestamps.
func (s *Server) rangeParams(c *gin.Context) (start, end time.Time, ok bool) {
	start, end = time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, s.Loc)
	if v := c.Query("start_date"); v != "" {
		t, err := time.ParseInLocation(localLayout, v, s.Loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid start_date"})
			return start, end, false
		}
		start = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.ParseInLocation(localLayout, v, s.Loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid end_date"})
			return start, end, false
		}
		end = t
	}
	return start, end, true
}

func (s *Server) listEvents(c *gin.Context) {
	start, end, ok := s.rangeParams(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gin.H{}
	for _, e := range s.events {
		if e.Start.Before(start) || e.Start.After(end) {
			continue
		}
		out = append(out, s.eventJSON(e))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) setEventStatus(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range s.events {
			if e.ID == id {
				e.Status = status
				c.JSON(http.StatusOK, s.eventJSON(e))
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": "Event not found"})
	}
}

func (s *Server) listDiary(c *gin.Context) {
	start, end, ok := s.rangeParams(c)
	if !ok {
		return
	}
	from, to := start.Format(dayLayout), end.Format(dayLayout)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gin.H{}
	for _, e := range s.diary {
		if e.Date < from || e.Date > to {
			continue
		}
		out = append(out, diaryJSON(e))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDiary(c *gin.Context) {
	day := c.Param("date")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.diary {
		if e.Date == day {
			c.JSON(http.StatusOK, diaryJSON(e))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Diary entry not found"})
}

func (s *Server) listLogs(c *gin.Context) {
	typ := c.Query("type")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gin.H{}
	for _, l := range s.logs {
		if typ != "" && l.Type != typ {
			continue
		}
		out = append(out, logJSON(l))
	}
	c.JSON(http.StatusOK, out)
}

func logJSON(l *improvementLog) gin.H {
	notes := make([]gin.H, 0, len(l.Notes))
	for _, n := range l.Notes {
		notes = append(notes, gin.H{"note": n})
	}
	return gin.H{"id": l.ID, "type": l.Type, "title": l.Title, "status": "active", "progress_notes": notes}
}

func (s *Server) addProgress(c *gin.Context) {
	var in struct {
		Note string `json:"note" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	id, _ := strconv.Atoi(c.Param("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ID == id {
			l.Notes = append(l.Notes, in.Note)
			c.JSON(http.StatusOK, logJSON(l))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Log not found"})
}

func (s *Server) listMaterials(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gin.H{}
	for _, m := range s.materials {
		out = append(out, gin.H{"id": m.ID, "title": m.Title, "source_url": m.URL, "is_archived": false})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) adminStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active, admins int
	for _, u := range s.users {
		if u.Active {
			active++
		}
		if u.Admin {
			admins++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{"total": len(s.users), "active": active, "inactive": len(s.users) - active, "admins": admins},
		"content": gin.H{
			"events":           len(s.events),
			"flashcards":       len(s.cards),
			"diary_entries":    len(s.diary),
			"improvement_logs": len(s.logs),
		},
	})
}

func (s *Server) adminUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) setActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range s.users {
			if u.ID == id {
				u.Active = active
				c.JSON(http.StatusOK, userJSON(u))
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
	}
}

func (s *Server) createEvent(c *gin.Context) {
	var in struct {
		Title     string `json:"title" binding:"required"`
		StartTime string `json:"start_time" binding:"required"`
		EndTime   string `json:"end_time" binding:"required"`
		Priority  string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	start, errStart := time.ParseInLocation(localLayout, in.StartTime, s.Loc)
	end, errEnd := time.ParseInLocation(localLayout, in.EndTime, s.Loc)
	if errStart != nil || errEnd != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "start_time and end_time must be naive local timestamps"})
		return
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &event{ID: s.id(), Title: in.Title, Start: start, End: end, Status: "pending", Priority: in.Priority}
	s.events = append(s.events, e)
	c.JSON(http.StatusOK, s.eventJSON(e))
}

func (s *Server) createDiary(c *gin.Context) {
	var in struct {
		Date    string `json:"date" binding:"required"`
		Mood    string `json:"mood" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.diary {
		if e.Date == in.Date {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Diary entry already exists for this date"})
			return
		}
	}
	e := &diaryEntry{ID: uuid.NewString(), Date: in.Date, Mood: in.Mood, Content: in.Content}
	s.diary = append(s.diary, e)
	c.JSON(http.StatusOK, diaryJSON(e))
}
