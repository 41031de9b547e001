package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/models"
)

func init() {
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		RateLimitPerMinute: 100000,
		AdminUsernames:     []string{"admin"},
	})
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t  *testing.T
	r  *gin.Engine
	db *gorm.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, r: SetupRouter(NewDeps(db, prometheus.NewRegistry())), db: db}
}

func (h *harness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func (h *harness) mustOK(method, path, token string, body interface{}, out interface{}) {
	h.t.Helper()
	code, env := h.do(method, path, token, body)
	if code != http.StatusOK && code != http.StatusCreated {
		h.t.Fatalf("%s %s = %d %s", method, path, code, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			h.t.Fatalf("%s %s: %v", method, path, err)
		}
	}
}

func (h *harness) register(name string) (string, uint) {
	h.t.Helper()
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	h.mustOK(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": name, "password": "correct-horse"}, &out)
	return out.Token, out.User.ID
}

type idOnly struct {
	ID uint `json:"id"`
}

type progressOut struct {
	Progress struct {
		Updated []struct {
			ChallengeID uint `json:"challenge_id"`
			Progress    int  `json:"progress"`
			Completed   bool `json:"completed"`
		} `json:"updated"`
		Completed []struct {
			ChallengeID uint `json:"challenge_id"`
		} `json:"completed"`
		Partial bool `json:"partial"`
	} `json:"progress"`
}

func TestRegisterLoginMe(t *testing.T) {
	h := newHarness(t)
	h.register("alice")

	if code, _ := h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "alice", "password": "correct-horse"}); code != http.StatusConflict {
		t.Fatalf("duplicate register = %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "bob", "password": "short"}); code != http.StatusBadRequest {
		t.Fatalf("weak password = %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong-horse"}); code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", code)
	}

	var login struct {
		Token string `json:"token"`
	}
	h.mustOK(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "correct-horse"}, &login)

	var me struct {
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
	h.mustOK(http.MethodGet, "/api/v1/auth/me", login.Token, nil, &me)
	if me.Username != "alice" || me.IsAdmin {
		t.Fatalf("me = %+v", me)
	}
}

func TestCommunityMealChallengeCompletesAndAnnounces(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")

	var club idOnly
	h.mustOK(http.MethodPost, "/api/v1/communities", alice, gin.H{"name": "Green Club"}, &club)

	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{
		"name": "Eat Greens", "type": "meal", "level": 2, "community_id": club.ID,
	}, &ch)
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/challenges/%d/join", ch.ID), alice, nil, nil)

	var created progressOut
	h.mustOK(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{
		"foods":     []gin.H{{"name": "kale", "calories": 50}, {"name": "spinach", "calories": 20}},
		"exercises": []gin.H{{"name": "walk", "calories": 100}},
	}, &created)
	if len(created.Progress.Completed) != 1 || created.Progress.Completed[0].ChallengeID != ch.ID || created.Progress.Partial {
		t.Fatalf("progress = %+v", created.Progress)
	}

	var feed struct {
		Items []models.FeedPost `json:"items"`
	}
	h.mustOK(http.MethodGet, fmt.Sprintf("/api/v1/communities/%d/feed", club.ID), alice, nil, &feed)
	if len(feed.Items) != 1 || feed.Items[0].Content != `alice has completed the "Eat Greens" challenge.` {
		t.Fatalf("feed = %+v", feed.Items)
	}

	// one log per user and day
	if code, _ := h.do(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{}); code != http.StatusConflict {
		t.Fatalf("second log = %d", code)
	}

	var stats map[string]int64
	h.mustOK(http.MethodGet, "/api/v1/stats", "", nil, &stats)
	if stats["completion_count"] != 1 || stats["feed_post_count"] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestUpdateLogAddsProgress(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")

	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "Move", "type": "Activity", "level": 5}, &ch)
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/challenges/%d/join", ch.ID), alice, nil, nil)

	var created struct {
		Log idOnly `json:"log"`
	}
	h.mustOK(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{"exercises": []gin.H{{"name": "run"}}}, &created)

	var updated progressOut
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/daily-logs/%d", created.Log.ID), alice, gin.H{
		"exercises": []gin.H{{"name": "swim"}, {"name": "bike"}},
	}, &updated)
	if n := len(updated.Progress.Updated); n != 2 || updated.Progress.Updated[1].Progress != 3 {
		t.Fatalf("updated = %+v", updated.Progress.Updated)
	}

	bob, _ := h.register("bob")
	if code, _ := h.do(http.MethodPut, fmt.Sprintf("/api/v1/daily-logs/%d", created.Log.ID), bob, gin.H{}); code != http.StatusNotFound {
		t.Fatalf("foreign log = %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/v1/daily-logs", bob, gin.H{"foods": []gin.H{{"name": "  "}}}); code != http.StatusBadRequest {
		t.Fatalf("blank item = %d", code)
	}
}

func TestJoinRules(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")
	bob, _ := h.register("bob")

	var club idOnly
	h.mustOK(http.MethodPost, "/api/v1/communities", alice, gin.H{"name": "Runners"}, &club)
	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "Club Run", "type": "Activity", "level": 3, "community_id": club.ID}, &ch)

	join := fmt.Sprintf("/api/v1/challenges/%d/join", ch.ID)
	if code, _ := h.do(http.MethodPut, join, bob, nil); code != http.StatusForbidden {
		t.Fatalf("non-member join = %d", code)
	}
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/communities/%d/join", club.ID), bob, nil, nil)
	h.mustOK(http.MethodPut, join, bob, nil, nil)
	if code, _ := h.do(http.MethodPut, join, bob, nil); code != http.StatusConflict {
		t.Fatalf("second join = %d", code)
	}
	if code, _ := h.do(http.MethodPut, "/api/v1/challenges/999/join", bob, nil); code != http.StatusNotFound {
		t.Fatalf("unknown challenge join = %d", code)
	}

	var mine struct {
		Items []struct {
			Challenge idOnly `json:"challenge"`
		} `json:"items"`
	}
	h.mustOK(http.MethodGet, fmt.Sprintf("/api/v1/users/me/challenges?community_id=%d", club.ID), bob, nil, &mine)
	if len(mine.Items) != 1 || mine.Items[0].Challenge.ID != ch.ID {
		t.Fatalf("mine = %+v", mine.Items)
	}

	h.mustOK(http.MethodDelete, join, bob, nil, nil)
	h.mustOK(http.MethodDelete, join, bob, nil, nil)

	if code, _ := h.do(http.MethodGet, fmt.Sprintf("/api/v1/communities/%d/feed", club.ID), admin, nil); code != http.StatusForbidden {
		t.Fatalf("non-member feed = %d", code)
	}
}

func TestStreakEndpointAdvancesStreakChallenges(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")

	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "Three Days", "type": "Streak", "level": 3}, &ch)
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/challenges/%d/join", ch.ID), alice, nil, nil)

	now := time.Now()
	for _, back := range []int{1, 2, 3} {
		date := now.AddDate(0, 0, -back).Format("2006-01-02")
		h.mustOK(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{"date": date, "completed": true}, nil)
	}
	// a gap before the run does not count
	h.mustOK(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{"date": now.AddDate(0, 0, -5).Format("2006-01-02"), "completed": true}, nil)

	var out struct {
		Streak int `json:"streak"`
		progressOut
	}
	h.mustOK(http.MethodGet, "/api/v1/users/me/streak", alice, nil, &out)
	if out.Streak != 3 || len(out.Progress.Completed) != 1 {
		t.Fatalf("streak = %d, progress = %+v", out.Streak, out.Progress)
	}

	var me struct {
		Streak int `json:"streak"`
	}
	h.mustOK(http.MethodGet, "/api/v1/auth/me", alice, nil, &me)
	if me.Streak != 3 {
		t.Fatalf("stored streak = %d", me.Streak)
	}
}

func TestProfileWeightsDriveGoalChallenge(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")

	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "Target", "type": "Goal", "level": 100}, &ch)
	h.mustOK(http.MethodPut, fmt.Sprintf("/api/v1/challenges/%d/join", ch.ID), alice, nil, nil)

	var out struct {
		GoalPercent int `json:"goal_percent"`
		progressOut
	}
	h.mustOK(http.MethodPatch, "/api/v1/auth/profile", alice, gin.H{
		"start_weight": 100, "current_weight": 90, "target_weight": 80,
	}, &out)
	if out.GoalPercent != 50 || len(out.Progress.Updated) != 1 || out.Progress.Updated[0].Progress != 50 {
		t.Fatalf("profile = %+v", out)
	}

	h.mustOK(http.MethodPut, "/api/v1/users/me/goal-progress", alice, gin.H{"value": 250}, &out)
	if got := out.Progress.Updated; len(got) != 1 || got[0].Progress != 100 || !got[0].Completed {
		t.Fatalf("goal progress = %+v", got)
	}

	if code, _ := h.do(http.MethodPatch, "/api/v1/auth/profile", alice, gin.H{"current_weight": -1}); code != http.StatusBadRequest {
		t.Fatalf("negative weight = %d", code)
	}
}

func TestAdminAndErrorMapping(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.register("admin")
	alice, _ := h.register("alice")

	if code, _ := h.do(http.MethodPost, "/api/v1/challenges", alice, gin.H{"name": "x", "type": "Meal", "level": 1}); code != http.StatusForbidden {
		t.Fatalf("non-admin create = %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "x", "type": "Nap", "level": 1}); code != http.StatusBadRequest {
		t.Fatalf("bad type = %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "x", "type": "Meal", "level": 1, "community_id": 42}); code != http.StatusNotFound {
		t.Fatalf("missing community = %d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/v1/challenges/999", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing challenge = %d", code)
	}
	if code, _ := h.do(http.MethodDelete, "/api/v1/challenges/999", admin, nil); code != http.StatusNotFound {
		t.Fatalf("delete missing = %d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/v1/users/me/challenges", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", code)
	}
	code, env := h.do(http.MethodGet, "/api/v1/nope", "", nil)
	if code != http.StatusNotFound || env.Code != 40400 {
		t.Fatalf("unknown route = %d %d", code, env.Code)
	}

	var ch idOnly
	h.mustOK(http.MethodPost, "/api/v1/challenges", admin, gin.H{"name": "<b>Veg</b> Week", "type": "Meal", "level": 7}, &ch)
	var got models.Challenge
	h.mustOK(http.MethodGet, fmt.Sprintf("/api/v1/challenges/%d", ch.ID), "", nil, &got)
	if got.Name != "Veg Week" || got.Type != models.ChallengeMeal {
		t.Fatalf("challenge = %+v", got)
	}
	var list struct {
		Items []models.Challenge `json:"items"`
	}
	h.mustOK(http.MethodGet, "/api/v1/challenges?type=meal", "", nil, &list)
	if len(list.Items) != 1 {
		t.Fatalf("list = %+v", list.Items)
	}
	h.mustOK(http.MethodDelete, fmt.Sprintf("/api/v1/challenges/%d", ch.ID), admin, nil, nil)
}

func TestMetricsAndHealth(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.register("alice")
	h.mustOK(http.MethodPost, "/api/v1/daily-logs", alice, gin.H{"foods": []gin.H{{"name": "toast"}}}, nil)
	h.mustOK(http.MethodGet, "/health", "", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	body := w.Body.String()
	for _, want := range []string{
		`fitquest_progress_events_total{kind="MealLogged"} 1`,
		`http_requests_total{method="POST",path="/api/v1/daily-logs",status="201"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
