package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"marginalia/internal/config"
	"marginalia/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret-0123456789abcdef",
		Port:      "8460",
		DBDriver:  "sqlite",
		Env:       "test",
	}
}

// newTestApp builds a server over a fresh in-memory SQLite database with
// no Redis. One open connection, otherwise each pooled connection would
// see its own empty in-memory database.
func newTestApp(t *testing.T) (*fiber.App, *Server) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	srv, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	srv.SetupRoutes(app)
	return app, srv
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	_ = resp.Body.Close()
	return out
}

// registerUser creates an account through the API and returns its token
// and user id.
func registerUser(t *testing.T, app *fiber.App, name string) (string, uint) {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/register", "", fiber.Map{
		"name":     name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeJSON(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]interface{})
	require.NotNil(t, user)
	return token, uint(user["id"].(float64))
}

// createPostViaAPI publishes a post with one text and one code block and
// returns the post id and the snippet id of the code block.
func createPostViaAPI(t *testing.T, app *fiber.App, token, title, language, code string) (uint, uint) {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/posts", token, fiber.Map{
		"title": title,
		"body": []fiber.Map{
			{"type": "text", "content": "Some context first."},
			{"type": "code", "language": language, "content": code},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeJSON(t, resp)
	postID := uint(body["id"].(float64))

	snippets, _ := body["snippets"].([]interface{})
	require.Len(t, snippets, 1)
	snippet := snippets[0].(map[string]interface{})
	return postID, uint(snippet["id"].(float64))
}
